// Package credhash produces the fingerprint digests stored on identity
// records. Digests are one-way: the registry never stores raw document
// numbers or personal data, only these hashes.
package credhash

import (
	"encoding/hex"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"
)

const separator = "\x1f"

// DocumentDigest returns a deterministic hex digest for a document. The same
// (documentType, documentNumber) pair always yields the same digest, which is
// what lets a verifier compare a presented document against the record.
func DocumentDigest(documentType, documentNumber string) string {
	return digest("doc", strings.ToLower(strings.TrimSpace(documentType)), strings.TrimSpace(documentNumber))
}

// PersonalDigest returns an integrity fingerprint over the subject's personal
// data. It is salted with the issuance time, so it is intentionally not
// deterministic across calls and must never be used as a deduplication key.
func PersonalDigest(name, subjectID string, t time.Time) string {
	return digest("personal", name, subjectID, t.UTC().Format(time.RFC3339Nano))
}

// Receipt returns a 0x-prefixed digest over the parts of a ledger mutation,
// used as the transaction receipt identifier handed back to callers.
func Receipt(parts ...string) string {
	return "0x" + digest("receipt", parts...)
}

func digest(domain string, parts ...string) string {
	h := sha3.New256()
	h.Write([]byte(domain))
	for _, p := range parts {
		h.Write([]byte(separator))
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
