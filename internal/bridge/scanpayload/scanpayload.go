// Package scanpayload encodes the scannable artifact embedded in issuance
// responses. The payload is base64url-encoded JSON carrying the credential id
// and a verification endpoint, small enough for a 2D barcode.
package scanpayload

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Version is bumped when the payload layout changes.
const Version = 1

// Payload is the decoded scan artifact.
type Payload struct {
	Version   int       `json:"v"`
	ID        string    `json:"id"`
	VerifyURL string    `json:"verify_url"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Encode builds the scannable payload for a credential id. baseURL is the
// public verification endpoint prefix.
func Encode(id, baseURL string, issuedAt time.Time) (string, error) {
	p := Payload{
		Version:   Version,
		ID:        id,
		VerifyURL: strings.TrimRight(baseURL, "/") + "/api/v1/credentials/" + id + "/verify",
		IssuedAt:  issuedAt.UTC(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal scan payload: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses an encoded payload.
func Decode(encoded string) (Payload, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return Payload{}, fmt.Errorf("decode scan payload: %w", err)
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("unmarshal scan payload: %w", err)
	}
	if p.Version != Version {
		return Payload{}, fmt.Errorf("unsupported scan payload version %d", p.Version)
	}
	return p, nil
}
