package registry

import "time"

// Status is the stored lifecycle state of an identity record. The numeric
// values are a fixed wire contract shared with every client; never reorder.
type Status int

const (
	StatusActive    Status = 0
	StatusSuspended Status = 1
	StatusExpired   Status = 2
	StatusRevoked   Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusSuspended:
		return "suspended"
	case StatusExpired:
		return "expired"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the four defined states.
func (s Status) Valid() bool {
	return s >= StatusActive && s <= StatusRevoked
}

// Verification level bounds.
const (
	MinVerificationLevel = 1
	MaxVerificationLevel = 5
)

// LevelForDocument maps a document type to the default verification level
// assigned at issuance. Passports carry stronger proofing than other papers.
func LevelForDocument(documentType string) int {
	if documentType == "passport" {
		return 4
	}
	return 3
}

// Record is a single identity credential as stored on the ledger. Records are
// never deleted; status transitions are the only lifecycle.
type Record struct {
	ID                uint64    `json:"id"`
	SubjectID         string    `json:"subject_id"`
	DisplayName       string    `json:"display_name"`
	IssuingAuthority  string    `json:"issuing_authority"`
	DocumentHash      string    `json:"document_hash"`
	PersonalHash      string    `json:"personal_hash"`
	IssuedAt          time.Time `json:"issued_at"`
	ExpiresAt         time.Time `json:"expires_at"`
	Status            Status    `json:"status"`
	VerificationLevel int       `json:"verification_level"`
}

// Verification is the result of a validity query.
type Verification struct {
	Valid  bool   `json:"valid"`
	Status Status `json:"status"`
}

// DeriveStatus applies the read-time expiry override on top of the stored
// status field. A record whose expiry has passed reads as (false, Expired)
// even while its stored status is still Active; nothing is written back. The
// stored field and this derivation deliberately coexist - keeping the
// discrepancy in one pure function makes it visible and testable.
func DeriveStatus(rec Record, now time.Time) Verification {
	if now.After(rec.ExpiresAt) {
		return Verification{Valid: false, Status: StatusExpired}
	}
	return Verification{Valid: rec.Status == StatusActive, Status: rec.Status}
}

// CreateParams carries the inputs for a single issuance.
type CreateParams struct {
	SubjectID         string    `json:"subject_id"`
	DisplayName       string    `json:"display_name"`
	DocumentHash      string    `json:"document_hash"`
	PersonalHash      string    `json:"personal_hash"`
	ExpiresAt         time.Time `json:"expires_at"`
	VerificationLevel int       `json:"verification_level"`
}

// BatchEntry is one record in a bulk issuance. All entries in a batch share
// one default expiry assigned by the ledger.
type BatchEntry struct {
	SubjectID         string `json:"subject_id"`
	DisplayName       string `json:"display_name"`
	DocumentHash      string `json:"document_hash"`
	PersonalHash      string `json:"personal_hash"`
	VerificationLevel int    `json:"verification_level"`
}

// BatchResult reports what a bulk issuance did. Subjects that were already
// registered are skipped, not failed.
type BatchResult struct {
	CreatedIDs      []uint64 `json:"created_ids"`
	SkippedSubjects []string `json:"skipped_subjects"`
}

// Stats summarizes ledger counters for health reporting.
type Stats struct {
	TotalIdentities  uint64 `json:"total_identities"`
	ActiveIdentities uint64 `json:"active_identities"`
}
