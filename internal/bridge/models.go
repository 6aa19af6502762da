// Package bridge orchestrates issuance and verification against the identity
// registry, degrading to clearly-flagged fallback responses when the registry
// cannot be reached. Callers must branch on the OnChain/Fallback flags to
// know whether a response is authoritative.
package bridge

import (
	"time"

	"attestor/internal/registry"
)

// Issuance statuses.
const (
	StatusCreated = "created"
	StatusExists  = "exists"
)

// Invalidity reasons on verification.
const (
	ReasonExpired   = "expired"
	ReasonSuspended = "suspended"
	ReasonInvalid   = "invalid"
)

// IssueRequest is the public issuance payload. DocumentHash may be supplied
// directly; otherwise it is derived from DocumentType and DocumentNumber.
type IssueRequest struct {
	SubjectID      string     `json:"subject_id"`
	Name           string     `json:"name"`
	DocumentHash   string     `json:"document_hash,omitempty"`
	DocumentType   string     `json:"document_type,omitempty"`
	DocumentNumber string     `json:"document_number,omitempty"`
	ValidUntil     *time.Time `json:"valid_until,omitempty"`
}

// IssueResponse is the issuance result. ID is a string because fallback
// placeholder ids share the field with real numeric ids.
type IssueResponse struct {
	ID                 string    `json:"id"`
	ScanPayload        string    `json:"scan_payload"`
	Status             string    `json:"status"`
	ExpiresAt          time.Time `json:"expires_at"`
	OnChain            bool      `json:"on_chain"`
	Fallback           bool      `json:"fallback,omitempty"`
	TransactionReceipt string    `json:"transaction_receipt,omitempty"`
	VerificationLevel  int       `json:"verification_level,omitempty"`
}

// VerifyResponse is the verification result. Status is present on
// authoritative responses and carries the numeric wire encoding.
type VerifyResponse struct {
	ID                uint64           `json:"id"`
	SubjectID         string           `json:"subject_id,omitempty"`
	Name              string           `json:"name,omitempty"`
	Valid             bool             `json:"valid"`
	Status            *registry.Status `json:"status,omitempty"`
	Reason            string           `json:"reason,omitempty"`
	IssuedAt          *time.Time       `json:"issued_at,omitempty"`
	ExpiresAt         *time.Time       `json:"expires_at,omitempty"`
	VerificationLevel int              `json:"verification_level,omitempty"`
	Authority         string           `json:"authority,omitempty"`
	OnChain           bool             `json:"on_chain"`
	Fallback          bool             `json:"fallback,omitempty"`
}

// HealthResponse reports bridge and registry connectivity state.
type HealthResponse struct {
	Status            string  `json:"status"`
	RegistryConnected bool    `json:"registry_connected"`
	RegistryEndpoint  string  `json:"registry_endpoint"`
	TotalIdentities   *uint64 `json:"total_identities,omitempty"`
	ActiveIdentities  *uint64 `json:"active_identities,omitempty"`
}

func statusPtr(s registry.Status) *registry.Status { return &s }

func timePtr(t time.Time) *time.Time { return &t }
