package handler

import "attestor/internal/registry"

// CreateResponse reports an issued record.
type CreateResponse struct {
	ID      uint64 `json:"id"`
	Receipt string `json:"receipt"`
}

// MutationResponse reports a completed transition.
type MutationResponse struct {
	ID      uint64 `json:"id"`
	Receipt string `json:"receipt"`
}

// VerificationResponse is the validity query result. Status carries the
// numeric wire value, StatusLabel the human-readable name.
type VerificationResponse struct {
	Valid       bool            `json:"valid"`
	Status      registry.Status `json:"status"`
	StatusLabel string          `json:"status_label"`
}

// FromVerification converts a ledger verification.
func FromVerification(v registry.Verification) VerificationResponse {
	return VerificationResponse{
		Valid:       v.Valid,
		Status:      v.Status,
		StatusLabel: v.Status.String(),
	}
}

// LookupResponse maps a subject to its record id.
type LookupResponse struct {
	SubjectID string `json:"subject_id"`
	ID        uint64 `json:"id"`
}

// AuthorityResponse reports an authority set change.
type AuthorityResponse struct {
	Principal string `json:"principal"`
	Enabled   bool   `json:"enabled"`
	Receipt   string `json:"receipt"`
}

// StatsResponse reports ledger counters and the pause flag.
type StatsResponse struct {
	TotalIdentities  uint64 `json:"total_identities"`
	ActiveIdentities uint64 `json:"active_identities"`
	Paused           bool   `json:"paused"`
}
