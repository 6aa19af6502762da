package handler

import (
	"time"

	"attestor/internal/registry"
)

// CreateIdentityRequest is the issuance payload. VerificationLevel may be
// omitted; the default is derived from the document type.
type CreateIdentityRequest struct {
	SubjectID         string    `json:"subject_id"`
	DisplayName       string    `json:"display_name"`
	DocumentType      string    `json:"document_type"`
	DocumentHash      string    `json:"document_hash"`
	PersonalHash      string    `json:"personal_hash"`
	ExpiresAt         time.Time `json:"expires_at"`
	VerificationLevel int       `json:"verification_level"`
}

// ToParams converts the request to ledger create parameters, applying the
// document-type default when no level was supplied.
func (r CreateIdentityRequest) ToParams() registry.CreateParams {
	level := r.VerificationLevel
	if level == 0 {
		level = registry.LevelForDocument(r.DocumentType)
	}
	return registry.CreateParams{
		SubjectID:         r.SubjectID,
		DisplayName:       r.DisplayName,
		DocumentHash:      r.DocumentHash,
		PersonalHash:      r.PersonalHash,
		ExpiresAt:         r.ExpiresAt,
		VerificationLevel: level,
	}
}

// BatchEntryRequest is one entry of a bulk issuance.
type BatchEntryRequest struct {
	SubjectID         string `json:"subject_id"`
	DisplayName       string `json:"display_name"`
	DocumentType      string `json:"document_type"`
	DocumentHash      string `json:"document_hash"`
	PersonalHash      string `json:"personal_hash"`
	VerificationLevel int    `json:"verification_level"`
}

// BatchCreateRequest is the bulk issuance payload.
type BatchCreateRequest struct {
	Entries []BatchEntryRequest `json:"entries"`
}

// ToEntries converts the request to ledger batch entries.
func (r BatchCreateRequest) ToEntries() []registry.BatchEntry {
	entries := make([]registry.BatchEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		level := e.VerificationLevel
		if level == 0 {
			level = registry.LevelForDocument(e.DocumentType)
		}
		entries = append(entries, registry.BatchEntry{
			SubjectID:         e.SubjectID,
			DisplayName:       e.DisplayName,
			DocumentHash:      e.DocumentHash,
			PersonalHash:      e.PersonalHash,
			VerificationLevel: level,
		})
	}
	return entries
}

// UpdateStatusRequest carries the target status for a transition.
type UpdateStatusRequest struct {
	Status registry.Status `json:"status"`
}

// RenewRequest carries the extended expiry.
type RenewRequest struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// SetAuthorityRequest grants or revokes issuance authority.
type SetAuthorityRequest struct {
	Enabled bool `json:"enabled"`
}
