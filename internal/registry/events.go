package registry

import (
	"strconv"
	"time"

	"attestor/pkg/credhash"
)

// EventType discriminates journal entries.
type EventType string

const (
	EventIdentityCreated EventType = "identity.created"
	EventStatusChanged   EventType = "identity.status_changed"
	EventIdentityRenewed EventType = "identity.renewed"
	EventAuthoritySet    EventType = "authority.set"
	EventPaused          EventType = "registry.paused"
	EventUnpaused        EventType = "registry.unpaused"
)

// Event is one entry in the append-only journal. The full ledger state is
// reconstructible by replaying events in order, so every mutation must carry
// enough data to reapply itself.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Receipt    string    `json:"receipt"`

	// identity.* fields
	ID        uint64    `json:"id,omitempty"`
	SubjectID string    `json:"subject_id,omitempty"`
	Record    Record    `json:"record,omitzero"`
	NewStatus Status    `json:"new_status,omitempty"`
	OldStatus Status    `json:"old_status,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`

	// authority.set fields
	Principal string `json:"principal,omitempty"`
	Enabled   bool   `json:"enabled,omitempty"`

	// caller that performed the mutation
	Caller string `json:"caller,omitempty"`
}

// newEvent stamps the event with its occurrence time and a deterministic
// transaction receipt digest.
func newEvent(typ EventType, id uint64, occurredAt time.Time) Event {
	return Event{
		Type:       typ,
		OccurredAt: occurredAt,
		ID:         id,
		Receipt: credhash.Receipt(
			string(typ),
			strconv.FormatUint(id, 10),
			occurredAt.UTC().Format(time.RFC3339Nano),
		),
	}
}
