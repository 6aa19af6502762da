package audit

import (
	"context"
	"time"
)

// Event is one structured audit entry. Registry mutations emit these so
// operators can answer "who issued what, when" without scraping logs.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	RecordID  uint64    `json:"record_id,omitempty"`
	SubjectID string    `json:"subject_id,omitempty"`
	Principal string    `json:"principal,omitempty"`
	Receipt   string    `json:"receipt,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Appender is a sink for audit events. Implementations must be safe for
// concurrent use by the worker.
type Appender interface {
	Append(ctx context.Context, event Event) error
}

// Lister exposes recorded events for inspection. The memory store implements
// it; produce-only sinks (kafka) do not.
type Lister interface {
	List(ctx context.Context) ([]Event, error)
}
