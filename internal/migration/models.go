// Package migration re-issues legacy records that still carry pre-registry
// placeholder identifiers through the authoritative registry. The job is
// idempotent: already-registered subjects are reconciled locally without a
// registry write, so re-running over a migrated dataset writes nothing.
package migration

import (
	"context"
	"time"
)

// LegacyRecord is one row of the pre-registry store.
type LegacyRecord struct {
	SubjectID      string
	Name           string
	DocumentType   string
	DocumentNumber string
	PlaceholderID  string
}

// LegacyStore is the source of records awaiting migration.
type LegacyStore interface {
	// ListPending returns records without an authoritative registry id.
	ListPending(ctx context.Context) ([]LegacyRecord, error)
	// MarkMigrated binds a legacy record to its registry id. receipt is empty
	// for reconciliations, which performed no registry write.
	MarkMigrated(ctx context.Context, subjectID string, id uint64, receipt string) error
}

// Failure records one entry that could not be migrated.
type Failure struct {
	SubjectID string `json:"subject_id"`
	Reason    string `json:"reason"`
}

// Report summarizes a migration run.
type Report struct {
	Considered       int       `json:"considered"`
	Migrated         int       `json:"migrated"`
	Reconciled       int       `json:"reconciled"`
	Failed           int       `json:"failed"`
	Failures         []Failure `json:"failures,omitempty"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	RegistryEndpoint string    `json:"registry_endpoint"`
}
