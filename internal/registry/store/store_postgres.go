package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"attestor/internal/registry"
)

// Postgres journals ledger events in a single append-only table. Replay order
// is the bigserial sequence, which matches append order because the ledger
// serializes mutations.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed journal. The caller owns the
// *sql.DB (driver registration, pooling, close).
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the journal table if it does not exist.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS registry_events (
			seq         BIGSERIAL PRIMARY KEY,
			event_type  TEXT        NOT NULL,
			receipt     TEXT        NOT NULL,
			occurred_at TIMESTAMPTZ NOT NULL,
			payload     JSONB       NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate registry_events: %w", err)
	}
	return nil
}

func (p *Postgres) Append(ctx context.Context, event registry.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO registry_events (event_type, receipt, occurred_at, payload) VALUES ($1, $2, $3, $4)`,
		string(event.Type), event.Receipt, event.OccurredAt, payload,
	)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) ([]registry.Event, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT payload FROM registry_events ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []registry.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var event registry.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
