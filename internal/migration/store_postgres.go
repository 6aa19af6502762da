package migration

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore reads and updates the legacy identity table left behind by
// the pre-registry system.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to the legacy database with the lib/pq driver.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open legacy store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping legacy store: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the legacy table if it does not exist. Used by tests;
// production datasets already carry it.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS legacy_identities (
			subject_id      TEXT PRIMARY KEY,
			name            TEXT NOT NULL,
			document_type   TEXT NOT NULL DEFAULT '',
			document_number TEXT NOT NULL DEFAULT '',
			placeholder_id  TEXT NOT NULL,
			migrated_id     BIGINT,
			receipt         TEXT,
			migrated_at     TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("migrate legacy_identities: %w", err)
	}
	return nil
}

// Insert seeds a legacy row. Test helper.
func (s *PostgresStore) Insert(ctx context.Context, rec LegacyRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO legacy_identities (subject_id, name, document_type, document_number, placeholder_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		rec.SubjectID, rec.Name, rec.DocumentType, rec.DocumentNumber, rec.PlaceholderID,
	)
	if err != nil {
		return fmt.Errorf("insert legacy record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context) ([]LegacyRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subject_id, name, document_type, document_number, placeholder_id
		FROM legacy_identities
		WHERE migrated_id IS NULL
		ORDER BY subject_id`)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()

	var pending []LegacyRecord
	for rows.Next() {
		var rec LegacyRecord
		if err := rows.Scan(&rec.SubjectID, &rec.Name, &rec.DocumentType, &rec.DocumentNumber, &rec.PlaceholderID); err != nil {
			return nil, fmt.Errorf("scan legacy record: %w", err)
		}
		pending = append(pending, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate legacy records: %w", err)
	}
	return pending, nil
}

func (s *PostgresStore) MarkMigrated(ctx context.Context, subjectID string, id uint64, receipt string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE legacy_identities SET migrated_id = $2, receipt = $3, migrated_at = NOW() WHERE subject_id = $1`,
		subjectID, int64(id), receipt,
	)
	if err != nil {
		return fmt.Errorf("mark migrated: %w", err)
	}
	return nil
}

// Close closes the underlying pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
