package migration

import (
	"context"
	"log/slog"
	"time"

	"attestor/internal/registry"
	"attestor/internal/registry/client"
	"attestor/pkg/credhash"
)

// DefaultValidity is the expiry window assigned to migrated records.
const DefaultValidity = 365 * 24 * time.Hour

// Service runs the migration batch against the registry.
type Service struct {
	legacy   LegacyStore
	registry client.Client
	logger   *slog.Logger
	validity time.Duration
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithValidity overrides the expiry window for migrated records.
func WithValidity(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.validity = d
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService constructs the migration service.
func NewService(legacy LegacyStore, registryClient client.Client, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		legacy:   legacy,
		registry: registryClient,
		logger:   logger,
		validity: DefaultValidity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run migrates every pending legacy record. A single entry's failure is
// recorded in the report and does not abort the batch; the returned error is
// non-nil only when the batch itself could not start.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{
		StartedAt:        s.now(),
		RegistryEndpoint: s.registry.Endpoint(),
	}

	pending, err := s.legacy.ListPending(ctx)
	if err != nil {
		return report, err
	}
	report.Considered = len(pending)

	for _, rec := range pending {
		if err := s.migrateOne(ctx, rec, &report); err != nil {
			report.Failed++
			report.Failures = append(report.Failures, Failure{
				SubjectID: rec.SubjectID,
				Reason:    err.Error(),
			})
			s.logger.ErrorContext(ctx, "legacy record migration failed",
				"subject_id", rec.SubjectID,
				"placeholder_id", rec.PlaceholderID,
				"error", err,
			)
		}
	}

	report.FinishedAt = s.now()
	s.logger.InfoContext(ctx, "migration run finished",
		"considered", report.Considered,
		"migrated", report.Migrated,
		"reconciled", report.Reconciled,
		"failed", report.Failed,
		"endpoint", report.RegistryEndpoint,
	)
	return report, nil
}

func (s *Service) migrateOne(ctx context.Context, rec LegacyRecord, report *Report) error {
	existing, err := s.registry.LookupSubject(ctx, rec.SubjectID)
	if err != nil {
		return err
	}
	if existing != 0 {
		// Already on the registry: bind the legacy row to the authoritative
		// id without writing anything registry-side.
		if err := s.legacy.MarkMigrated(ctx, rec.SubjectID, existing, ""); err != nil {
			return err
		}
		report.Reconciled++
		s.logger.InfoContext(ctx, "legacy record reconciled",
			"subject_id", rec.SubjectID,
			"id", existing,
		)
		return nil
	}

	now := s.now()
	result, err := s.registry.CreateIdentity(ctx, registry.CreateParams{
		SubjectID:         rec.SubjectID,
		DisplayName:       rec.Name,
		DocumentHash:      credhash.DocumentDigest(rec.DocumentType, rec.DocumentNumber),
		PersonalHash:      credhash.PersonalDigest(rec.Name, rec.SubjectID, now),
		ExpiresAt:         now.Add(s.validity),
		VerificationLevel: registry.LevelForDocument(rec.DocumentType),
	})
	if err != nil {
		return err
	}
	if err := s.legacy.MarkMigrated(ctx, rec.SubjectID, result.ID, result.Receipt); err != nil {
		return err
	}
	report.Migrated++
	s.logger.InfoContext(ctx, "legacy record migrated",
		"subject_id", rec.SubjectID,
		"id", result.ID,
		"receipt", result.Receipt,
	)
	return nil
}
