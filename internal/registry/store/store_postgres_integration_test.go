//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"attestor/internal/registry"
	"attestor/internal/registry/store"
	"attestor/pkg/testutil/containers"
)

type PostgresJournalSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	journal  *store.Postgres
}

func TestPostgresJournalSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresJournalSuite))
}

func (s *PostgresJournalSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.journal = store.NewPostgres(s.postgres.DB)
	s.Require().NoError(s.journal.Migrate(context.Background()))
}

func (s *PostgresJournalSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "registry_events")
	s.Require().NoError(err)
}

func (s *PostgresJournalSuite) TestAppendAndLoadRoundTrip() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	created := registry.Event{
		Type:       registry.EventIdentityCreated,
		OccurredAt: now,
		Receipt:    "0xaa",
		ID:         1,
		SubjectID:  "subj-1001",
		Record: registry.Record{
			ID:                1,
			SubjectID:         "subj-1001",
			DisplayName:       "Ada Lovelace",
			IssuingAuthority:  "did:gov:root",
			IssuedAt:          now,
			ExpiresAt:         now.Add(24 * time.Hour),
			Status:            registry.StatusActive,
			VerificationLevel: 3,
		},
		Caller: "did:gov:root",
	}
	changed := registry.Event{
		Type:       registry.EventStatusChanged,
		OccurredAt: now.Add(time.Second),
		Receipt:    "0xbb",
		ID:         1,
		SubjectID:  "subj-1001",
		OldStatus:  registry.StatusActive,
		NewStatus:  registry.StatusSuspended,
		Caller:     "did:gov:root",
	}

	s.Require().NoError(s.journal.Append(ctx, created))
	s.Require().NoError(s.journal.Append(ctx, changed))

	events, err := s.journal.Load(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 2)

	s.Equal(registry.EventIdentityCreated, events[0].Type)
	s.Equal("subj-1001", events[0].Record.SubjectID)
	s.Equal(registry.StatusActive, events[0].Record.Status)
	s.Equal(3, events[0].Record.VerificationLevel)

	s.Equal(registry.EventStatusChanged, events[1].Type)
	s.Equal(registry.StatusSuspended, events[1].NewStatus)
}

func (s *PostgresJournalSuite) TestLoadPreservesAppendOrder() {
	ctx := context.Background()
	for i := uint64(1); i <= 20; i++ {
		event := registry.Event{
			Type:       registry.EventIdentityCreated,
			OccurredAt: time.Now().UTC(),
			Receipt:    "0xcc",
			ID:         i,
			Record:     registry.Record{ID: i, SubjectID: "subj", Status: registry.StatusActive},
		}
		s.Require().NoError(s.journal.Append(ctx, event))
	}

	events, err := s.journal.Load(ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 20)
	for i, event := range events {
		s.Equal(uint64(i+1), event.ID)
	}
}

func (s *PostgresJournalSuite) TestLedgerReplayFromPostgres() {
	ctx := context.Background()
	owner := "did:gov:root"

	ledger := registry.New(owner, registry.WithJournal(s.journal))
	id, _, err := ledger.CreateIdentity(ctx, registry.CreateParams{
		SubjectID:         "subj-3001",
		DisplayName:       "Grace Hopper",
		ExpiresAt:         time.Now().Add(24 * time.Hour),
		VerificationLevel: 4,
	}, owner)
	s.Require().NoError(err)
	_, err = ledger.UpdateStatus(ctx, id, registry.StatusSuspended, owner)
	s.Require().NoError(err)

	reopened, err := registry.Open(ctx, owner, s.journal)
	s.Require().NoError(err)

	rec, err := reopened.Details(ctx, id)
	s.Require().NoError(err)
	s.Equal(registry.StatusSuspended, rec.Status)
	s.Equal("Grace Hopper", rec.DisplayName)
}

func (s *PostgresJournalSuite) TestMigrateIsIdempotent() {
	ctx := context.Background()
	s.Require().NoError(s.journal.Migrate(ctx))
	s.Require().NoError(s.journal.Migrate(ctx))
}
