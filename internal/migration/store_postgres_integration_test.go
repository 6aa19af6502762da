//go:build integration

package migration_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"attestor/internal/migration"
	"attestor/internal/registry"
	"attestor/internal/registry/client"
	"attestor/pkg/testutil/containers"
)

type PostgresLegacyStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *migration.PostgresStore
}

func TestPostgresLegacyStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresLegacyStoreSuite))
}

func (s *PostgresLegacyStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = migration.NewPostgresStore(s.postgres.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresLegacyStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "legacy_identities"))
}

func (s *PostgresLegacyStoreSuite) seed(records ...migration.LegacyRecord) {
	ctx := context.Background()
	for _, rec := range records {
		s.Require().NoError(s.store.Insert(ctx, rec))
	}
}

func (s *PostgresLegacyStoreSuite) TestListPendingSkipsMigratedRows() {
	ctx := context.Background()
	s.seed(
		migration.LegacyRecord{SubjectID: "subj-1001", Name: "Ada Lovelace", PlaceholderID: "legacy-1"},
		migration.LegacyRecord{SubjectID: "subj-1002", Name: "Grace Hopper", PlaceholderID: "legacy-2"},
	)

	s.Require().NoError(s.store.MarkMigrated(ctx, "subj-1001", 1, "0xaa"))

	pending, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal("subj-1002", pending[0].SubjectID)
}

func (s *PostgresLegacyStoreSuite) TestListPendingOrdersBySubject() {
	ctx := context.Background()
	s.seed(
		migration.LegacyRecord{SubjectID: "subj-1003", Name: "Katherine Johnson", PlaceholderID: "legacy-3"},
		migration.LegacyRecord{SubjectID: "subj-1001", Name: "Ada Lovelace", PlaceholderID: "legacy-1"},
		migration.LegacyRecord{SubjectID: "subj-1002", Name: "Grace Hopper", PlaceholderID: "legacy-2"},
	)

	pending, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 3)
	s.Equal("subj-1001", pending[0].SubjectID)
	s.Equal("subj-1002", pending[1].SubjectID)
	s.Equal("subj-1003", pending[2].SubjectID)
}

func (s *PostgresLegacyStoreSuite) TestFullRunAgainstPostgresBackedStore() {
	ctx := context.Background()
	s.seed(
		migration.LegacyRecord{SubjectID: "subj-1001", Name: "Ada Lovelace", DocumentType: "passport", DocumentNumber: "P-1", PlaceholderID: "legacy-1"},
		migration.LegacyRecord{SubjectID: "subj-1002", Name: "Grace Hopper", DocumentType: "national_id", DocumentNumber: "N-2", PlaceholderID: "legacy-2"},
	)

	owner := "did:gov:root"
	ledger := registry.New(owner)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := migration.NewService(s.store, client.NewLocal(ledger, owner), logger)

	report, err := svc.Run(ctx)
	s.Require().NoError(err)
	s.Equal(2, report.Migrated)
	s.Equal(0, report.Failed)

	pending, err := s.store.ListPending(ctx)
	s.Require().NoError(err)
	s.Empty(pending)

	second, err := svc.Run(ctx)
	s.Require().NoError(err)
	s.Equal(0, second.Considered)
}
