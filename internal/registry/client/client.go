// Package client provides access to the identity registry for other
// services. The HTTP implementation talks to a remote registry; Local wraps
// an in-process ledger for single-binary deployments and tests.
package client

import (
	"context"
	"time"

	"attestor/internal/registry"
)

//go:generate mockgen -source=client.go -destination=mocks/mocks.go -package=mocks Client

// CreateResult reports a successful issuance.
type CreateResult struct {
	ID      uint64
	Receipt string
}

// Client is the registry operation surface consumed by the bridge and the
// migration tool. Connectivity failures surface as sentinel.ErrUnavailable so
// callers can distinguish a down registry from a domain rejection.
type Client interface {
	CreateIdentity(ctx context.Context, params registry.CreateParams) (CreateResult, error)
	UpdateStatus(ctx context.Context, id uint64, status registry.Status) (string, error)
	Renew(ctx context.Context, id uint64, expiresAt time.Time) (string, error)
	Verify(ctx context.Context, id uint64) (registry.Verification, error)
	Details(ctx context.Context, id uint64) (registry.Record, error)
	LookupSubject(ctx context.Context, subjectID string) (uint64, error)
	Stats(ctx context.Context) (registry.Stats, error)
	Ping(ctx context.Context) error
	Endpoint() string
}
