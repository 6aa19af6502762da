package client

import (
	"context"
	"time"

	"attestor/internal/registry"
)

// Local adapts an in-process ledger to the Client interface. Every mutation
// is attributed to the configured principal.
type Local struct {
	ledger    *registry.Ledger
	principal string
}

// NewLocal constructs a Local client.
func NewLocal(ledger *registry.Ledger, principal string) *Local {
	return &Local{ledger: ledger, principal: principal}
}

func (l *Local) CreateIdentity(ctx context.Context, params registry.CreateParams) (CreateResult, error) {
	id, receipt, err := l.ledger.CreateIdentity(ctx, params, l.principal)
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{ID: id, Receipt: receipt}, nil
}

func (l *Local) UpdateStatus(ctx context.Context, id uint64, status registry.Status) (string, error) {
	return l.ledger.UpdateStatus(ctx, id, status, l.principal)
}

func (l *Local) Renew(ctx context.Context, id uint64, expiresAt time.Time) (string, error) {
	return l.ledger.Renew(ctx, id, expiresAt, l.principal)
}

func (l *Local) Verify(ctx context.Context, id uint64) (registry.Verification, error) {
	return l.ledger.Verify(ctx, id), nil
}

func (l *Local) Details(ctx context.Context, id uint64) (registry.Record, error) {
	return l.ledger.Details(ctx, id)
}

func (l *Local) LookupSubject(ctx context.Context, subjectID string) (uint64, error) {
	return l.ledger.LookupSubject(ctx, subjectID), nil
}

func (l *Local) Stats(ctx context.Context) (registry.Stats, error) {
	return l.ledger.Stats(ctx), nil
}

func (l *Local) Ping(context.Context) error { return nil }

func (l *Local) Endpoint() string { return "local" }
