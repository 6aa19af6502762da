// Package registry implements the authoritative identity ledger: records, the
// authority set, and global counters, with every invariant enforced behind a
// single writer lock. The ledger is append-mostly - records transition, they
// are never deleted.
package registry

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"attestor/internal/audit"
	"attestor/internal/registry/metrics"
	derrors "attestor/pkg/domain-errors"
)

// Journal is the append-only persistence contract the ledger writes through.
// Implementations live in the store package.
type Journal interface {
	Append(ctx context.Context, event Event) error
	Load(ctx context.Context) ([]Event, error)
}

// DefaultBatchValidity is the shared expiry window assigned to every entry of
// a bulk issuance.
const DefaultBatchValidity = 365 * 24 * time.Hour

// Ledger owns all identity records and registry globals. Mutations are
// serialized: each either fully applies (journal append, then in-memory
// state) or is fully rejected. Queries take the read lock and are never
// blocked by pause.
type Ledger struct {
	mu sync.RWMutex

	owner       string
	authorities map[string]bool
	records     map[uint64]Record
	subjects    map[string]uint64
	nextID      uint64
	activeCount uint64
	paused      bool

	journal       Journal
	metrics       *metrics.Metrics
	audit         *audit.Publisher
	logger        *slog.Logger
	now           func() time.Time
	batchValidity time.Duration
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal attaches a journal without replaying it. Use Open to replay an
// existing journal at boot.
func WithJournal(j Journal) Option {
	return func(l *Ledger) { l.journal = j }
}

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

// WithAudit attaches an audit publisher; mutations emit events through it.
func WithAudit(p *audit.Publisher) Option {
	return func(l *Ledger) { l.audit = p }
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithBatchValidity overrides the shared expiry window for bulk issuance.
func WithBatchValidity(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.batchValidity = d
		}
	}
}

// New builds an empty ledger owned by the given principal. The owner is
// always authorized and is the only principal allowed to mutate the
// authority set, pause the registry, or bulk-issue.
func New(owner string, opts ...Option) *Ledger {
	l := &Ledger{
		owner:         owner,
		authorities:   make(map[string]bool),
		records:       make(map[uint64]Record),
		subjects:      make(map[string]uint64),
		nextID:        1,
		now:           time.Now,
		batchValidity: DefaultBatchValidity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open builds a ledger and replays the journal to reconstruct state. The
// journal is attached only after replay so replayed events are not
// re-appended.
func Open(ctx context.Context, owner string, journal Journal, opts ...Option) (*Ledger, error) {
	l := New(owner, opts...)
	if journal != nil {
		events, err := journal.Load(ctx)
		if err != nil {
			return nil, derrors.Wrap(err, derrors.CodeInternal, "load journal")
		}
		for i := range events {
			l.apply(events[i])
		}
		l.journal = journal
	}
	l.syncCounters()
	if l.logger != nil {
		l.logger.InfoContext(ctx, "ledger opened",
			"owner", owner,
			"identities", len(l.records),
			"active", l.activeCount,
		)
	}
	return l, nil
}

// Owner returns the owning principal.
func (l *Ledger) Owner() string { return l.owner }

// IsPaused reports the mutation kill-switch state.
func (l *Ledger) IsPaused() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.paused
}

// CreateIdentity issues a new record. Returns the assigned id and the
// transaction receipt. State is unchanged on any failure.
func (l *Ledger) CreateIdentity(ctx context.Context, params CreateParams, caller string) (uint64, string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if err := l.checkMutable(caller, false); err != nil {
		l.metrics.IncrementMutation("create", string(derrors.CodeOf(err)))
		return 0, "", err
	}
	if err := validateIssuance(params.SubjectID, params.DisplayName, params.VerificationLevel); err != nil {
		l.metrics.IncrementMutation("create", string(derrors.CodeOf(err)))
		return 0, "", err
	}
	if !params.ExpiresAt.After(now) {
		l.metrics.IncrementMutation("create", string(derrors.CodeInvalidInput))
		return 0, "", derrors.New(derrors.CodeInvalidInput, "expiry must be in the future")
	}
	if _, exists := l.subjects[params.SubjectID]; exists {
		l.metrics.IncrementMutation("create", string(derrors.CodeDuplicateSubject))
		return 0, "", derrors.Newf(derrors.CodeDuplicateSubject, "subject %q already registered", params.SubjectID)
	}

	rec := Record{
		ID:                l.nextID,
		SubjectID:         params.SubjectID,
		DisplayName:       params.DisplayName,
		IssuingAuthority:  caller,
		DocumentHash:      params.DocumentHash,
		PersonalHash:      params.PersonalHash,
		IssuedAt:          now,
		ExpiresAt:         params.ExpiresAt,
		Status:            StatusActive,
		VerificationLevel: params.VerificationLevel,
	}
	event := newEvent(EventIdentityCreated, rec.ID, now)
	event.Record = rec
	event.SubjectID = rec.SubjectID
	event.Caller = caller

	if err := l.commit(ctx, event); err != nil {
		l.metrics.IncrementMutation("create", "journal_error")
		return 0, "", err
	}
	l.metrics.IncrementMutation("create", "ok")
	l.emitAudit(ctx, event)
	if l.logger != nil {
		l.logger.InfoContext(ctx, "identity created",
			"id", rec.ID,
			"subject_id", rec.SubjectID,
			"issuer", caller,
			"receipt", event.Receipt,
		)
	}
	return rec.ID, event.Receipt, nil
}

// UpdateStatus transitions a record to a different status, adjusting the
// active counter exactly when the transition enters or leaves Active.
func (l *Ledger) UpdateStatus(ctx context.Context, id uint64, newStatus Status, caller string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.checkMutable(caller, false); err != nil {
		l.metrics.IncrementMutation("update_status", string(derrors.CodeOf(err)))
		return "", err
	}
	if !newStatus.Valid() {
		l.metrics.IncrementMutation("update_status", string(derrors.CodeInvalidInput))
		return "", derrors.Newf(derrors.CodeInvalidInput, "unknown status %d", newStatus)
	}
	rec, ok := l.records[id]
	if !ok {
		l.metrics.IncrementMutation("update_status", string(derrors.CodeNotFound))
		return "", derrors.Newf(derrors.CodeNotFound, "identity %d not found", id)
	}
	if rec.Status == newStatus {
		l.metrics.IncrementMutation("update_status", string(derrors.CodeNoOpTransition))
		return "", derrors.Newf(derrors.CodeNoOpTransition, "identity %d already %s", id, newStatus)
	}

	event := newEvent(EventStatusChanged, id, l.now())
	event.SubjectID = rec.SubjectID
	event.OldStatus = rec.Status
	event.NewStatus = newStatus
	event.Caller = caller

	if err := l.commit(ctx, event); err != nil {
		l.metrics.IncrementMutation("update_status", "journal_error")
		return "", err
	}
	l.metrics.IncrementMutation("update_status", "ok")
	l.emitAudit(ctx, event)
	if l.logger != nil {
		l.logger.InfoContext(ctx, "identity status changed",
			"id", id,
			"from", event.OldStatus.String(),
			"to", newStatus.String(),
			"caller", caller,
		)
	}
	return event.Receipt, nil
}

// Renew extends a record's expiry. A stored Expired status flips back to
// Active as a side effect; Suspended and Revoked records keep their status
// and require an explicit transition to reactivate.
func (l *Ledger) Renew(ctx context.Context, id uint64, newExpiresAt time.Time, caller string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if err := l.checkMutable(caller, false); err != nil {
		l.metrics.IncrementMutation("renew", string(derrors.CodeOf(err)))
		return "", err
	}
	rec, ok := l.records[id]
	if !ok {
		l.metrics.IncrementMutation("renew", string(derrors.CodeNotFound))
		return "", derrors.Newf(derrors.CodeNotFound, "identity %d not found", id)
	}
	if !newExpiresAt.After(now) || !newExpiresAt.After(rec.ExpiresAt) {
		l.metrics.IncrementMutation("renew", string(derrors.CodeInvalidExpiry))
		return "", derrors.New(derrors.CodeInvalidExpiry, "new expiry must be in the future and beyond the current expiry")
	}

	event := newEvent(EventIdentityRenewed, id, now)
	event.SubjectID = rec.SubjectID
	event.ExpiresAt = newExpiresAt
	event.Caller = caller

	if err := l.commit(ctx, event); err != nil {
		l.metrics.IncrementMutation("renew", "journal_error")
		return "", err
	}
	l.metrics.IncrementMutation("renew", "ok")
	l.emitAudit(ctx, event)
	return event.Receipt, nil
}

// Verify is a pure validity query. A missing record reads as
// (false, Revoked); an elapsed expiry reads as (false, Expired) regardless of
// the stored status. Never blocked by pause, never writes.
func (l *Ledger) Verify(_ context.Context, id uint64) Verification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		l.metrics.IncrementVerification(false)
		return Verification{Valid: false, Status: StatusRevoked}
	}
	v := DeriveStatus(rec, l.now())
	l.metrics.IncrementVerification(v.Valid)
	return v
}

// Details returns the full stored record.
func (l *Ledger) Details(_ context.Context, id uint64) (Record, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[id]
	if !ok {
		return Record{}, derrors.Newf(derrors.CodeNotFound, "identity %d not found", id)
	}
	return rec, nil
}

// LookupSubject returns the id registered for a subject, or zero when the
// subject has never been registered.
func (l *Ledger) LookupSubject(_ context.Context, subjectID string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.subjects[subjectID]
}

// Stats reports ledger counters for health aggregation.
func (l *Ledger) Stats(_ context.Context) Stats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Stats{
		TotalIdentities:  uint64(len(l.records)),
		ActiveIdentities: l.activeCount,
	}
}

// SetAuthority grants or revokes issuance authority. Owner-only; the owner's
// own authority is implicit and immutable.
func (l *Ledger) SetAuthority(ctx context.Context, principal string, enabled bool, caller string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		l.metrics.IncrementMutation("set_authority", string(derrors.CodeUnauthorized))
		return "", derrors.New(derrors.CodeUnauthorized, "only the registry owner may modify authorities")
	}
	if principal == "" {
		l.metrics.IncrementMutation("set_authority", string(derrors.CodeInvalidInput))
		return "", derrors.New(derrors.CodeInvalidInput, "principal is required")
	}
	if principal == l.owner {
		l.metrics.IncrementMutation("set_authority", string(derrors.CodeInvalidInput))
		return "", derrors.New(derrors.CodeInvalidInput, "owner is always authorized")
	}

	event := newEvent(EventAuthoritySet, 0, l.now())
	event.Principal = principal
	event.Enabled = enabled
	event.Caller = caller

	if err := l.commit(ctx, event); err != nil {
		l.metrics.IncrementMutation("set_authority", "journal_error")
		return "", err
	}
	l.metrics.IncrementMutation("set_authority", "ok")
	l.emitAudit(ctx, event)
	return event.Receipt, nil
}

// Pause blocks creation and mutation until Unpause. Owner-only, idempotent.
// Queries are unaffected.
func (l *Ledger) Pause(ctx context.Context, caller string) error {
	return l.setPaused(ctx, caller, true)
}

// Unpause lifts the mutation kill-switch. Owner-only, idempotent.
func (l *Ledger) Unpause(ctx context.Context, caller string) error {
	return l.setPaused(ctx, caller, false)
}

func (l *Ledger) setPaused(ctx context.Context, caller string, paused bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.owner {
		l.metrics.IncrementMutation("pause", string(derrors.CodeUnauthorized))
		return derrors.New(derrors.CodeUnauthorized, "only the registry owner may pause or unpause")
	}
	if l.paused == paused {
		return nil
	}

	typ := EventPaused
	if !paused {
		typ = EventUnpaused
	}
	event := newEvent(typ, 0, l.now())
	event.Caller = caller

	if err := l.commit(ctx, event); err != nil {
		l.metrics.IncrementMutation("pause", "journal_error")
		return err
	}
	l.metrics.IncrementMutation("pause", "ok")
	l.emitAudit(ctx, event)
	return nil
}

// BatchCreate bulk-issues records sharing one default expiry. Owner-only.
// Already-registered subjects are skipped silently and reported in the
// result; invalid entries reject the whole batch before any write.
func (l *Ledger) BatchCreate(ctx context.Context, entries []BatchEntry, caller string) (BatchResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result BatchResult
	if caller != l.owner {
		l.metrics.IncrementMutation("batch_create", string(derrors.CodeUnauthorized))
		return result, derrors.New(derrors.CodeUnauthorized, "only the registry owner may bulk-issue")
	}
	if l.paused {
		l.metrics.IncrementMutation("batch_create", string(derrors.CodePaused))
		return result, derrors.New(derrors.CodePaused, "registry is paused")
	}
	if len(entries) == 0 {
		l.metrics.IncrementMutation("batch_create", string(derrors.CodeInvalidInput))
		return result, derrors.New(derrors.CodeInvalidInput, "batch is empty")
	}
	for i, entry := range entries {
		if err := validateIssuance(entry.SubjectID, entry.DisplayName, entry.VerificationLevel); err != nil {
			l.metrics.IncrementMutation("batch_create", string(derrors.CodeOf(err)))
			return result, derrors.Wrap(err, derrors.CodeInvalidInput, "batch entry "+strconv.Itoa(i)+" invalid")
		}
	}

	now := l.now()
	expiresAt := now.Add(l.batchValidity)
	for _, entry := range entries {
		if _, exists := l.subjects[entry.SubjectID]; exists {
			result.SkippedSubjects = append(result.SkippedSubjects, entry.SubjectID)
			continue
		}
		rec := Record{
			ID:                l.nextID,
			SubjectID:         entry.SubjectID,
			DisplayName:       entry.DisplayName,
			IssuingAuthority:  caller,
			DocumentHash:      entry.DocumentHash,
			PersonalHash:      entry.PersonalHash,
			IssuedAt:          now,
			ExpiresAt:         expiresAt,
			Status:            StatusActive,
			VerificationLevel: entry.VerificationLevel,
		}
		event := newEvent(EventIdentityCreated, rec.ID, now)
		event.Record = rec
		event.SubjectID = rec.SubjectID
		event.Caller = caller

		if err := l.commit(ctx, event); err != nil {
			l.metrics.IncrementMutation("batch_create", "journal_error")
			return result, err
		}
		l.emitAudit(ctx, event)
		result.CreatedIDs = append(result.CreatedIDs, rec.ID)
	}
	l.metrics.IncrementMutation("batch_create", "ok")
	if l.logger != nil {
		l.logger.InfoContext(ctx, "batch issuance completed",
			"created", len(result.CreatedIDs),
			"skipped", len(result.SkippedSubjects),
		)
	}
	return result, nil
}

// checkMutable enforces the shared mutation preconditions: authorized caller,
// registry not paused.
func (l *Ledger) checkMutable(caller string, ownerOnly bool) error {
	if ownerOnly && caller != l.owner {
		return derrors.New(derrors.CodeUnauthorized, "owner-only operation")
	}
	if caller != l.owner && !l.authorities[caller] {
		return derrors.Newf(derrors.CodeUnauthorized, "principal %q is not an authorized issuer", caller)
	}
	if l.paused {
		return derrors.New(derrors.CodePaused, "registry is paused")
	}
	return nil
}

func validateIssuance(subjectID, displayName string, level int) error {
	if subjectID == "" {
		return derrors.New(derrors.CodeInvalidInput, "subject id is required")
	}
	if displayName == "" {
		return derrors.New(derrors.CodeInvalidInput, "display name is required")
	}
	if level < MinVerificationLevel || level > MaxVerificationLevel {
		return derrors.Newf(derrors.CodeInvalidInput, "verification level %d outside [%d,%d]", level, MinVerificationLevel, MaxVerificationLevel)
	}
	return nil
}

// commit journals the event, then applies it to in-memory state. Mutations
// become visible only after the journal accepted them.
func (l *Ledger) commit(ctx context.Context, event Event) error {
	if l.journal != nil {
		start := time.Now()
		if err := l.journal.Append(ctx, event); err != nil {
			if l.logger != nil {
				l.logger.ErrorContext(ctx, "journal append failed",
					"event_type", string(event.Type),
					"id", event.ID,
					"error", err,
				)
			}
			return derrors.Wrap(err, derrors.CodeInternal, "journal append failed")
		}
		l.metrics.ObserveJournalAppend(time.Since(start))
	}
	l.apply(event)
	l.syncCounters()
	return nil
}

// apply replays one event onto in-memory state. Used both for live commits
// and boot-time journal replay, so it must be deterministic and must not
// journal, log, or emit.
func (l *Ledger) apply(event Event) {
	switch event.Type {
	case EventIdentityCreated:
		rec := event.Record
		l.records[rec.ID] = rec
		l.subjects[rec.SubjectID] = rec.ID
		if rec.ID >= l.nextID {
			l.nextID = rec.ID + 1
		}
		if rec.Status == StatusActive {
			l.activeCount++
		}
	case EventStatusChanged:
		rec, ok := l.records[event.ID]
		if !ok {
			return
		}
		if rec.Status == StatusActive && event.NewStatus != StatusActive {
			l.activeCount--
		}
		if rec.Status != StatusActive && event.NewStatus == StatusActive {
			l.activeCount++
		}
		rec.Status = event.NewStatus
		l.records[event.ID] = rec
	case EventIdentityRenewed:
		rec, ok := l.records[event.ID]
		if !ok {
			return
		}
		rec.ExpiresAt = event.ExpiresAt
		if rec.Status == StatusExpired {
			rec.Status = StatusActive
			l.activeCount++
		}
		l.records[event.ID] = rec
	case EventAuthoritySet:
		if event.Enabled {
			l.authorities[event.Principal] = true
		} else {
			delete(l.authorities, event.Principal)
		}
	case EventPaused:
		l.paused = true
	case EventUnpaused:
		l.paused = false
	}
}

func (l *Ledger) syncCounters() {
	l.metrics.SetCounters(uint64(len(l.records)), l.activeCount)
}

func (l *Ledger) emitAudit(ctx context.Context, event Event) {
	if l.audit == nil {
		return
	}
	l.audit.Emit(ctx, audit.Event{
		Type:      string(event.Type),
		RecordID:  event.ID,
		SubjectID: event.SubjectID,
		Principal: event.Caller,
		Receipt:   event.Receipt,
		Timestamp: event.OccurredAt,
	})
}
