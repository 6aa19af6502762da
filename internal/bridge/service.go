package bridge

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"attestor/internal/bridge/cache"
	"attestor/internal/bridge/fallback"
	"attestor/internal/bridge/metrics"
	"attestor/internal/bridge/scanpayload"
	"attestor/internal/registry"
	"attestor/internal/registry/client"
	"attestor/pkg/credhash"
	derrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/circuit"
	"attestor/pkg/platform/sentinel"
)

// DefaultValidity is the expiry window applied when the caller supplies no
// validity date.
const DefaultValidity = 365 * 24 * time.Hour

// Service orchestrates registry calls for issuance and verification.
// Validation and authorization failures surface as errors; connectivity and
// unexpected registry failures never do - those paths return fallback-flagged
// responses instead.
type Service struct {
	registry client.Client
	breaker  *circuit.Breaker
	logger   *slog.Logger
	metrics  *metrics.Metrics
	cache    *cache.VerifyCache
	tracer   trace.Tracer

	verifyBaseURL   string
	defaultValidity time.Duration
	now             func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithMetrics attaches prometheus metrics.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithCache attaches a verification cache.
func WithCache(c *cache.VerifyCache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

// WithBreaker overrides the default circuit breaker.
func WithBreaker(b *circuit.Breaker) ServiceOption {
	return func(s *Service) { s.breaker = b }
}

// WithDefaultValidity overrides the default expiry window.
func WithDefaultValidity(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.defaultValidity = d
		}
	}
}

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService constructs the bridge service. verifyBaseURL is the public URL
// prefix embedded in scan payloads.
func NewService(registryClient client.Client, logger *slog.Logger, verifyBaseURL string, opts ...ServiceOption) *Service {
	s := &Service{
		registry:        registryClient,
		breaker:         circuit.New("registry"),
		logger:          logger,
		tracer:          otel.Tracer("attestor/bridge"),
		verifyBaseURL:   verifyBaseURL,
		defaultValidity: DefaultValidity,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// absorbable reports whether a registry failure should be absorbed into a
// fallback response. Coded domain rejections reach the caller; connectivity
// trouble and anything unexplained never do.
func absorbable(err error) bool {
	if errors.Is(err, sentinel.ErrUnavailable) {
		return true
	}
	switch derrors.CodeOf(err) {
	case derrors.CodeUnavailable, derrors.CodeTimeout, derrors.CodeInternal:
		return true
	}
	return false
}

func (s *Service) recordFailure(ctx context.Context, err error) {
	if _, change := s.breaker.RecordFailure(); change.Opened {
		s.logger.ErrorContext(ctx, "registry circuit opened",
			"endpoint", s.registry.Endpoint(),
			"error", err,
		)
		s.metrics.SetBreakerOpen(true)
	}
}

func (s *Service) recordSuccess(ctx context.Context) {
	_, change := s.breaker.RecordSuccess()
	if change.Closed {
		s.logger.InfoContext(ctx, "registry circuit closed",
			"endpoint", s.registry.Endpoint(),
		)
		s.metrics.SetBreakerOpen(false)
	}
}

// Issue handles an issuance request end to end.
func (s *Service) Issue(ctx context.Context, req IssueRequest) (IssueResponse, error) {
	ctx, span := s.tracer.Start(ctx, "bridge.Issue",
		trace.WithAttributes(attribute.String("subject_id", req.SubjectID)))
	defer span.End()

	if req.SubjectID == "" {
		s.metrics.IncrementIssuance("rejected")
		return IssueResponse{}, derrors.New(derrors.CodeInvalidInput, "subject_id is required")
	}
	if req.Name == "" {
		s.metrics.IncrementIssuance("rejected")
		return IssueResponse{}, derrors.New(derrors.CodeInvalidInput, "name is required")
	}

	now := s.now()
	if s.breaker.IsOpen() {
		return s.fallbackIssuance(ctx, now)
	}

	documentHash := req.DocumentHash
	if documentHash == "" {
		documentHash = credhash.DocumentDigest(req.DocumentType, req.DocumentNumber)
	}
	expiresAt := now.Add(s.defaultValidity)
	if req.ValidUntil != nil {
		expiresAt = *req.ValidUntil
	}
	params := registry.CreateParams{
		SubjectID:         req.SubjectID,
		DisplayName:       req.Name,
		DocumentHash:      documentHash,
		PersonalHash:      credhash.PersonalDigest(req.Name, req.SubjectID, now),
		ExpiresAt:         expiresAt,
		VerificationLevel: registry.LevelForDocument(req.DocumentType),
	}

	start := time.Now()
	result, err := s.registry.CreateIdentity(ctx, params)
	s.metrics.ObserveRegistryCall("create", time.Since(start))

	switch {
	case err == nil:
		s.recordSuccess(ctx)
	case derrors.HasCode(err, derrors.CodeDuplicateSubject):
		s.recordSuccess(ctx)
		return s.existsResponse(ctx, req.SubjectID, now)
	case absorbable(err):
		s.recordFailure(ctx, err)
		s.logger.ErrorContext(ctx, "issuance degraded to fallback",
			"subject_id", req.SubjectID,
			"error", err,
		)
		return s.fallbackIssuance(ctx, now)
	default:
		s.metrics.IncrementIssuance("rejected")
		return IssueResponse{}, err
	}

	idStr := strconv.FormatUint(result.ID, 10)
	payload, err := scanpayload.Encode(idStr, s.verifyBaseURL, now)
	if err != nil {
		return IssueResponse{}, derrors.Wrap(err, derrors.CodeInternal, "encode scan payload")
	}

	s.metrics.IncrementIssuance("created")
	s.logger.InfoContext(ctx, "credential issued",
		"id", result.ID,
		"subject_id", req.SubjectID,
		"receipt", result.Receipt,
	)
	return IssueResponse{
		ID:                 idStr,
		ScanPayload:        payload,
		Status:             StatusCreated,
		ExpiresAt:          expiresAt,
		OnChain:            true,
		TransactionReceipt: result.Receipt,
		VerificationLevel:  params.VerificationLevel,
	}, nil
}

// existsResponse resolves a duplicate-subject rejection into an "exists"
// response built from the stored record.
func (s *Service) existsResponse(ctx context.Context, subjectID string, now time.Time) (IssueResponse, error) {
	id, err := s.registry.LookupSubject(ctx, subjectID)
	if err != nil || id == 0 {
		if err != nil && absorbable(err) {
			s.recordFailure(ctx, err)
			return s.fallbackIssuance(ctx, now)
		}
		return IssueResponse{}, derrors.Newf(derrors.CodeInternal, "subject %q registered but not resolvable", subjectID)
	}
	rec, err := s.registry.Details(ctx, id)
	if err != nil {
		if absorbable(err) {
			s.recordFailure(ctx, err)
			return s.fallbackIssuance(ctx, now)
		}
		return IssueResponse{}, err
	}

	idStr := strconv.FormatUint(rec.ID, 10)
	payload, err := scanpayload.Encode(idStr, s.verifyBaseURL, rec.IssuedAt)
	if err != nil {
		return IssueResponse{}, derrors.Wrap(err, derrors.CodeInternal, "encode scan payload")
	}

	s.metrics.IncrementIssuance("exists")
	s.logger.InfoContext(ctx, "issuance resolved to existing record",
		"id", rec.ID,
		"subject_id", subjectID,
	)
	return IssueResponse{
		ID:                idStr,
		ScanPayload:       payload,
		Status:            StatusExists,
		ExpiresAt:         rec.ExpiresAt,
		OnChain:           true,
		VerificationLevel: rec.VerificationLevel,
	}, nil
}

func (s *Service) fallbackIssuance(ctx context.Context, now time.Time) (IssueResponse, error) {
	fb := fallback.ForIssuance(now, s.defaultValidity)
	payload, err := scanpayload.Encode(fb.ID, s.verifyBaseURL, now)
	if err != nil {
		return IssueResponse{}, derrors.Wrap(err, derrors.CodeInternal, "encode scan payload")
	}
	s.metrics.IncrementIssuance("fallback")
	s.logger.WarnContext(ctx, "issued fallback credential", "fallback_id", fb.ID)
	return IssueResponse{
		ID:          fb.ID,
		ScanPayload: payload,
		Status:      StatusCreated,
		ExpiresAt:   fb.ExpiresAt,
		OnChain:     fb.OnChain,
		Fallback:    fb.Fallback,
	}, nil
}

// Verify handles a verification request.
func (s *Service) Verify(ctx context.Context, id uint64) (VerifyResponse, error) {
	ctx, span := s.tracer.Start(ctx, "bridge.Verify",
		trace.WithAttributes(attribute.Int64("id", int64(id))))
	defer span.End()

	var cached VerifyResponse
	if s.cache.Get(ctx, id, &cached) {
		s.metrics.IncrementVerification(verifyOutcome(cached))
		return cached, nil
	}

	if s.breaker.IsOpen() {
		return s.fallbackVerification(ctx, id), nil
	}

	start := time.Now()
	v, err := s.registry.Verify(ctx, id)
	s.metrics.ObserveRegistryCall("verify", time.Since(start))
	if err != nil {
		if absorbable(err) {
			s.recordFailure(ctx, err)
			s.logger.ErrorContext(ctx, "verification degraded to fallback",
				"id", id,
				"error", err,
			)
			return s.fallbackVerification(ctx, id), nil
		}
		return VerifyResponse{}, err
	}
	s.recordSuccess(ctx)

	resp := VerifyResponse{
		ID:      id,
		Valid:   v.Valid,
		Status:  statusPtr(v.Status),
		OnChain: true,
	}
	if v.Valid {
		rec, err := s.registry.Details(ctx, id)
		switch {
		case err == nil:
			resp.SubjectID = rec.SubjectID
			resp.Name = rec.DisplayName
			resp.IssuedAt = timePtr(rec.IssuedAt)
			resp.ExpiresAt = timePtr(rec.ExpiresAt)
			resp.VerificationLevel = rec.VerificationLevel
			resp.Authority = rec.IssuingAuthority
		case absorbable(err):
			s.recordFailure(ctx, err)
			return s.fallbackVerification(ctx, id), nil
		default:
			return VerifyResponse{}, err
		}
	} else {
		resp.Reason = invalidityReason(v.Status)
	}

	s.cache.Set(ctx, id, resp)
	s.metrics.IncrementVerification(verifyOutcome(resp))
	return resp, nil
}

func (s *Service) fallbackVerification(ctx context.Context, id uint64) VerifyResponse {
	fb := fallback.ForVerification(id)
	s.metrics.IncrementVerification("fallback")
	s.logger.WarnContext(ctx, "verification answered by fallback", "id", id)
	return VerifyResponse{
		ID:       fb.ID,
		Valid:    fb.Valid,
		OnChain:  fb.OnChain,
		Fallback: fb.Fallback,
	}
}

func invalidityReason(status registry.Status) string {
	switch status {
	case registry.StatusExpired:
		return ReasonExpired
	case registry.StatusSuspended:
		return ReasonSuspended
	default:
		return ReasonInvalid
	}
}

func verifyOutcome(resp VerifyResponse) string {
	switch {
	case resp.Fallback:
		return "fallback"
	case resp.Valid:
		return "valid"
	default:
		return "invalid"
	}
}

// Health reports registry connectivity and, when reachable, ledger counters.
// The probe doubles as the breaker's recovery signal.
func (s *Service) Health(ctx context.Context) HealthResponse {
	ctx, span := s.tracer.Start(ctx, "bridge.Health")
	defer span.End()

	resp := HealthResponse{
		RegistryEndpoint: s.registry.Endpoint(),
	}
	if err := s.registry.Ping(ctx); err != nil {
		s.recordFailure(ctx, err)
		resp.Status = "degraded"
		resp.RegistryConnected = false
		return resp
	}
	s.recordSuccess(ctx)
	resp.RegistryConnected = true
	resp.Status = "healthy"

	if stats, err := s.registry.Stats(ctx); err == nil {
		resp.TotalIdentities = &stats.TotalIdentities
		resp.ActiveIdentities = &stats.ActiveIdentities
	}
	return resp
}
