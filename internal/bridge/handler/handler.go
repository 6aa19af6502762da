// Package handler exposes the bridge's public API. No authentication: the
// bridge signs its own registry writes with a service credential, and
// verification is open by design.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"attestor/internal/bridge"
	derrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/platform/middleware/metadata"
	"attestor/pkg/requestcontext"
)

// Service defines the bridge operations the handler depends on.
type Service interface {
	Issue(ctx context.Context, req bridge.IssueRequest) (bridge.IssueResponse, error)
	Verify(ctx context.Context, id uint64) (bridge.VerifyResponse, error)
	Health(ctx context.Context) bridge.HealthResponse
}

// Handler wires bridge endpoints to the bridge service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a bridge handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts bridge endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/v1/credentials", func(r chi.Router) {
		r.Post("/", h.HandleIssue)
		r.Get("/{id}/verify", h.HandleVerify)
	})
	r.Get("/healthz", h.HandleHealth)
}

// HandleIssue handles POST /api/v1/credentials.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[bridge.IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	resp, err := h.service.Issue(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "issuance rejected",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "issuance handled",
		"request_id", requestID,
		"id", resp.ID,
		"status", resp.Status,
		"on_chain", resp.OnChain,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	status := http.StatusCreated
	if resp.Status == bridge.StatusExists {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, resp)
}

// HandleVerify handles GET /api/v1/credentials/{id}/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		httputil.WriteError(w, derrors.Newf(derrors.CodeBadRequest, "invalid credential id %q", raw))
		return
	}

	resp, err := h.service.Verify(ctx, id)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestID,
			"id", id,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification handled",
		"request_id", requestID,
		"id", id,
		"valid", resp.Valid,
		"on_chain", resp.OnChain,
		"scan_source", metadata.GetScanSource(ctx),
		"client_ip", metadata.GetClientIP(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleHealth handles GET /healthz. Degraded connectivity is reported in the
// body, not the status code, so load balancers keep routing to the bridge
// while it serves fallback responses.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Health(r.Context()))
}
