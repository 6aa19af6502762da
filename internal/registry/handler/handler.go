// Package handler exposes the identity ledger over HTTP. Mutations require
// an authenticated principal; validity queries are open so any verifier can
// check a credential.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"attestor/internal/registry"
	derrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/requestcontext"
)

// Ledger defines the registry operations the handler depends on.
type Ledger interface {
	CreateIdentity(ctx context.Context, params registry.CreateParams, caller string) (uint64, string, error)
	BatchCreate(ctx context.Context, entries []registry.BatchEntry, caller string) (registry.BatchResult, error)
	UpdateStatus(ctx context.Context, id uint64, newStatus registry.Status, caller string) (string, error)
	Renew(ctx context.Context, id uint64, newExpiresAt time.Time, caller string) (string, error)
	Verify(ctx context.Context, id uint64) registry.Verification
	Details(ctx context.Context, id uint64) (registry.Record, error)
	LookupSubject(ctx context.Context, subjectID string) uint64
	SetAuthority(ctx context.Context, principal string, enabled bool, caller string) (string, error)
	Pause(ctx context.Context, caller string) error
	Unpause(ctx context.Context, caller string) error
	Stats(ctx context.Context) registry.Stats
	IsPaused() bool
}

// Handler wires registry endpoints to the ledger.
type Handler struct {
	ledger Ledger
	logger *slog.Logger
}

// New constructs a registry handler.
func New(ledger Ledger, logger *slog.Logger) *Handler {
	return &Handler{ledger: ledger, logger: logger}
}

// Register mounts registry endpoints. requireAuth guards every mutation;
// queries stay open.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/registry", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/identities", h.HandleCreate)
			r.Post("/identities/batch", h.HandleBatchCreate)
			r.Post("/identities/{id}/status", h.HandleUpdateStatus)
			r.Post("/identities/{id}/renew", h.HandleRenew)
			r.Put("/authorities/{principal}", h.HandleSetAuthority)
			r.Post("/pause", h.HandlePause)
			r.Post("/unpause", h.HandleUnpause)
		})

		r.Get("/identities/{id}", h.HandleDetails)
		r.Get("/identities/{id}/verification", h.HandleVerify)
		r.Get("/subjects/{subjectID}", h.HandleLookupSubject)
		r.Get("/stats", h.HandleStats)
	})
}

func recordID(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, derrors.Newf(derrors.CodeBadRequest, "invalid record id %q", raw)
	}
	return id, nil
}

// HandleCreate handles POST /registry/identities.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateIdentityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Principal(ctx)
	id, receipt, err := h.ledger.CreateIdentity(ctx, req.ToParams(), caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "identity creation failed",
			"request_id", requestID,
			"subject_id", req.SubjectID,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "identity creation handled",
		"request_id", requestID,
		"id", id,
		"caller", caller,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateResponse{ID: id, Receipt: receipt})
}

// HandleBatchCreate handles POST /registry/identities/batch.
func (h *Handler) HandleBatchCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[BatchCreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Principal(ctx)
	result, err := h.ledger.BatchCreate(ctx, req.ToEntries(), caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "batch issuance failed",
			"request_id", requestID,
			"entries", len(req.Entries),
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "batch issuance handled",
		"request_id", requestID,
		"created", len(result.CreatedIDs),
		"skipped", len(result.SkippedSubjects),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, result)
}

// HandleUpdateStatus handles POST /registry/identities/{id}/status.
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Principal(ctx)
	receipt, err := h.ledger.UpdateStatus(ctx, id, req.Status, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "status transition failed",
			"request_id", requestID,
			"id", id,
			"new_status", req.Status.String(),
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MutationResponse{ID: id, Receipt: receipt})
}

// HandleRenew handles POST /registry/identities/{id}/renew.
func (h *Handler) HandleRenew(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RenewRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Principal(ctx)
	receipt, err := h.ledger.Renew(ctx, id, req.ExpiresAt, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "renewal failed",
			"request_id", requestID,
			"id", id,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, MutationResponse{ID: id, Receipt: receipt})
}

// HandleDetails handles GET /registry/identities/{id}.
func (h *Handler) HandleDetails(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rec, err := h.ledger.Details(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

// HandleVerify handles GET /registry/identities/{id}/verification.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	id, err := recordID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v := h.ledger.Verify(r.Context(), id)
	httputil.WriteJSON(w, http.StatusOK, FromVerification(v))
}

// HandleLookupSubject handles GET /registry/subjects/{subjectID}.
func (h *Handler) HandleLookupSubject(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	id := h.ledger.LookupSubject(r.Context(), subjectID)
	if id == 0 {
		httputil.WriteError(w, derrors.Newf(derrors.CodeNotFound, "subject %q is not registered", subjectID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LookupResponse{SubjectID: subjectID, ID: id})
}

// HandleSetAuthority handles PUT /registry/authorities/{principal}.
func (h *Handler) HandleSetAuthority(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principal := chi.URLParam(r, "principal")
	req, ok := httputil.DecodeAndPrepare[SetAuthorityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	caller := requestcontext.Principal(ctx)
	receipt, err := h.ledger.SetAuthority(ctx, principal, req.Enabled, caller)
	if err != nil {
		h.logger.ErrorContext(ctx, "authority change failed",
			"request_id", requestID,
			"principal", principal,
			"enabled", req.Enabled,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "authority changed",
		"request_id", requestID,
		"principal", principal,
		"enabled", req.Enabled,
		"caller", caller,
	)
	httputil.WriteJSON(w, http.StatusOK, AuthorityResponse{Principal: principal, Enabled: req.Enabled, Receipt: receipt})
}

// HandlePause handles POST /registry/pause.
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, true)
}

// HandleUnpause handles POST /registry/unpause.
func (h *Handler) HandleUnpause(w http.ResponseWriter, r *http.Request) {
	h.togglePause(w, r, false)
}

func (h *Handler) togglePause(w http.ResponseWriter, r *http.Request, pause bool) {
	ctx := r.Context()
	caller := requestcontext.Principal(ctx)

	var err error
	if pause {
		err = h.ledger.Pause(ctx, caller)
	} else {
		err = h.ledger.Unpause(ctx, caller)
	}
	if err != nil {
		h.logger.ErrorContext(ctx, "pause toggle failed",
			"request_id", requestcontext.RequestID(ctx),
			"pause", pause,
			"caller", caller,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "pause state changed",
		"request_id", requestcontext.RequestID(ctx),
		"paused", pause,
		"caller", caller,
	)
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"paused": pause})
}

// HandleStats handles GET /registry/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.ledger.Stats(r.Context())
	httputil.WriteJSON(w, http.StatusOK, StatsResponse{
		TotalIdentities:  stats.TotalIdentities,
		ActiveIdentities: stats.ActiveIdentities,
		Paused:           h.ledger.IsPaused(),
	})
}
