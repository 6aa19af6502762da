package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"attestor/internal/registry"
	"attestor/internal/registry/handler"
	derrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/middleware/auth"
	"attestor/pkg/platform/sentinel"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultPingTimeout = 5 * time.Second
	tokenTTL           = 2 * time.Minute
)

// HTTP talks to a remote registry service. Transport failures and 5xx
// responses surface as sentinel.ErrUnavailable; registry rejections round-trip
// as coded domain errors.
type HTTP struct {
	baseURL     string
	principal   string
	secret      []byte
	client      *http.Client
	pingTimeout time.Duration
}

// HTTPOption configures the HTTP client.
type HTTPOption func(*HTTP)

// WithHTTPClient overrides the underlying http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

// WithPingTimeout overrides the health probe timeout.
func WithPingTimeout(d time.Duration) HTTPOption {
	return func(h *HTTP) { h.pingTimeout = d }
}

// NewHTTP constructs a registry client. Each request carries a short-lived
// bearer token minted for the configured principal.
func NewHTTP(baseURL, principal string, secret []byte, opts ...HTTPOption) *HTTP {
	h := &HTTP{
		baseURL:     strings.TrimRight(baseURL, "/"),
		principal:   principal,
		secret:      secret,
		client:      &http.Client{Timeout: defaultTimeout},
		pingTimeout: defaultPingTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) Endpoint() string { return h.baseURL }

func (h *HTTP) CreateIdentity(ctx context.Context, params registry.CreateParams) (CreateResult, error) {
	body := handler.CreateIdentityRequest{
		SubjectID:         params.SubjectID,
		DisplayName:       params.DisplayName,
		DocumentHash:      params.DocumentHash,
		PersonalHash:      params.PersonalHash,
		ExpiresAt:         params.ExpiresAt,
		VerificationLevel: params.VerificationLevel,
	}
	var resp handler.CreateResponse
	if err := h.do(ctx, http.MethodPost, "/registry/identities", body, &resp); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{ID: resp.ID, Receipt: resp.Receipt}, nil
}

func (h *HTTP) UpdateStatus(ctx context.Context, id uint64, status registry.Status) (string, error) {
	var resp handler.MutationResponse
	path := "/registry/identities/" + strconv.FormatUint(id, 10) + "/status"
	if err := h.do(ctx, http.MethodPost, path, handler.UpdateStatusRequest{Status: status}, &resp); err != nil {
		return "", err
	}
	return resp.Receipt, nil
}

func (h *HTTP) Renew(ctx context.Context, id uint64, expiresAt time.Time) (string, error) {
	var resp handler.MutationResponse
	path := "/registry/identities/" + strconv.FormatUint(id, 10) + "/renew"
	if err := h.do(ctx, http.MethodPost, path, handler.RenewRequest{ExpiresAt: expiresAt}, &resp); err != nil {
		return "", err
	}
	return resp.Receipt, nil
}

func (h *HTTP) Verify(ctx context.Context, id uint64) (registry.Verification, error) {
	var resp handler.VerificationResponse
	path := "/registry/identities/" + strconv.FormatUint(id, 10) + "/verification"
	if err := h.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return registry.Verification{}, err
	}
	return registry.Verification{Valid: resp.Valid, Status: resp.Status}, nil
}

func (h *HTTP) Details(ctx context.Context, id uint64) (registry.Record, error) {
	var rec registry.Record
	path := "/registry/identities/" + strconv.FormatUint(id, 10)
	if err := h.do(ctx, http.MethodGet, path, nil, &rec); err != nil {
		return registry.Record{}, err
	}
	return rec, nil
}

// LookupSubject returns zero for unregistered subjects, matching the ledger
// contract.
func (h *HTTP) LookupSubject(ctx context.Context, subjectID string) (uint64, error) {
	var resp handler.LookupResponse
	err := h.do(ctx, http.MethodGet, "/registry/subjects/"+subjectID, nil, &resp)
	if derrors.HasCode(err, derrors.CodeNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (h *HTTP) Stats(ctx context.Context) (registry.Stats, error) {
	var resp handler.StatsResponse
	if err := h.do(ctx, http.MethodGet, "/registry/stats", nil, &resp); err != nil {
		return registry.Stats{}, err
	}
	return registry.Stats{
		TotalIdentities:  resp.TotalIdentities,
		ActiveIdentities: resp.ActiveIdentities,
	}, nil
}

// Ping probes the registry health endpoint with a short deadline.
func (h *HTTP) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ping: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned %d", sentinel.ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (h *HTTP) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := auth.SignToken(h.secret, h.principal, tokenTTL)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", sentinel.ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		derr := decodeError(resp)
		// A coded rejection (paused, duplicate_subject, ...) is a registry
		// answer, not an outage. Only unexplained 5xx reads as unavailable.
		if resp.StatusCode >= http.StatusInternalServerError && derrors.CodeOf(derr) == derrors.CodeInternal {
			return fmt.Errorf("%w: registry returned %d", sentinel.ErrUnavailable, resp.StatusCode)
		}
		return derr
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// decodeError reconstructs a coded domain error from the JSON envelope.
func decodeError(resp *http.Response) error {
	var envelope struct {
		Code        string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Code == "" {
		return derrors.Newf(derrors.CodeInternal, "registry returned %d", resp.StatusCode)
	}
	return derrors.New(derrors.Code(envelope.Code), envelope.Description)
}
