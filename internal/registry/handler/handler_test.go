package handler_test

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attestor/internal/registry"
	"attestor/internal/registry/handler"
	"attestor/pkg/platform/middleware/auth"
	"attestor/pkg/testutil"
)

const owner = "did:gov:root"

var secret = []byte("handler-test-secret")

func newServer(t *testing.T, opts ...registry.Option) (http.Handler, *registry.Ledger) {
	t.Helper()
	ledger := registry.New(owner, opts...)
	h := handler.New(ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	h.Register(r, auth.RequirePrincipal(auth.NewVerifier(secret), nil))
	return r, ledger
}

func bearer(t *testing.T, principal string) string {
	t.Helper()
	token, err := auth.SignToken(secret, principal, time.Minute)
	require.NoError(t, err)
	return "Bearer " + token
}

func createBody() handler.CreateIdentityRequest {
	return handler.CreateIdentityRequest{
		SubjectID:    "subj-1001",
		DisplayName:  "Ada Lovelace",
		DocumentType: "passport",
		DocumentHash: "0xabc",
		ExpiresAt:    time.Now().Add(365 * 24 * time.Hour),
	}
}

func TestHandleCreate(t *testing.T) {
	t.Run("issues a record", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		req.Header.Set("Authorization", bearer(t, owner))

		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[handler.CreateResponse](t, rr)
		assert.Equal(t, uint64(1), resp.ID)
		assert.NotEmpty(t, resp.Receipt)
	})

	t.Run("defaults verification level from document type", func(t *testing.T) {
		srv, ledger := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		req.Header.Set("Authorization", bearer(t, owner))
		testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

		rec, err := ledger.Details(req.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, 4, rec.VerificationLevel)
	})

	t.Run("requires a bearer token", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthenticated")
	})

	t.Run("duplicate subject conflicts", func(t *testing.T) {
		srv, _ := newServer(t)
		for range 2 {
			req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
			req.Header.Set("Authorization", bearer(t, owner))
			rr := testutil.DoRequest(srv, req)
			if rr.Code != http.StatusCreated {
				testutil.AssertStatusAndError(t, rr, http.StatusConflict, "duplicate_subject")
			}
		}
	})

	t.Run("unauthorized principal is forbidden", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		req.Header.Set("Authorization", bearer(t, "did:gov:stranger"))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
	})

	t.Run("malformed body is a bad request", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewRequest(t, http.MethodPost, "/registry/identities")
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	t.Run("transitions a record", func(t *testing.T) {
		srv, ledger := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		req.Header.Set("Authorization", bearer(t, owner))
		testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

		req = testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/1/status", handler.UpdateStatusRequest{Status: registry.StatusSuspended})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rec, err := ledger.Details(req.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusSuspended, rec.Status)
	})

	t.Run("no-op transition conflicts", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
		req.Header.Set("Authorization", bearer(t, owner))
		testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

		req = testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/1/status", handler.UpdateStatusRequest{Status: registry.StatusActive})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "no_op_transition")
	})

	t.Run("unknown record is not found", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/42/status", handler.UpdateStatusRequest{Status: registry.StatusRevoked})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("garbage id is a bad request", func(t *testing.T) {
		srv, _ := newServer(t)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/abc/status", handler.UpdateStatusRequest{Status: registry.StatusRevoked})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestHandleRenew(t *testing.T) {
	srv, ledger := newServer(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

	t.Run("extends expiry", func(t *testing.T) {
		newExpiry := time.Now().Add(2 * 365 * 24 * time.Hour)
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/1/renew", handler.RenewRequest{ExpiresAt: newExpiry})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		rec, err := ledger.Details(req.Context(), 1)
		require.NoError(t, err)
		assert.WithinDuration(t, newExpiry, rec.ExpiresAt, time.Second)
	})

	t.Run("stale expiry is rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities/1/renew", handler.RenewRequest{ExpiresAt: time.Now().Add(-time.Hour)})
		req.Header.Set("Authorization", bearer(t, owner))
		rr := testutil.DoRequest(srv, req)
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "invalid_expiry")
	})
}

func TestHandleVerifyAndDetails(t *testing.T) {
	srv, _ := newServer(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

	t.Run("verification is open to anyone", func(t *testing.T) {
		rr := testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/identities/1/verification"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[handler.VerificationResponse](t, rr)
		assert.True(t, resp.Valid)
		assert.Equal(t, "active", resp.StatusLabel)
	})

	t.Run("missing record verifies as revoked", func(t *testing.T) {
		rr := testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/identities/999/verification"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[handler.VerificationResponse](t, rr)
		assert.False(t, resp.Valid)
		assert.Equal(t, registry.StatusRevoked, resp.Status)
	})

	t.Run("details returns the stored record", func(t *testing.T) {
		rr := testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/identities/1"))
		testutil.AssertStatus(t, rr, http.StatusOK)
		rec := testutil.UnmarshalResponse[registry.Record](t, rr)
		assert.Equal(t, "subj-1001", rec.SubjectID)
	})

	t.Run("details for missing record is not found", func(t *testing.T) {
		rr := testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/identities/999"))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestHandleLookupSubject(t *testing.T) {
	srv, _ := newServer(t)
	req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

	rr := testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/subjects/subj-1001"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	resp := testutil.UnmarshalResponse[handler.LookupResponse](t, rr)
	assert.Equal(t, uint64(1), resp.ID)

	rr = testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/subjects/subj-unknown"))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestHandleSetAuthority(t *testing.T) {
	srv, _ := newServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPut, "/registry/authorities/did:gov:clerk", handler.SetAuthorityRequest{Enabled: true})
	req.Header.Set("Authorization", bearer(t, owner))
	rr := testutil.DoRequest(srv, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	// granted principal can now issue
	req = testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
	req.Header.Set("Authorization", bearer(t, "did:gov:clerk"))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

	// non-owner may not change the set
	req = testutil.NewJSONRequest(t, http.MethodPut, "/registry/authorities/did:gov:other", handler.SetAuthorityRequest{Enabled: true})
	req.Header.Set("Authorization", bearer(t, "did:gov:clerk"))
	rr = testutil.DoRequest(srv, req)
	testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "unauthorized")
}

func TestHandlePauseAndStats(t *testing.T) {
	srv, _ := newServer(t)

	req := testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", createBody())
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)

	req = testutil.NewRequest(t, http.MethodPost, "/registry/pause")
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusOK)

	// mutation blocked while paused
	body := createBody()
	body.SubjectID = "subj-1002"
	req = testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", body)
	req.Header.Set("Authorization", bearer(t, owner))
	rr := testutil.DoRequest(srv, req)
	testutil.AssertStatusAndError(t, rr, http.StatusServiceUnavailable, "paused")

	// queries still served
	rr = testutil.DoRequest(srv, testutil.NewRequest(t, http.MethodGet, "/registry/stats"))
	testutil.AssertStatus(t, rr, http.StatusOK)
	stats := testutil.UnmarshalResponse[handler.StatsResponse](t, rr)
	assert.Equal(t, uint64(1), stats.TotalIdentities)
	assert.Equal(t, uint64(1), stats.ActiveIdentities)
	assert.True(t, stats.Paused)

	req = testutil.NewRequest(t, http.MethodPost, "/registry/unpause")
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusOK)

	req = testutil.NewJSONRequest(t, http.MethodPost, "/registry/identities", body)
	req.Header.Set("Authorization", bearer(t, owner))
	testutil.AssertStatus(t, testutil.DoRequest(srv, req), http.StatusCreated)
}
