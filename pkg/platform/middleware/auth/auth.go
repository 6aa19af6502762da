// Package auth authenticates API callers with HS256 bearer tokens. The token
// subject is the principal name checked against the ledger's authority set;
// authentication here only establishes who is calling, authorization stays in
// the ledger.
package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	derrors "attestor/pkg/domain-errors"
	"attestor/pkg/platform/httputil"
	"attestor/pkg/requestcontext"
)

// Verifier validates bearer tokens against a shared HS256 secret.
type Verifier struct {
	secret []byte
}

// NewVerifier constructs a Verifier.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Principal validates the token and returns its subject.
func (v *Verifier) Principal(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString,
		func(t *jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}

// SignToken mints a short-lived bearer token for the given principal. Used by
// service clients and by operators issuing tokens out of band.
func SignToken(secret []byte, principal string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   principal,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	return token.SignedString(secret)
}

// RequirePrincipal rejects requests without a valid bearer token and stores
// the authenticated principal in the request context.
func RequirePrincipal(verifier *Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				if logger != nil {
					logger.WarnContext(ctx, "unauthenticated request - missing bearer token",
						"request_id", requestcontext.RequestID(ctx),
						"path", r.URL.Path,
					)
				}
				httputil.WriteError(w, derrors.New(derrors.CodeUnauthenticated, "missing or malformed Authorization header"))
				return
			}

			principal, err := verifier.Principal(tokenString)
			if err != nil {
				if logger != nil {
					logger.WarnContext(ctx, "unauthenticated request - invalid token",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
				}
				httputil.WriteError(w, derrors.New(derrors.CodeUnauthenticated, "invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, principal)))
		})
	}
}
