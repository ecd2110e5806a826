package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/studyroom/studyroom/pkg/jwtx"
	"github.com/studyroom/studyroom/pkg/slogx"
)

// SessionValidator performs stateful proof checks that the signature alone
// cannot cover: the per-account valid-since comparison and deactivation.
type SessionValidator interface {
	ValidateProof(ctx context.Context, c jwtx.Claims) error
}

// AuthnMiddleware authenticates requests carrying a full session proof.
// Elevation tokens are opaque (not JWTs) and fail verification structurally,
// so they are rejected here regardless of their own validity.
func AuthnMiddleware(v *jwtx.Verifier, sessions SessionValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("session proof verification failed", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			if err := claims.ValidateExpiry(); err != nil {
				writeBearerError(w, "token expired")
				return
			}

			if err := sessions.ValidateProof(ctx, claims); err != nil {
				log.Warn("session proof rejected", "account_id", claims.Subject, "err", err)
				writeBearerError(w, "token no longer valid")
				return
			}

			ctx = context.WithValue(ctx, CtxKeyAccountID, claims.Subject)
			ctx = context.WithValue(ctx, CtxKeyRole, claims.Role)
			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
