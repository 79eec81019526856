package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/openshelf/booksapi/pkg/jwtx"
	"github.com/openshelf/booksapi/pkg/slogx"
)

// SubjectResolver checks that a token subject still maps to a known user.
// It returns an error when the subject cannot be resolved.
type SubjectResolver func(ctx context.Context, subject string) error

// AuthnMiddleware gates protected endpoints behind a bearer token.
//
// A missing or malformed Authorization header is "not authenticated" (403).
// Anything wrong with a presented token - bad signature, malformed, expired,
// or a subject that no longer resolves to a user - is reported with one
// generic 401 message so callers cannot tell the cases apart.
func AuthnMiddleware(v jwtx.Verifier, resolve SubjectResolver) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				WriteError(w, http.StatusForbidden, "Not authenticated")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Warn("jwt verify failed", "err", err)
				writeCredentialsError(w)
				return
			}

			subject := claims.Subject
			if subject == "" {
				writeCredentialsError(w)
				return
			}

			if err := resolve(ctx, subject); err != nil {
				// Same generic message as an invalid token; never reveal that
				// the user was deleted.
				log.Warn("token subject did not resolve", "err", err)
				writeCredentialsError(w)
				return
			}

			// Inject into context for downstream handlers.
			ctx = context.WithValue(ctx, CtxKeyUsername, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeCredentialsError(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
}
