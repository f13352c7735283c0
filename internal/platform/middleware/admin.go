package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
)

// HeaderAdminKey carries the shared secret for the admin API.
const HeaderAdminKey = "X-ADMIN-KEY"

// RequireAdminKey rejects requests whose X-ADMIN-KEY does not match expected.
// An empty expected key rejects everything.
func RequireAdminKey(expected string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(HeaderAdminKey)
			// Use constant-time comparison to prevent timing attacks
			if expected == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
				ctx := r.Context()
				logger.WarnContext(ctx, "admin key mismatch",
					"request_id", GetRequestID(ctx),
					"path", r.URL.Path,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"Forbidden"}`))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
