package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"compass/pkg/requestcontext"
)

const adminTokenHeader = "X-Admin-Token"

// RequireAdminToken gates operator endpoints behind a shared token: 401 when
// the header is absent, 403 when it doesn't match. An empty expected token
// disables the surface entirely rather than matching empty headers.
func RequireAdminToken(expectedToken string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			if expectedToken == "" {
				logger.WarnContext(ctx, "admin endpoint hit with no admin token configured",
					"request_id", requestID,
				)
				writeAdminError(w, http.StatusForbidden, "admin interface disabled")
				return
			}

			token := r.Header.Get(adminTokenHeader)
			if token == "" {
				logger.WarnContext(ctx, "admin token missing",
					"request_id", requestID,
				)
				writeAdminError(w, http.StatusUnauthorized, "admin token required")
				return
			}

			// Use constant-time comparison to prevent timing attacks
			if subtle.ConstantTimeCompare([]byte(token), []byte(expectedToken)) != 1 {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestID,
				)
				writeAdminError(w, http.StatusForbidden, "admin token rejected")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeAdminError(w http.ResponseWriter, status int, description string) {
	errCode := "unauthorized"
	if status == http.StatusForbidden {
		errCode = "forbidden"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + errCode + `","error_description":"` + description + `"}`))
}
