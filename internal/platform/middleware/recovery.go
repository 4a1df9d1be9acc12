package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/httputil"
	"compass/pkg/requestcontext"
)

// Recovery converts handler panics into 500 responses. The panic value and
// stack are logged with the request ID; the client sees only a generic error.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "panic in handler",
						"panic", rec,
						"request_id", requestcontext.RequestID(ctx),
						"method", r.Method,
						"path", r.URL.Path,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
