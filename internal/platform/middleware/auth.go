package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	id "compass/pkg/domain"
	"compass/pkg/requestcontext"
)

// TokenClaims represents the claims we expect from the token validator.
type TokenClaims struct {
	UserID    string
	SessionID string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// SessionChecker reports whether a session is still live. A token is only
// honored while its session exists; revoking the session (self-service
// deletion, suspension) cuts access immediately even for unexpired tokens.
type SessionChecker interface {
	Active(ctx context.Context, sessionID id.SessionID) (bool, error)
}

func RequireAuth(validator TokenValidator, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed user claim",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}
			sessionID, err := id.ParseSessionID(claims.SessionID)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed session claim",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if sessions != nil {
				active, err := sessions.Active(ctx, sessionID)
				if err != nil || !active {
					logger.WarnContext(ctx, "unauthorized access - session not live",
						"error", err,
						"session_id", sessionID.String(),
						"request_id", requestID,
					)
					writeUnauthorized(w, "Session expired or revoked")
					return
				}
			}

			ctx = requestcontext.WithUserID(ctx, userID)
			ctx = requestcontext.WithSessionID(ctx, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
