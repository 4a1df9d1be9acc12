package testutil

import (
	"net/http"
	"time"

	id "compass/pkg/domain"
	"compass/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the auth
// middleware does for authenticated requests. Invalid UUIDs are silently
// ignored so tests can exercise the unauthenticated path with one helper.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsed, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
	}
	return req
}

// WithRequestTime pins the request clock, like the request-time middleware
// does, so handler tests get deterministic timestamps.
func WithRequestTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
