// Package requestcontext carries request-scoped values between middleware and
// services without either side importing net/http.
//
// Middleware writes (WithUserID, WithRequestID, ...), services read (UserID,
// Now, ...). Workers and tests use the same setters to fake a request
// environment:
//
//	ctx = requestcontext.WithTime(ctx, fixedInstant)
//	ctx = requestcontext.WithUserID(ctx, aliceID)
package requestcontext

import (
	"context"
	"time"

	id "compass/pkg/domain"
)

// One private key type per value; collisions are impossible by construction.
type (
	userIDKey      struct{}
	sessionIDKey   struct{}
	clientIPKey    struct{}
	userAgentKey   struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// lookup returns the stored value or T's zero value when absent.
func lookup[T any](ctx context.Context, key any) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// UserID returns the authenticated user, or the nil ID when the request is
// anonymous.
func UserID(ctx context.Context) id.UserID {
	return lookup[id.UserID](ctx, userIDKey{})
}

// WithUserID marks the context as authenticated for the given user.
func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// SessionID returns the session behind the request, or the nil ID.
func SessionID(ctx context.Context) id.SessionID {
	return lookup[id.SessionID](ctx, sessionIDKey{})
}

// WithSessionID records which session authenticated the request.
func WithSessionID(ctx context.Context, sessionID id.SessionID) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// ClientIP returns the caller's IP as the request middleware resolved it.
func ClientIP(ctx context.Context) string {
	return lookup[string](ctx, clientIPKey{})
}

// UserAgent returns the raw User-Agent header, or "".
func UserAgent(ctx context.Context) string {
	return lookup[string](ctx, userAgentKey{})
}

// WithClientMetadata sets the client IP and User-Agent in one call, mirroring
// how the request middleware populates them.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, clientIP)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// RequestID returns the correlation ID assigned to the request, or "".
func RequestID(ctx context.Context) string {
	return lookup[string](ctx, requestIDKey{})
}

// WithRequestID assigns the correlation ID that log lines and audit entries
// share.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now returns the request's pinned clock reading, falling back to time.Now
// outside a request.
//
// Every "what time is it" decision in the deletion lifecycle reads through
// here. That is what makes eligibility-window tests deterministic, and what
// lets the sweep pin a single instant for a whole batch.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime pins the clock for everything downstream of ctx.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
