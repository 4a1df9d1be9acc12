package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

type stubValidator struct {
	claims *TokenClaims
	err    error
}

func (s *stubValidator) ValidateToken(string) (*TokenClaims, error) {
	return s.claims, s.err
}

type stubSessions struct {
	active bool
	err    error
}

func (s *stubSessions) Active(context.Context, id.SessionID) (bool, error) {
	return s.active, s.err
}

func authedClaims() (*TokenClaims, id.UserID, id.SessionID) {
	userID := id.NewUserID()
	sessionID := id.NewSessionID()
	return &TokenClaims{UserID: userID.String(), SessionID: sessionID.String()}, userID, sessionID
}

func TestRequireAuth(t *testing.T) {
	t.Run("missing header returns 401", func(t *testing.T) {
		mw := RequireAuth(&stubValidator{}, nil, newTestLogger())
		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		rec := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token returns 401", func(t *testing.T) {
		validator := &stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "invalid token")}
		mw := RequireAuth(validator, nil, newTestLogger())
		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		rec := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token without session checker injects identity", func(t *testing.T) {
		claims, wantUser, wantSession := authedClaims()
		validator := &stubValidator{claims: claims}

		var gotUser id.UserID
		var gotSession id.SessionID
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUser = requestcontext.UserID(r.Context())
			gotSession = requestcontext.SessionID(r.Context())
			w.WriteHeader(http.StatusOK)
		})

		mw := RequireAuth(validator, nil, newTestLogger())
		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw(inner).ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, wantUser, gotUser)
		assert.Equal(t, wantSession, gotSession)
	})

	t.Run("revoked session returns 401 even for valid token", func(t *testing.T) {
		claims, _, _ := authedClaims()
		validator := &stubValidator{claims: claims}
		mw := RequireAuth(validator, &stubSessions{active: false}, newTestLogger())

		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("session store failure fails closed", func(t *testing.T) {
		claims, _, _ := authedClaims()
		validator := &stubValidator{claims: claims}
		mw := RequireAuth(validator, &stubSessions{err: errors.New("redis down")}, newTestLogger())

		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed user claim returns 401", func(t *testing.T) {
		validator := &stubValidator{claims: &TokenClaims{UserID: "nope", SessionID: id.NewSessionID().String()}}
		mw := RequireAuth(validator, nil, newTestLogger())

		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()

		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestMetadata(t *testing.T) {
	t.Run("request id minted and echoed", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		RequestID(inner).ServeHTTP(rec, req)

		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("inbound request id preserved", func(t *testing.T) {
		var seen string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		rec := httptest.NewRecorder()
		RequestID(inner).ServeHTTP(rec, req)

		assert.Equal(t, "upstream-id", seen)
	})

	t.Run("client metadata captured", func(t *testing.T) {
		var ip, ua string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip = requestcontext.ClientIP(r.Context())
			ua = requestcontext.UserAgent(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "203.0.113.7:4411"
		req.Header.Set("User-Agent", "test-agent/1.0")
		rec := httptest.NewRecorder()
		ClientMetadata(inner).ServeHTTP(rec, req)

		assert.Equal(t, "203.0.113.7", ip)
		assert.Equal(t, "test-agent/1.0", ua)
	})

	t.Run("x-forwarded-for wins", func(t *testing.T) {
		var ip string
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip = requestcontext.ClientIP(r.Context())
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
		rec := httptest.NewRecorder()
		ClientMetadata(inner).ServeHTTP(rec, req)

		assert.Equal(t, "198.51.100.9", ip)
	})

	t.Run("request time pinned for the request", func(t *testing.T) {
		var first, second = new(int64), new(int64)
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := requestcontext.Now(r.Context())
			*first = now.UnixNano()
			*second = requestcontext.Now(r.Context()).UnixNano()
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		RequestTime(inner).ServeHTTP(rec, req)

		assert.Equal(t, *first, *second)
		assert.NotZero(t, *first)
	})
}
