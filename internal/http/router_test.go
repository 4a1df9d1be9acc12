package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithandler "compass/internal/audit/handler"
	auditservice "compass/internal/audit/service"
	auditstore "compass/internal/audit/store"
	authhandler "compass/internal/auth/handler"
	authservice "compass/internal/auth/service"
	jwttoken "compass/internal/jwt_token"
	regstore "compass/internal/registration/store"
	retentionhandler "compass/internal/retention/handler"
	retentionservice "compass/internal/retention/service"
	"compass/internal/retention/store/archive"
	"compass/internal/retention/store/pending"
	sessionservice "compass/internal/session/service"
	sessionstore "compass/internal/session/store"
	userstore "compass/internal/user/store"
	"compass/pkg/testutil"
)

const adminToken = "ops-secret"

func newTestRouter(t *testing.T, checks ...Check) http.Handler {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	users := userstore.NewMemory()
	recorder := auditservice.New(auditstore.NewMemory())
	sessions := sessionservice.New(sessionstore.NewMemory(), 24*time.Hour)
	jwtService := jwttoken.New("router-test-key", "compass", "compass")

	auth := authservice.New(users, sessions, jwtService, 15*time.Minute,
		authservice.WithAuditRecorder(recorder))
	_, err := auth.CreateAccount(context.Background(), "guest@example.com", "Workshop Guest", "pa55word!")
	require.NoError(t, err)

	passthrough := retentionservice.TxRunnerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	})
	retention := retentionservice.New(
		retentionservice.Stores{
			Users:      users,
			Attendance: regstore.NewMemory(),
			Pending:    pending.NewMemory(),
			Archive:    archive.NewMemory(),
		},
		sessions,
		passthrough,
		28*24*time.Hour,
		retentionservice.WithAuditRecorder(recorder),
	)

	return New(Deps{
		Logger:          logger,
		TokenValidator:  jwttoken.NewMiddlewareAdapter(jwtService),
		Sessions:        sessions,
		AdminToken:      adminToken,
		Auth:            authhandler.New(auth, logger),
		Audit:           audithandler.New(recorder, logger),
		Retention:       retentionhandler.New(retention, recorder, logger),
		ReadinessChecks: checks,
	})
}

func login(t *testing.T, router http.Handler, email, password string) string {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/auth/login",
		map[string]string{"email": email, "password": password})
	rec := testutil.DoRequest(router, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := testutil.UnmarshalResponse[struct {
		AccessToken string `json:"access_token"`
	}](t, rec)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken
}

func TestRouter_Healthz(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_Readyz(t *testing.T) {
	healthy := Check{Name: "postgres", Probe: func(context.Context) error { return nil }}
	failing := Check{Name: "redis", Probe: func(context.Context) error { return errors.New("connection refused") }}

	t.Run("all checks pass", func(t *testing.T) {
		router := newTestRouter(t, healthy)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ready","checks":{"postgres":"ok"}}`, rec.Body.String())
	})

	t.Run("failing check reports 503", func(t *testing.T) {
		router := newTestRouter(t, healthy, failing)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "connection refused")
	})
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_SelfServiceRequiresBearer(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/me/deletion", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/admin/audit", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

// Login, delete the account, and confirm the token died with the session.
func TestRouter_LoginThenSelfDeletion(t *testing.T) {
	router := newTestRouter(t)
	token := login(t, router, "guest@example.com", "pa55word!")

	req := httptest.NewRequest(http.MethodPost, "/v1/me/deletion", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["deleted"])
	assert.Equal(t, true, resp["immediate"], "no attendance means immediate erasure")

	// The session was revoked with the account, so the same token is dead.
	req = httptest.NewRequest(http.MethodPost, "/v1/me/deletion", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// And the credentials no longer work either.
	body, _ := json.Marshal(map[string]string{"email": "guest@example.com", "password": "pa55word!"})
	loginReq := httptest.NewRequest(http.MethodPost, "/v1/auth/login", strings.NewReader(string(body)))
	loginReq.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, loginReq)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
