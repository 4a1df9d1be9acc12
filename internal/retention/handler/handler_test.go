package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass/internal/audit"
	auditservice "compass/internal/audit/service"
	auditstore "compass/internal/audit/store"
	"compass/internal/platform/middleware"
	"compass/internal/registration"
	regstore "compass/internal/registration/store"
	"compass/internal/retention"
	retentionservice "compass/internal/retention/service"
	"compass/internal/retention/store/archive"
	"compass/internal/retention/store/pending"
	sessionservice "compass/internal/session/service"
	sessionstore "compass/internal/session/store"
	"compass/internal/user"
	userstore "compass/internal/user/store"
	id "compass/pkg/domain"
	"compass/pkg/testutil"
)

const adminToken = "secret-token"

type testStack struct {
	router  http.Handler
	users   *userstore.MemoryStore
	events  *regstore.MemoryStore
	pending *pending.MemoryStore
	ledger  *auditstore.MemoryStore
}

func newStack(t *testing.T) *testStack {
	t.Helper()
	s := &testStack{
		users:   userstore.NewMemory(),
		events:  regstore.NewMemory(),
		pending: pending.NewMemory(),
		ledger:  auditstore.NewMemory(),
	}
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	recorder := auditservice.New(s.ledger)
	sessions := sessionservice.New(sessionstore.NewMemory(), time.Hour)
	passthrough := retentionservice.TxRunnerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	})
	svc := retentionservice.New(
		retentionservice.Stores{Users: s.users, Attendance: s.events, Pending: s.pending, Archive: archive.NewMemory()},
		sessions,
		passthrough,
		28*24*time.Hour,
		retentionservice.WithAuditRecorder(recorder),
	)

	h := New(svc, recorder, logger)
	r := chi.NewRouter()
	r.Use(middleware.ClientMetadata)
	r.Group(func(r chi.Router) {
		h.RegisterSelfService(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdminToken(adminToken, logger))
		h.RegisterAdmin(r)
	})
	s.router = r
	return s
}

func (s *testStack) addUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.New(id.NewUserID(), email, "Workshop Guest", "x", time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, s.users.Create(context.Background(), u))
	return u
}

func (s *testStack) addAttendedEvent(t *testing.T, userID id.UserID, end time.Time) {
	t.Helper()
	ctx := context.Background()
	event := &registration.Event{
		ID:        id.NewEventID(),
		Title:     "Orientation Workshop",
		StartsAt:  end.Add(-2 * time.Hour),
		EndsAt:    &end,
		CreatedAt: end.Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, s.events.CreateEvent(ctx, event))
	require.NoError(t, s.events.CreateRegistration(ctx, &registration.Registration{
		ID:        id.NewRegistrationID(),
		UserID:    userID,
		EventID:   event.ID,
		Status:    registration.StatusRegistered,
		CreatedAt: event.CreatedAt,
	}))
}

func TestSelfDeletion_ImmediateResponse(t *testing.T) {
	s := newStack(t)
	u := s.addUser(t, "guest@example.com")

	req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
	req = testutil.WithUserID(req, u.ID.String())
	req = testutil.WithRequestTime(req, time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["deleted"])
	assert.Equal(t, true, resp["immediate"])
	_, hasDate := resp["deletionDate"]
	assert.False(t, hasDate, "immediate deletions carry no date")
}

func TestSelfDeletion_ScheduledResponse(t *testing.T) {
	s := newStack(t)
	u := s.addUser(t, "guest@example.com")
	s.addAttendedEvent(t, u.ID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
	req = testutil.WithUserID(req, u.ID.String())
	req = testutil.WithRequestTime(req, time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, true, resp["deleted"])
	assert.Equal(t, false, resp["immediate"])
	assert.Equal(t, "2025-01-29T00:00:00Z", resp["deletionDate"])
}

func TestSelfDeletion_RepeatKeepsDate(t *testing.T) {
	s := newStack(t)
	u := s.addUser(t, "guest@example.com")
	s.addAttendedEvent(t, u.ID, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for _, at := range []time.Time{
		time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 7, 9, 0, 0, 0, time.UTC),
	} {
		req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
		req = testutil.WithUserID(req, u.ID.String())
		req = testutil.WithRequestTime(req, at)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "2025-01-29T00:00:00Z", resp["deletionDate"])
	}
}

func TestSelfDeletion_RequiresAuthentication(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/me/deletion", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestManualRun_RequiresAdminToken(t *testing.T) {
	s := newStack(t)

	req := httptest.NewRequest(http.MethodPost, "/admin/retention/run", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/admin/retention/run", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestManualRun_DeletesDueAndAuditsTrigger(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	u := s.addUser(t, "guest@example.com")
	require.NoError(t, s.pending.Create(ctx, &retention.PendingDeletion{
		UserID:       u.ID,
		DeletionDate: time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC),
		CreatedAt:    time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC),
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/retention/run", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	req = testutil.WithRequestTime(req, time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]int
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 1, resp["deleted"])

	entries, err := s.ledger.List(ctx, auditstore.Filter{Action: audit.ActionManualTrigger})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	assert.Equal(t, audit.OriginAdmin, entries[0].Origin)
	assert.Equal(t, "192.0.2.1", entries[0].Details["client_ip"])
}

func TestListPending_DueFirst(t *testing.T) {
	s := newStack(t)
	ctx := context.Background()
	later := s.addUser(t, "later@example.com")
	soon := s.addUser(t, "soon@example.com")
	require.NoError(t, s.pending.Create(ctx, &retention.PendingDeletion{
		UserID:       later.ID,
		DeletionDate: time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.pending.Create(ctx, &retention.PendingDeletion{
		UserID:       soon.ID,
		DeletionDate: time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC),
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/retention/pending", nil)
	req.Header.Set("X-Admin-Token", adminToken)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Pending []struct {
			UserID       string    `json:"user_id"`
			DeletionDate time.Time `json:"deletion_date"`
		} `json:"pending"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Pending, 2)
	assert.Equal(t, soon.ID.String(), resp.Pending[0].UserID)
	assert.Equal(t, later.ID.String(), resp.Pending[1].UserID)
}

func TestListPending_RejectsBadLimit(t *testing.T) {
	s := newStack(t)

	for _, raw := range []string{"/admin/retention/pending?limit=0", "/admin/retention/pending?limit=abc"} {
		req := httptest.NewRequest(http.MethodGet, raw, nil)
		req.Header.Set("X-Admin-Token", adminToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, raw)
	}
}
