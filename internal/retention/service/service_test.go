package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"compass/internal/audit"
	auditservice "compass/internal/audit/service"
	auditstore "compass/internal/audit/store"
	"compass/internal/registration"
	regstore "compass/internal/registration/store"
	"compass/internal/retention/store/archive"
	"compass/internal/retention/store/pending"
	sessionservice "compass/internal/session/service"
	sessionstore "compass/internal/session/store"
	"compass/internal/user"
	userstore "compass/internal/user/store"
	id "compass/pkg/domain"
	"compass/pkg/requestcontext"
)

const testWindow = 28 * 24 * time.Hour

// fixture wires the service to in-memory stores so lifecycle tests observe
// real state transitions end to end. Metrics stay unset: promauto registers
// globally and double registration panics across tests.
type fixture struct {
	users        *userstore.MemoryStore
	events       *regstore.MemoryStore
	pending      *pending.MemoryStore
	archive      *archive.MemoryStore
	ledger       *auditstore.MemoryStore
	sessionStore *sessionstore.MemoryStore
	sessions     *sessionservice.Service
	svc          *Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		users:        userstore.NewMemory(),
		events:       regstore.NewMemory(),
		pending:      pending.NewMemory(),
		archive:      archive.NewMemory(),
		ledger:       auditstore.NewMemory(),
		sessionStore: sessionstore.NewMemory(),
	}
	f.sessions = sessionservice.New(f.sessionStore, time.Hour)

	passthrough := TxRunnerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
		return fn(ctx)
	})
	base := []Option{WithAuditRecorder(auditservice.New(f.ledger))}
	f.svc = New(
		Stores{Users: f.users, Attendance: f.events, Pending: f.pending, Archive: f.archive},
		f.sessions,
		passthrough,
		testWindow,
		append(base, opts...)...,
	)
	return f
}

func ctxAt(at time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), at)
}

func (f *fixture) addUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := user.New(id.NewUserID(), email, "Workshop Guest", "x", time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// addEvent registers the user for a two-hour workshop ending at end.
func (f *fixture) addEvent(t *testing.T, userID id.UserID, end time.Time, status registration.Status) *registration.Event {
	t.Helper()
	ctx := context.Background()
	event := &registration.Event{
		ID:        id.NewEventID(),
		Title:     "Orientation Workshop",
		StartsAt:  end.Add(-2 * time.Hour),
		EndsAt:    &end,
		CreatedAt: end.Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, f.events.CreateEvent(ctx, event))
	require.NoError(t, f.events.CreateRegistration(ctx, &registration.Registration{
		ID:        id.NewRegistrationID(),
		UserID:    userID,
		EventID:   event.ID,
		Status:    status,
		CreatedAt: event.CreatedAt,
	}))
	return event
}

// addOpenEndedEvent registers the user for an event with no end date; its
// start doubles as the effective end.
func (f *fixture) addOpenEndedEvent(t *testing.T, userID id.UserID, start time.Time) *registration.Event {
	t.Helper()
	ctx := context.Background()
	event := &registration.Event{
		ID:        id.NewEventID(),
		Title:     "Drop-in Session",
		StartsAt:  start,
		CreatedAt: start.Add(-30 * 24 * time.Hour),
	}
	require.NoError(t, f.events.CreateEvent(ctx, event))
	require.NoError(t, f.events.CreateRegistration(ctx, &registration.Registration{
		ID:        id.NewRegistrationID(),
		UserID:    userID,
		EventID:   event.ID,
		Status:    registration.StatusRegistered,
		CreatedAt: event.CreatedAt,
	}))
	return event
}

func (f *fixture) openSession(t *testing.T, userID id.UserID) id.SessionID {
	t.Helper()
	sess, err := f.sessions.Create(context.Background(), userID)
	require.NoError(t, err)
	return sess.ID
}

func (f *fixture) auditActions(t *testing.T) []audit.Action {
	t.Helper()
	entries, err := f.ledger.List(context.Background(), auditstore.Filter{})
	require.NoError(t, err)
	actions := make([]audit.Action, 0, len(entries))
	for _, entry := range entries {
		actions = append(actions, entry.Action)
	}
	return actions
}

func (f *fixture) findAuditEntry(t *testing.T, action audit.Action) *audit.Entry {
	t.Helper()
	entries, err := f.ledger.List(context.Background(), auditstore.Filter{Action: action})
	require.NoError(t, err)
	require.NotEmpty(t, entries, "expected audit entry for action %s", action)
	return entries[0]
}
