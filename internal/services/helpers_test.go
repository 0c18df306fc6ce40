package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/repository/migrations"
	"eventhub/internal/repository/sqlite"

	"github.com/stretchr/testify/require"
)

var base = time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type sentNotification struct {
	Template  string
	Recipient domain.Recipient
	Payload   any
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Enqueue(template string, to domain.Recipient, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{Template: template, Recipient: to, Payload: payload})
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.sent))
	for i, s := range n.sent {
		out[i] = s.Template
	}
	return out
}

// plainHasher keeps tests fast; bcrypt is covered in the auth adapter.
type plainHasher struct{}

func (plainHasher) GenerateSalt() (string, error) { return "salt", nil }
func (plainHasher) Hash(salt, password string) (string, error) {
	return salt + ":" + password, nil
}
func (plainHasher) Compare(hash, salt, password string) error {
	if hash != salt+":"+password {
		return domain.ErrInvalidCredentials
	}
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(userID, email string, role domain.Role, expiry time.Duration) (string, error) {
	return "token-" + userID, nil
}

// testEnv wires the services to a SQLite database file. A file, unlike :memory:, is served
// by a pool of connections, so concurrent calls really overlap.
type testEnv struct {
	db         *sql.DB
	users      domain.UserRepository
	events     domain.EventRepository
	categories domain.CategoryRepository
	store      domain.RegistrationStore
	notifier   *recordingNotifier
	attendees  domain.AttendeeService
	eventSvc   domain.EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "eventhub.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Up(ctx, db, "sqlite"))

	env := &testEnv{
		db:         db,
		users:      sqlite.NewUserRepository(db),
		events:     sqlite.NewEventRepository(db),
		categories: sqlite.NewCategoryRepository(db),
		store:      sqlite.NewRegistrationStore(db, 10*time.Second),
		notifier:   &recordingNotifier{},
	}
	env.attendees = NewAttendeeService(env.store, env.events, sqlite.NewEventRegistrationRepository(db), env.users, env.notifier, discardLogger())
	env.eventSvc = NewEventService(env.events, env.categories, env.store, discardLogger(), 0)
	return env
}

func (env *testEnv) user(t *testing.T, email string, role domain.Role) *domain.User {
	t.Helper()
	u := domain.NewUser(email, "Name "+email, role, base)
	u.PasswordHash, u.Salt = "salt:password1", "salt"
	require.NoError(t, env.users.Create(context.Background(), u))
	return u
}

func (env *testEnv) event(t *testing.T, organizerID string, start, end time.Time, max int) *domain.Event {
	t.Helper()
	e := domain.NewEvent("Event", organizerID, start, end, max, "UTC", base)
	require.NoError(t, env.events.Create(context.Background(), e))
	return e
}

func (env *testEnv) activeCount(t *testing.T, eventID string) int {
	t.Helper()
	var n int
	err := env.store.WithTx(context.Background(), func(tx domain.RegistrationTx) error {
		var err error
		n, err = tx.CountActiveRegistrations(context.Background(), eventID)
		return err
	})
	require.NoError(t, err)
	return n
}
