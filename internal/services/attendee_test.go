package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/registration"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendeeService_Register(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(24*time.Hour), base.Add(26*time.Hour), 10)

	reg, err := env.attendees.Register(ctx, e.ID, u.ID, base)
	require.NoError(t, err)
	assert.NotEmpty(t, reg.ID)
	assert.Equal(t, domain.RegistrationRegistered, reg.Status)
	assert.Equal(t, 1, env.activeCount(t, e.ID))

	assert.Equal(t,
		[]string{domain.TemplateRegistrationConfirmation, domain.TemplateNewParticipant},
		env.notifier.templates())
	assert.Equal(t, org.Email, env.notifier.sent[1].Recipient.Email)
}

func TestAttendeeService_Register_Denials(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv) (eventID, userID string)
		want  registration.DenialReason
	}{
		{
			name: "cancelled event",
			setup: func(t *testing.T, env *testEnv) (string, string) {
				org := env.user(t, "org@example.com", domain.RoleOrganizer)
				u := env.user(t, "u@example.com", domain.RoleUser)
				e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 10)
				_, err := env.events.UpdateStatus(ctx, e.ID, domain.EventStatusUpcoming, domain.EventStatusCancelled, base)
				require.NoError(t, err)
				return e.ID, u.ID
			},
			want: registration.EventNotOpen,
		},
		{
			name: "event already started",
			setup: func(t *testing.T, env *testEnv) (string, string) {
				org := env.user(t, "org@example.com", domain.RoleOrganizer)
				u := env.user(t, "u@example.com", domain.RoleUser)
				e := env.event(t, org.ID, base.Add(-time.Hour), base.Add(time.Hour), 10)
				return e.ID, u.ID
			},
			want: registration.EventNotOpen,
		},
		{
			name: "inactive user",
			setup: func(t *testing.T, env *testEnv) (string, string) {
				org := env.user(t, "org@example.com", domain.RoleOrganizer)
				u := env.user(t, "u@example.com", domain.RoleUser)
				u.IsActive = false
				require.NoError(t, env.users.Update(ctx, u))
				e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 10)
				return e.ID, u.ID
			},
			want: registration.UserInactive,
		},
		{
			name: "full event",
			setup: func(t *testing.T, env *testEnv) (string, string) {
				org := env.user(t, "org@example.com", domain.RoleOrganizer)
				first := env.user(t, "first@example.com", domain.RoleUser)
				u := env.user(t, "u@example.com", domain.RoleUser)
				e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 1)
				_, err := env.attendees.Register(ctx, e.ID, first.ID, base)
				require.NoError(t, err)
				return e.ID, u.ID
			},
			want: registration.EventFull,
		},
		{
			name: "already registered",
			setup: func(t *testing.T, env *testEnv) (string, string) {
				org := env.user(t, "org@example.com", domain.RoleOrganizer)
				u := env.user(t, "u@example.com", domain.RoleUser)
				e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 10)
				_, err := env.attendees.Register(ctx, e.ID, u.ID, base)
				require.NoError(t, err)
				return e.ID, u.ID
			},
			// the user's own registration is excluded from the overlap check
			want: registration.AlreadyRegistered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			eventID, userID := tt.setup(t, env)

			_, err := env.attendees.Register(ctx, eventID, userID, base)
			require.Error(t, err)
			assert.True(t, registration.IsDenied(err, tt.want), "got %v", err)
		})
	}
}

func TestAttendeeService_Register_NotFound(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "u@example.com", domain.RoleUser)

	_, err := env.attendees.Register(ctx, "no-such-event", u.ID, base)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, ok := registration.AsDenial(err)
	assert.False(t, ok)

	_, err = env.attendees.Register(ctx, "no-such-event", "no-such-user", base)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttendeeService_Register_SoftDeletedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 10)
	require.NoError(t, env.events.SoftDelete(ctx, e.ID, base))

	_, err := env.attendees.Register(ctx, e.ID, u.ID, base)
	assert.True(t, registration.IsDenied(err, registration.EventNotOpen), "got %v", err)
}

func TestAttendeeService_LastSlotRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 1)

	const n = 16
	users := make([]*domain.User, n)
	for i := range users {
		users[i] = env.user(t, fmt.Sprintf("racer%d@example.com", i), domain.RoleUser)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range users {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.attendees.Register(ctx, e.ID, users[i].ID, base)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, registration.IsDenied(err, registration.EventFull), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.activeCount(t, e.ID))
}

func TestAttendeeService_ConcurrentDuplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 50)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.attendees.Register(ctx, e.ID, u.ID, base)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, registration.IsDenied(err, registration.AlreadyRegistered), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, env.activeCount(t, e.ID))
}

func TestAttendeeService_OverlapRules(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	day := base.Add(24 * time.Hour)
	a := env.event(t, org.ID, day.Add(10*time.Hour), day.Add(12*time.Hour), 10)
	b := env.event(t, org.ID, day.Add(11*time.Hour), day.Add(13*time.Hour), 10)
	c := env.event(t, org.ID, day.Add(12*time.Hour), day.Add(14*time.Hour), 10)

	_, err := env.attendees.Register(ctx, a.ID, u.ID, base)
	require.NoError(t, err)

	_, err = env.attendees.Register(ctx, b.ID, u.ID, base)
	assert.True(t, registration.IsDenied(err, registration.ScheduleConflict), "got %v", err)

	_, err = env.attendees.Register(ctx, c.ID, u.ID, base)
	assert.NoError(t, err, "back-to-back events do not conflict")

	// a cancelled registration no longer blocks the window
	require.NoError(t, env.attendees.Cancel(ctx, a.ID, u.ID, "", base))
	_, err = env.attendees.Register(ctx, b.ID, u.ID, base)
	assert.True(t, registration.IsDenied(err, registration.ScheduleConflict), "c still overlaps b: %v", err)
	require.NoError(t, env.attendees.Cancel(ctx, c.ID, u.ID, "", base))
	_, err = env.attendees.Register(ctx, b.ID, u.ID, base)
	assert.NoError(t, err)
}

func TestAttendeeService_CancelFreesCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	first := env.user(t, "first@example.com", domain.RoleUser)
	second := env.user(t, "second@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 1)

	_, err := env.attendees.Register(ctx, e.ID, first.ID, base)
	require.NoError(t, err)
	_, err = env.attendees.Register(ctx, e.ID, second.ID, base)
	require.True(t, registration.IsDenied(err, registration.EventFull))

	require.NoError(t, env.attendees.Cancel(ctx, e.ID, first.ID, "cannot make it", base))
	assert.ErrorIs(t, env.attendees.Cancel(ctx, e.ID, first.ID, "", base), domain.ErrNotFound)

	_, err = env.attendees.Register(ctx, e.ID, second.ID, base)
	assert.NoError(t, err)

	// first's cancelled row stays as history; the slot now belongs to second
	_, err = env.attendees.Register(ctx, e.ID, first.ID, base)
	assert.True(t, registration.IsDenied(err, registration.EventFull))
}

func TestAttendeeService_ForceRegister(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	holder := env.user(t, "holder@example.com", domain.RoleUser)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 1)
	clash := env.event(t, org.ID, base.Add(time.Hour), base.Add(3*time.Hour), 5)

	_, err := env.attendees.Register(ctx, e.ID, holder.ID, base)
	require.NoError(t, err)
	_, err = env.attendees.Register(ctx, clash.ID, u.ID, base)
	require.NoError(t, err)

	reg, created, err := env.attendees.ForceRegister(ctx, e.ID, u.ID, base)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, env.activeCount(t, e.ID))

	again, created, err := env.attendees.ForceRegister(ctx, e.ID, u.ID, base)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, reg.ID, again.ID)
	assert.Equal(t, 2, env.activeCount(t, e.ID))
}

func TestAttendeeService_ForceRegister_ClosedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(-2*time.Hour), base.Add(-time.Hour), 1)

	_, _, err := env.attendees.ForceRegister(ctx, e.ID, u.ID, base)
	assert.True(t, registration.IsDenied(err, registration.EventNotOpen), "got %v", err)

	// the write-back of the resolved status was rolled back with the denial
	stored, err := env.events.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EventStatusUpcoming, stored.Status)
}

func TestAttendeeService_RemoveParticipant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 5)
	_, err := env.attendees.Register(ctx, e.ID, u.ID, base)
	require.NoError(t, err)

	assert.ErrorIs(t, env.attendees.RemoveParticipant(ctx, e.ID, u.ID, "  ", base), domain.ErrInvalidInput)
	require.NoError(t, env.attendees.RemoveParticipant(ctx, e.ID, u.ID, "violated code of conduct", base))
	assert.ErrorIs(t, env.attendees.RemoveParticipant(ctx, e.ID, u.ID, "again", base), domain.ErrNotFound)

	participants, err := env.attendees.ListParticipants(ctx, org, e.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	reg := participants[0].Registration
	assert.Equal(t, domain.RegistrationCancelled, reg.Status)
	require.NotNil(t, reg.CancellationReason)
	assert.Equal(t, "violated code of conduct", *reg.CancellationReason)
}

func TestAttendeeService_MarkAttendance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	other := env.user(t, "other@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 5)
	_, err := env.attendees.Register(ctx, e.ID, u.ID, base)
	require.NoError(t, err)

	_, err = env.attendees.MarkAttendance(ctx, org, e.ID, u.ID, domain.RegistrationAttended, base)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "event has not started")

	during := base.Add(90 * time.Minute)
	_, err = env.attendees.MarkAttendance(ctx, other, e.ID, u.ID, domain.RegistrationAttended, during)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.attendees.MarkAttendance(ctx, org, e.ID, u.ID, domain.RegistrationCancelled, during)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	reg, err := env.attendees.MarkAttendance(ctx, org, e.ID, u.ID, domain.RegistrationAttended, during)
	require.NoError(t, err)
	assert.Equal(t, domain.RegistrationAttended, reg.Status)

	_, err = env.attendees.MarkAttendance(ctx, org, e.ID, u.ID, domain.RegistrationNoShow, during)
	assert.ErrorIs(t, err, domain.ErrNotFound, "attended is terminal")
}

func TestAttendeeService_ListMyRegistrations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e1 := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 5)
	e2 := env.event(t, org.ID, base.Add(3*time.Hour), base.Add(4*time.Hour), 5)
	_, err := env.attendees.Register(ctx, e1.ID, u.ID, base)
	require.NoError(t, err)
	_, err = env.attendees.Register(ctx, e2.ID, u.ID, base)
	require.NoError(t, err)
	require.NoError(t, env.events.SoftDelete(ctx, e2.ID, base))

	during := base.Add(90 * time.Minute)
	got, err := env.attendees.ListMyRegistrations(ctx, u.ID, during)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, e1.ID, got[0].Event.ID)
	assert.Equal(t, domain.EventStatusOngoing, got[0].Event.Status, "status resolves against the supplied clock")

	empty, err := env.attendees.ListMyRegistrations(ctx, org.ID, base)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAttendeeService_NotificationFailureKeepsRegistration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.notifier.err = errors.New("queue full")
	org := env.user(t, "org@example.com", domain.RoleOrganizer)
	u := env.user(t, "u@example.com", domain.RoleUser)
	e := env.event(t, org.ID, base.Add(time.Hour), base.Add(2*time.Hour), 5)

	_, err := env.attendees.Register(ctx, e.ID, u.ID, base)
	require.NoError(t, err)
	assert.Equal(t, 1, env.activeCount(t, e.ID))
}

// failingStore simulates infrastructure failures of the registration store.
type failingStore struct {
	err error
}

func (s failingStore) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.RegistrationTx) error) error {
	return s.err
}

func (s failingStore) WithTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	return s.err
}

func TestAttendeeService_Faults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "u@example.com", domain.RoleUser)

	tests := []struct {
		name      string
		err       error
		wantStage string
	}{
		{name: "lock timeout", err: fmt.Errorf("%w: busy", domain.ErrLockTimeout), wantStage: "lock"},
		{name: "store down", err: errors.New("connection refused"), wantStage: "transaction"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAttendeeService(failingStore{err: tt.err}, env.events, nil, env.users, nil, discardLogger())
			_, err := svc.Register(ctx, "ev-1", u.ID, base)

			var fault *registration.Fault
			require.ErrorAs(t, err, &fault)
			assert.Equal(t, tt.wantStage, fault.Stage)
			assert.Equal(t, "ev-1", fault.EventID)
			assert.Equal(t, u.ID, fault.UserID)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
