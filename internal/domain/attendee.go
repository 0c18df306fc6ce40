package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the state of a single registration row.
type RegistrationStatus string

const (
	RegistrationRegistered RegistrationStatus = "registered"
	RegistrationCancelled  RegistrationStatus = "cancelled"
	RegistrationAttended   RegistrationStatus = "attended"
	RegistrationNoShow     RegistrationStatus = "no_show"
)

// EventRegistration represents an attendee's registration for an event.
// Each registration attempt is its own row; at most one row per (event, user) is registered.
// swagger:model EventRegistration
type EventRegistration struct {
	ID                 string             `json:"id"`
	EventID            string             `json:"event_id"`
	UserID             string             `json:"user_id"`
	Status             RegistrationStatus `json:"status"`
	CancelledAt        *time.Time         `json:"cancelled_at"`
	CancellationReason *string            `json:"cancellation_reason"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewEventRegistration creates a registered EventRegistration. ID is typically set by the store on create.
func NewEventRegistration(eventID, userID string, now time.Time) *EventRegistration {
	return &EventRegistration{
		EventID:   eventID,
		UserID:    userID,
		Status:    RegistrationRegistered,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EventRegistrationWithEvent bundles a registration with its related event.
type EventRegistrationWithEvent struct {
	Registration *EventRegistration `json:"registration"`
	Event        *Event             `json:"event"`
}

// Participant is a registration row joined with the participant's identity.
type Participant struct {
	Registration *EventRegistration `json:"registration"`
	UserName     string             `json:"user_name"`
	UserEmail    string             `json:"user_email"`
}

// EventRegistrationRepository defines read-only listings of registrations.
type EventRegistrationRepository interface {
	ListByUserID(ctx context.Context, userID string) ([]*EventRegistration, error)
	ListByEventID(ctx context.Context, eventID string) ([]*Participant, error)
}

// RegistrationTx is the set of operations available inside one registration transaction.
type RegistrationTx interface {
	// GetEvent returns the event including soft-deleted rows.
	GetEvent(ctx context.Context, eventID string) (*Event, error)
	UpdateEventStatus(ctx context.Context, eventID string, status EventStatus, at time.Time) error
	UpdateEvent(ctx context.Context, event *Event) error
	CountActiveRegistrations(ctx context.Context, eventID string) (int, error)
	// HasOverlappingRegistration reports whether the user holds a non-cancelled registration for a
	// live event, other than excludeEventID, whose window intersects [start, end).
	HasOverlappingRegistration(ctx context.Context, userID string, start, end time.Time, excludeEventID string) (bool, error)
	// GetActiveRegistration returns the registered row for (event, user) or ErrNotFound.
	GetActiveRegistration(ctx context.Context, eventID, userID string) (*EventRegistration, error)
	// CreateRegistration returns ErrConflict if the user already holds a registered row.
	CreateRegistration(ctx context.Context, reg *EventRegistration) error
	// TransitionRegistration moves the row from one status to another only if it is still in from.
	TransitionRegistration(ctx context.Context, regID string, from, to RegistrationStatus, reason *string, at time.Time) (bool, error)
	// CancelActiveRegistrations cancels every registered row of the event and returns how many changed.
	CancelActiveRegistrations(ctx context.Context, eventID, reason string, at time.Time) (int64, error)
}

// RegistrationStore runs registration transactions.
type RegistrationStore interface {
	// WithEventLock runs fn in one transaction while holding the exclusive lock scoped to eventID.
	// It returns ErrNotFound if the event row does not exist and ErrLockTimeout if the lock
	// could not be acquired in time. Errors returned by fn are passed through unchanged.
	WithEventLock(ctx context.Context, eventID string, fn func(tx RegistrationTx) error) error
	// WithTx runs fn in one transaction without the event lock.
	WithTx(ctx context.Context, fn func(tx RegistrationTx) error) error
}

// AttendeeService defines the registration operations exposed to the HTTP layer.
type AttendeeService interface {
	Register(ctx context.Context, eventID, userID string, now time.Time) (*EventRegistration, error)
	Cancel(ctx context.Context, eventID, userID, reason string, now time.Time) error
	// ForceRegister returns (reg, created, err): created is false when the user was already registered.
	ForceRegister(ctx context.Context, eventID, userID string, now time.Time) (*EventRegistration, bool, error)
	RemoveParticipant(ctx context.Context, eventID, userID, reason string, now time.Time) error
	MarkAttendance(ctx context.Context, actor *User, eventID, userID string, status RegistrationStatus, now time.Time) (*EventRegistration, error)
	ListMyRegistrations(ctx context.Context, userID string, now time.Time) ([]*EventRegistrationWithEvent, error)
	ListParticipants(ctx context.Context, actor *User, eventID string) ([]*Participant, error)
}
