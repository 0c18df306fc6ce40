package domain

import (
	"context"
	"time"
)

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusUpcoming  EventStatus = "upcoming"
	EventStatusOngoing   EventStatus = "ongoing"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusArchived  EventStatus = "archived"
)

// Valid reports whether s is one of the known statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusUpcoming, EventStatusOngoing, EventStatusCompleted, EventStatusCancelled, EventStatusArchived:
		return true
	}
	return false
}

// Event is a scheduled gathering with a capacity limit and a [StartTime, EndTime) window.
// Status holds the last persisted value; the effective status is resolved from the clock on read.
// swagger:model Event
type Event struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	Description        *string     `json:"description"`
	StartTime          time.Time   `json:"start_time"`
	EndTime            time.Time   `json:"end_time"`
	MaxParticipants    int         `json:"max_participants"`
	Status             EventStatus `json:"status"`
	IsPrivate          bool        `json:"is_private"`
	CategoryID         *string     `json:"category_id"`
	OrganizerID        string      `json:"organizer_id"`
	Timezone           string      `json:"timezone"`
	CancellationReason *string     `json:"cancellation_reason"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
	DeletedAt          *time.Time  `json:"-"`
}

// NewEvent returns an upcoming Event. ID is typically set by the repository on create.
func NewEvent(name, organizerID string, start, end time.Time, maxParticipants int, timezone string, createdAt time.Time) *Event {
	return &Event{
		Name:            name,
		StartTime:       start,
		EndTime:         end,
		MaxParticipants: maxParticipants,
		Status:          EventStatusUpcoming,
		OrganizerID:     organizerID,
		Timezone:        timezone,
		CreatedAt:       createdAt,
		UpdatedAt:       createdAt,
	}
}

// IsDeleted reports whether the event has been soft-deleted.
func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}

// EventInput carries the fields for creating an event. Times are parsed in Timezone
// unless they carry an explicit offset.
type EventInput struct {
	Name            string
	Description     *string
	StartTime       string
	EndTime         string
	MaxParticipants int
	IsPrivate       bool
	CategoryID      *string
	Timezone        string
}

// EventUpdate carries optional changes to an event. Nil fields are left unchanged.
// An empty CategoryID clears the category.
type EventUpdate struct {
	Name               *string
	Description        *string
	StartTime          *string
	EndTime            *string
	MaxParticipants    *int
	IsPrivate          *bool
	CategoryID         *string
	Timezone           *string
	Status             *EventStatus
	CancellationReason *string
}

// EventRepository defines the interface for event storage outside of registration transactions.
// GetByID and List never return soft-deleted events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id string) (*Event, error)
	List(ctx context.Context) ([]*Event, error)
	// UpdateStatus writes to only when the stored status still equals from.
	UpdateStatus(ctx context.Context, id string, from, to EventStatus, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id string, at time.Time) error
}

// EventService defines event management operations. Every read resolves the effective status.
type EventService interface {
	CreateEvent(ctx context.Context, actor *User, input EventInput, now time.Time) (*Event, error)
	GetEvent(ctx context.Context, actor *User, eventID string, now time.Time) (*Event, error)
	ListEvents(ctx context.Context, actor *User, now time.Time) ([]*Event, error)
	UpdateEvent(ctx context.Context, actor *User, eventID string, update EventUpdate, now time.Time) (*Event, error)
	DeleteEvent(ctx context.Context, actor *User, eventID string, now time.Time) error
	// ResolveAndPersist recomputes the effective status and writes it back if it changed.
	ResolveAndPersist(ctx context.Context, event *Event, now time.Time) (EventStatus, error)
}
