package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/registration"
)

type eventService struct {
	eventRepo      domain.EventRepository
	categoryRepo   domain.CategoryRepository
	store          domain.RegistrationStore
	logger         *slog.Logger
	contextTimeout time.Duration
}

func NewEventService(
	eventRepo domain.EventRepository,
	categoryRepo domain.CategoryRepository,
	store domain.RegistrationStore,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &eventService{
		eventRepo:      eventRepo,
		categoryRepo:   categoryRepo,
		store:          store,
		logger:         logger,
		contextTimeout: timeout,
	}
}

func (s *eventService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.contextTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.contextTimeout)
}

func (s *eventService) CreateEvent(ctx context.Context, actor *domain.User, input domain.EventInput, now time.Time) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !actor.IsAdmin() && !actor.IsOrganizer() {
		return nil, domain.ErrForbidden
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	tz := strings.TrimSpace(input.Timezone)
	if tz == "" {
		tz = "UTC"
	}
	loc, err := loadLocation(tz)
	if err != nil {
		return nil, err
	}
	start, err := parseEventTime("start_time", input.StartTime, loc)
	if err != nil {
		return nil, err
	}
	end, err := parseEventTime("end_time", input.EndTime, loc)
	if err != nil {
		return nil, err
	}
	if err := validateWindow(start, end, now); err != nil {
		return nil, err
	}
	if input.MaxParticipants < 1 {
		return nil, invalid("max_participants must be at least 1")
	}
	categoryID, err := s.checkCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}

	event := domain.NewEvent(name, actor.ID, start, end, input.MaxParticipants, tz, now)
	event.Description = input.Description
	event.IsPrivate = input.IsPrivate
	event.CategoryID = categoryID
	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.InfoContext(ctx, "event created", "event_id", event.ID, "organizer_id", actor.ID)
	return event, nil
}

func (s *eventService) GetEvent(ctx context.Context, actor *domain.User, eventID string, now time.Time) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !canSee(actor, event) {
		return nil, domain.ErrForbidden
	}
	if _, err := s.ResolveAndPersist(ctx, event, now); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *eventService) ListEvents(ctx context.Context, actor *domain.User, now time.Time) ([]*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	events, err := s.eventRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	visible := make([]*domain.Event, 0, len(events))
	for _, e := range events {
		if !canSee(actor, e) {
			continue
		}
		if _, err := s.ResolveAndPersist(ctx, e, now); err != nil {
			return nil, err
		}
		visible = append(visible, e)
	}
	return visible, nil
}

// UpdateEvent applies the changes under the event lock, since capacity and the cancellation
// cascade affect concurrent registrations.
func (s *eventService) UpdateEvent(ctx context.Context, actor *domain.User, eventID string, update domain.EventUpdate, now time.Time) (*domain.Event, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var categoryID *string
	if update.CategoryID != nil {
		var err error
		if categoryID, err = s.checkCategory(ctx, update.CategoryID); err != nil {
			return nil, err
		}
	}
	var loc *time.Location
	if update.Timezone != nil {
		var err error
		if loc, err = loadLocation(strings.TrimSpace(*update.Timezone)); err != nil {
			return nil, err
		}
	}

	var updated *domain.Event
	var cancelled int64
	err := s.store.WithEventLock(ctx, eventID, func(tx domain.RegistrationTx) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			return err
		}
		if e.IsDeleted() {
			return domain.ErrNotFound
		}
		if !actor.CanManage(e) {
			return domain.ErrForbidden
		}
		effective, err := resolveInTx(ctx, tx, e, now)
		if err != nil {
			return fmt.Errorf("resolve status: %w", err)
		}

		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return invalid("name cannot be empty")
			}
			e.Name = name
		}
		if update.Description != nil {
			e.Description = update.Description
		}
		if update.IsPrivate != nil {
			e.IsPrivate = *update.IsPrivate
		}
		if update.CategoryID != nil {
			e.CategoryID = categoryID
		}
		if loc != nil {
			e.Timezone = loc.String()
		} else if loc, err = loadLocation(e.Timezone); err != nil {
			return err
		}

		if update.StartTime != nil || update.EndTime != nil || update.MaxParticipants != nil {
			if effective != domain.EventStatusUpcoming {
				return invalid("schedule and capacity can only change while the event is upcoming")
			}
			start, end := e.StartTime, e.EndTime
			if update.StartTime != nil {
				if start, err = parseEventTime("start_time", *update.StartTime, loc); err != nil {
					return err
				}
			}
			if update.EndTime != nil {
				if end, err = parseEventTime("end_time", *update.EndTime, loc); err != nil {
					return err
				}
			}
			if update.StartTime != nil || update.EndTime != nil {
				if err := validateWindow(start, end, now); err != nil {
					return err
				}
			}
			e.StartTime, e.EndTime = start, end
			if update.MaxParticipants != nil {
				// may drop below the active count; the capacity gate then stays closed
				if *update.MaxParticipants < 1 {
					return invalid("max_participants must be at least 1")
				}
				e.MaxParticipants = *update.MaxParticipants
			}
		}

		if update.Status != nil && *update.Status != effective {
			switch *update.Status {
			case domain.EventStatusCancelled:
				if effective != domain.EventStatusUpcoming && effective != domain.EventStatusOngoing {
					return invalid("a %s event cannot be cancelled", effective)
				}
				reason := ""
				if update.CancellationReason != nil {
					reason = strings.TrimSpace(*update.CancellationReason)
				}
				if reason == "" {
					return invalid("cancellation_reason is required to cancel an event")
				}
				e.Status = domain.EventStatusCancelled
				e.CancellationReason = &reason
				if cancelled, err = tx.CancelActiveRegistrations(ctx, e.ID, reason, now); err != nil {
					return fmt.Errorf("cancel registrations: %w", err)
				}
			case domain.EventStatusArchived:
				if effective != domain.EventStatusCompleted {
					return invalid("only completed events can be archived")
				}
				e.Status = domain.EventStatusArchived
			default:
				return invalid("status can only be changed to %q or %q", domain.EventStatusCancelled, domain.EventStatusArchived)
			}
		}

		e.UpdatedAt = now
		if err := tx.UpdateEvent(ctx, e); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = e
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrLockTimeout) {
			s.logger.WarnContext(ctx, "event lock not acquired", "op", "update_event", "event_id", eventID, "error", err)
		}
		return nil, err
	}
	if cancelled > 0 {
		s.logger.InfoContext(ctx, "event cancelled", "event_id", eventID, "registrations_cancelled", cancelled)
	}
	return updated, nil
}

func (s *eventService) DeleteEvent(ctx context.Context, actor *domain.User, eventID string, now time.Time) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	if err := s.eventRepo.SoftDelete(ctx, eventID, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	s.logger.InfoContext(ctx, "event deleted", "event_id", eventID)
	return nil
}

func (s *eventService) ResolveAndPersist(ctx context.Context, event *domain.Event, now time.Time) (domain.EventStatus, error) {
	return resolveAndPersist(ctx, s.eventRepo, event, now)
}

// checkCategory returns the category ID to store: nil for an empty value, otherwise an existing category.
func (s *eventService) checkCategory(ctx context.Context, categoryID *string) (*string, error) {
	if categoryID == nil || strings.TrimSpace(*categoryID) == "" {
		return nil, nil
	}
	id := strings.TrimSpace(*categoryID)
	if _, err := s.categoryRepo.GetByID(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, invalid("category %q does not exist", id)
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &id, nil
}

func validateWindow(start, end, now time.Time) error {
	if !start.After(now) {
		return invalid("start_time must be in the future")
	}
	if !(registration.Interval{Start: start, End: end}).Valid() {
		return invalid("end_time must be after start_time")
	}
	return nil
}

func canSee(actor *domain.User, e *domain.Event) bool {
	return !e.IsPrivate || (actor != nil && actor.CanManage(e))
}
