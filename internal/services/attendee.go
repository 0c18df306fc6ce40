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

// Fault stages reported on *registration.Fault.
const (
	stageLoadUser     = "load_user"
	stageLock         = "lock"
	stageLoadEvent    = "load_event"
	stageResolve      = "resolve_status"
	stageCount        = "count_active"
	stageOverlap      = "check_overlap"
	stageDuplicate    = "check_duplicate"
	stageCreate       = "create_registration"
	stageTransition   = "transition_registration"
	stageTransaction  = "transaction"
	stageListByEvent  = "list_participants"
	stageListByUser   = "list_registrations"
	stageLoadOrganize = "load_organizer"
)

type attendeeService struct {
	store            domain.RegistrationStore
	eventRepo        domain.EventRepository
	registrationRepo domain.EventRegistrationRepository
	userRepo         domain.UserRepository
	notifier         domain.Notifier
	logger           *slog.Logger
}

// NewAttendeeService creates the registration coordinator. notifier may be nil.
func NewAttendeeService(
	store domain.RegistrationStore,
	eventRepo domain.EventRepository,
	registrationRepo domain.EventRegistrationRepository,
	userRepo domain.UserRepository,
	notifier domain.Notifier,
	logger *slog.Logger,
) domain.AttendeeService {
	if logger == nil {
		logger = slog.Default()
	}
	return &attendeeService{
		store:            store,
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

// Register runs the full admission check under the event lock: status, user, capacity,
// schedule conflict and duplicate, then inserts the registration.
func (s *attendeeService) Register(ctx context.Context, eventID, userID string, now time.Time) (*domain.EventRegistration, error) {
	user, err := s.loadUser(ctx, eventID, userID)
	if err != nil {
		return nil, err
	}

	var reg *domain.EventRegistration
	var event *domain.Event
	err = s.store.WithEventLock(ctx, eventID, func(tx domain.RegistrationTx) error {
		e, err := s.openEvent(ctx, tx, user, eventID, now)
		if err != nil {
			return err
		}

		active, err := tx.CountActiveRegistrations(ctx, eventID)
		if err != nil {
			return s.fault(stageCount, eventID, userID, err)
		}
		if !registration.HasAvailableSpot(active, e.MaxParticipants) {
			return registration.Deny(registration.EventFull)
		}

		conflict, err := tx.HasOverlappingRegistration(ctx, userID, e.StartTime, e.EndTime, eventID)
		if err != nil {
			return s.fault(stageOverlap, eventID, userID, err)
		}
		if conflict {
			return registration.Deny(registration.ScheduleConflict)
		}

		if _, err := tx.GetActiveRegistration(ctx, eventID, userID); err == nil {
			return registration.Deny(registration.AlreadyRegistered)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return s.fault(stageDuplicate, eventID, userID, err)
		}

		r := domain.NewEventRegistration(eventID, userID, now)
		if err := tx.CreateRegistration(ctx, r); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return registration.Deny(registration.AlreadyRegistered)
			}
			return s.fault(stageCreate, eventID, userID, err)
		}
		reg, event = r, e
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, "register", eventID, userID, err)
	}

	s.notifyRegistered(ctx, event, user, reg)
	return reg, nil
}

// ForceRegister is the admin override: it takes the same lock and still refuses closed
// events and inactive users, but skips capacity, conflict and duplicate checks.
// An existing registration is returned unchanged with created=false.
func (s *attendeeService) ForceRegister(ctx context.Context, eventID, userID string, now time.Time) (*domain.EventRegistration, bool, error) {
	user, err := s.loadUser(ctx, eventID, userID)
	if err != nil {
		return nil, false, err
	}

	var reg *domain.EventRegistration
	var event *domain.Event
	created := false
	err = s.store.WithEventLock(ctx, eventID, func(tx domain.RegistrationTx) error {
		e, err := s.openEvent(ctx, tx, user, eventID, now)
		if err != nil {
			return err
		}

		existing, err := tx.GetActiveRegistration(ctx, eventID, userID)
		if err == nil {
			reg, event = existing, e
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return s.fault(stageDuplicate, eventID, userID, err)
		}

		r := domain.NewEventRegistration(eventID, userID, now)
		if err := tx.CreateRegistration(ctx, r); err != nil {
			return s.fault(stageCreate, eventID, userID, err)
		}
		reg, event, created = r, e, true
		return nil
	})
	if err != nil {
		return nil, false, s.finish(ctx, "force_register", eventID, userID, err)
	}

	if created {
		s.logger.InfoContext(ctx, "participant force-registered", "event_id", eventID, "user_id", userID)
		s.notifyRegistered(ctx, event, user, reg)
	}
	return reg, created, nil
}

// Cancel withdraws the user's own registration. reason is optional.
func (s *attendeeService) Cancel(ctx context.Context, eventID, userID, reason string, now time.Time) error {
	var reasonPtr *string
	if r := strings.TrimSpace(reason); r != "" {
		reasonPtr = &r
	}
	return s.cancel(ctx, "cancel", eventID, userID, reasonPtr, now)
}

// RemoveParticipant cancels a participant's registration on behalf of an admin.
func (s *attendeeService) RemoveParticipant(ctx context.Context, eventID, userID, reason string, now time.Time) error {
	r := strings.TrimSpace(reason)
	if r == "" {
		return invalid("a reason is required to remove a participant")
	}
	if err := s.cancel(ctx, "remove_participant", eventID, userID, &r, now); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "participant removed", "event_id", eventID, "user_id", userID)
	return nil
}

// cancel only shrinks the active count, so it needs no event lock: the status flip is a
// compare-and-swap on the registered row.
func (s *attendeeService) cancel(ctx context.Context, op, eventID, userID string, reason *string, now time.Time) error {
	err := s.store.WithTx(ctx, func(tx domain.RegistrationTx) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return s.fault(stageLoadEvent, eventID, userID, err)
		}
		if e.IsDeleted() {
			return domain.ErrNotFound
		}

		reg, err := tx.GetActiveRegistration(ctx, eventID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return s.fault(stageDuplicate, eventID, userID, err)
		}
		changed, err := tx.TransitionRegistration(ctx, reg.ID, domain.RegistrationRegistered, domain.RegistrationCancelled, reason, now)
		if err != nil {
			return s.fault(stageTransition, eventID, userID, err)
		}
		if !changed {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return s.finish(ctx, op, eventID, userID, err)
	}
	return nil
}

// MarkAttendance records attended or no_show once the event has started.
func (s *attendeeService) MarkAttendance(ctx context.Context, actor *domain.User, eventID, userID string, status domain.RegistrationStatus, now time.Time) (*domain.EventRegistration, error) {
	if status != domain.RegistrationAttended && status != domain.RegistrationNoShow {
		return nil, invalid("attendance status must be %q or %q", domain.RegistrationAttended, domain.RegistrationNoShow)
	}

	var reg *domain.EventRegistration
	err := s.store.WithTx(ctx, func(tx domain.RegistrationTx) error {
		e, err := tx.GetEvent(ctx, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return s.fault(stageLoadEvent, eventID, userID, err)
		}
		if e.IsDeleted() {
			return domain.ErrNotFound
		}
		if !actor.CanManage(e) {
			return domain.ErrForbidden
		}
		effective, err := resolveInTx(ctx, tx, e, now)
		if err != nil {
			return s.fault(stageResolve, eventID, userID, err)
		}
		if effective != domain.EventStatusOngoing && effective != domain.EventStatusCompleted {
			return invalid("attendance can only be recorded once the event has started")
		}

		r, err := tx.GetActiveRegistration(ctx, eventID, userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNotFound
			}
			return s.fault(stageDuplicate, eventID, userID, err)
		}
		if err := registration.CheckTransition(r.Status, status); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		changed, err := tx.TransitionRegistration(ctx, r.ID, r.Status, status, nil, now)
		if err != nil {
			return s.fault(stageTransition, eventID, userID, err)
		}
		if !changed {
			return domain.ErrConflict
		}
		r.Status = status
		r.UpdatedAt = now
		reg = r
		return nil
	})
	if err != nil {
		return nil, s.finish(ctx, "mark_attendance", eventID, userID, err)
	}
	return reg, nil
}

func (s *attendeeService) ListMyRegistrations(ctx context.Context, userID string, now time.Time) ([]*domain.EventRegistrationWithEvent, error) {
	regs, err := s.registrationRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, s.finish(ctx, "list_my_registrations", "", userID, s.fault(stageListByUser, "", userID, err))
	}
	eventsByID := make(map[string]*domain.Event)
	result := make([]*domain.EventRegistrationWithEvent, 0, len(regs))
	for _, reg := range regs {
		ev, ok := eventsByID[reg.EventID]
		if !ok {
			ev, err = s.eventRepo.GetByID(ctx, reg.EventID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					// soft-deleted event; the registration stays as history
					continue
				}
				return nil, fmt.Errorf("get event for registration: %w", err)
			}
			if _, err := resolveAndPersist(ctx, s.eventRepo, ev, now); err != nil {
				return nil, err
			}
			eventsByID[reg.EventID] = ev
		}
		result = append(result, &domain.EventRegistrationWithEvent{Registration: reg, Event: ev})
	}
	return result, nil
}

func (s *attendeeService) ListParticipants(ctx context.Context, actor *domain.User, eventID string) ([]*domain.Participant, error) {
	e, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	if !actor.CanManage(e) {
		return nil, domain.ErrForbidden
	}
	participants, err := s.registrationRepo.ListByEventID(ctx, eventID)
	if err != nil {
		return nil, s.finish(ctx, "list_participants", eventID, "", s.fault(stageListByEvent, eventID, "", err))
	}
	return participants, nil
}

// loadUser runs before the event lock is taken; the embedded store has a single
// connection which the locked transaction holds.
func (s *attendeeService) loadUser(ctx context.Context, eventID, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, s.finish(ctx, "load_user", eventID, userID, s.fault(stageLoadUser, eventID, userID, err))
	}
	return user, nil
}

// openEvent performs steps shared by organic and forced registration: re-read the event
// under the lock, resolve its status, and refuse closed events and inactive users.
func (s *attendeeService) openEvent(ctx context.Context, tx domain.RegistrationTx, user *domain.User, eventID string, now time.Time) (*domain.Event, error) {
	e, err := tx.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, s.fault(stageLoadEvent, eventID, user.ID, err)
	}
	if e.IsDeleted() {
		return nil, registration.Deny(registration.EventNotOpen)
	}
	status, err := resolveInTx(ctx, tx, e, now)
	if err != nil {
		return nil, s.fault(stageResolve, eventID, user.ID, err)
	}
	if status != domain.EventStatusUpcoming {
		return nil, registration.Deny(registration.EventNotOpen)
	}
	if !user.IsActive {
		return nil, registration.Deny(registration.UserInactive)
	}
	return e, nil
}

func (s *attendeeService) fault(stage, eventID, userID string, err error) error {
	return &registration.Fault{Stage: stage, EventID: eventID, UserID: userID, Err: err}
}

// finish classifies the outcome of an operation: denials and expected domain errors pass
// through quietly, faults are logged in full.
func (s *attendeeService) finish(ctx context.Context, op, eventID, userID string, err error) error {
	if d, ok := registration.AsDenial(err); ok {
		s.logger.DebugContext(ctx, "registration denied", "op", op, "event_id", eventID, "user_id", userID, "reason", d.Reason)
		return err
	}

	var f *registration.Fault
	if !errors.As(err, &f) {
		switch {
		case errors.Is(err, domain.ErrLockTimeout):
			f = &registration.Fault{Stage: stageLock, EventID: eventID, UserID: userID, Err: err}
		case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden),
			errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrConflict):
			return err
		default:
			f = &registration.Fault{Stage: stageTransaction, EventID: eventID, UserID: userID, Err: err}
		}
	}

	if errors.Is(f, domain.ErrLockTimeout) {
		s.logger.WarnContext(ctx, "event lock not acquired", "op", op, "event_id", f.EventID, "user_id", f.UserID, "error", f.Err)
	} else {
		s.logger.ErrorContext(ctx, "registration fault", "op", op, "stage", f.Stage, "event_id", f.EventID, "user_id", f.UserID, "error", f.Err)
	}
	return f
}

// notifyRegistered queues the participant confirmation and the organizer alert.
// Failures are logged; the registration is already committed.
func (s *attendeeService) notifyRegistered(ctx context.Context, e *domain.Event, user *domain.User, reg *domain.EventRegistration) {
	if s.notifier == nil {
		return
	}
	description := ""
	if e.Description != nil {
		description = *e.Description
	}
	s.enqueue(ctx, domain.TemplateRegistrationConfirmation, domain.Recipient{Email: user.Email, Name: user.Name},
		domain.RegistrationConfirmationData{
			UserName:    user.Name,
			EventName:   e.Name,
			Description: description,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Timezone:    e.Timezone,
		})

	organizer, err := s.userRepo.GetByID(ctx, e.OrganizerID)
	if err != nil {
		s.logger.WarnContext(ctx, "organizer not notified", "stage", stageLoadOrganize, "event_id", e.ID, "organizer_id", e.OrganizerID, "error", err)
		return
	}
	s.enqueue(ctx, domain.TemplateNewParticipant, domain.Recipient{Email: organizer.Email, Name: organizer.Name},
		domain.NewParticipantData{
			OrganizerName:    organizer.Name,
			ParticipantName:  user.Name,
			ParticipantEmail: user.Email,
			EventName:        e.Name,
			RegisteredAt:     reg.CreatedAt,
		})
}

func (s *attendeeService) enqueue(ctx context.Context, template string, to domain.Recipient, payload any) {
	if err := s.notifier.Enqueue(template, to, payload); err != nil {
		s.logger.WarnContext(ctx, "notification not queued", "template", template, "to", to.Email, "error", err)
	}
}
