package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/registration"
)

const registrationColumns = `id, event_id, user_id, status, cancelled_at, cancellation_reason, created_at, updated_at`

// registrationStore serializes registration transactions per event with an in-process
// lock table; SQLite itself only offers a database-wide write lock.
type registrationStore struct {
	DB          *sql.DB
	locks       *registration.LockTable
	lockTimeout time.Duration
}

func NewRegistrationStore(db *sql.DB, lockTimeout time.Duration) domain.RegistrationStore {
	return &registrationStore{
		DB:          db,
		locks:       registration.NewLockTable(),
		lockTimeout: lockTimeout,
	}
}

func (s *registrationStore) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.RegistrationTx) error) error {
	lockCtx := ctx
	if s.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.lockTimeout)
		defer cancel()
	}
	release, err := s.locks.Acquire(lockCtx, eventID)
	if err != nil {
		return fmt.Errorf("%w: event %s: %v", domain.ErrLockTimeout, eventID, err)
	}
	defer release()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		var id string
		if err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, eventID).Scan(&id); err != nil {
			return noRows(err)
		}
		return fn(&registrationTx{tx: tx})
	})
}

func (s *registrationStore) WithTx(ctx context.Context, fn func(tx domain.RegistrationTx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&registrationTx{tx: tx})
	})
}

func (s *registrationStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: begin transaction: %v", domain.ErrLockTimeout, err)
		}
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type registrationTx struct {
	tx *sql.Tx
}

func scanRegistration(s rowScanner) (*domain.EventRegistration, error) {
	reg := &domain.EventRegistration{}
	var status, created, updated string
	var cancelledNull, reasonNull sql.NullString
	err := s.Scan(&reg.ID, &reg.EventID, &reg.UserID, &status, &cancelledNull, &reasonNull, &created, &updated)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.CancellationReason = stringPtr(reasonNull)
	if reg.CancelledAt, err = parseNullTime(cancelledNull); err != nil {
		return nil, err
	}
	if reg.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if reg.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return reg, nil
}

func (t *registrationTx) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	e, err := scanEvent(t.tx.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, eventID))
	if err != nil {
		return nil, noRows(err)
	}
	return e, nil
}

func (t *registrationTx) UpdateEventStatus(ctx context.Context, eventID string, status domain.EventStatus, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(at), eventID)
	return err
}

func (t *registrationTx) UpdateEvent(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET name = ?, description = ?, start_time = ?, end_time = ?, max_participants = ?,
			status = ?, is_private = ?, category_id = ?, timezone = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := t.tx.ExecContext(ctx, query,
		e.Name, nullString(e.Description), formatTime(e.StartTime), formatTime(e.EndTime), e.MaxParticipants,
		string(e.Status), e.IsPrivate, nullString(e.CategoryID), e.Timezone, nullString(e.CancellationReason),
		formatTime(e.UpdatedAt), e.ID,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

func (t *registrationTx) CountActiveRegistrations(ctx context.Context, eventID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = ? AND status = 'registered'`, eventID,
	).Scan(&n)
	return n, err
}

// HasOverlappingRegistration loads the windows of the user's live registrations on other
// events and checks them against [start, end).
func (t *registrationTx) HasOverlappingRegistration(ctx context.Context, userID string, start, end time.Time, excludeEventID string) (bool, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT e.start_time, e.end_time
		FROM event_registrations r
		INNER JOIN events e ON e.id = r.event_id
		WHERE r.user_id = ?
		  AND r.status <> 'cancelled'
		  AND e.deleted_at IS NULL
		  AND e.id <> ?
	`, userID, excludeEventID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var windows []registration.Interval
	for rows.Next() {
		var startText, endText string
		if err := rows.Scan(&startText, &endText); err != nil {
			return false, err
		}
		var w registration.Interval
		if w.Start, err = parseTime(startText); err != nil {
			return false, err
		}
		if w.End, err = parseTime(endText); err != nil {
			return false, err
		}
		windows = append(windows, w)
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return registration.AnyOverlap(registration.Interval{Start: start, End: end}, windows), nil
}

func (t *registrationTx) GetActiveRegistration(ctx context.Context, eventID, userID string) (*domain.EventRegistration, error) {
	reg, err := scanRegistration(t.tx.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE event_id = ? AND user_id = ? AND status = 'registered'`,
		eventID, userID,
	))
	if err != nil {
		return nil, noRows(err)
	}
	return reg, nil
}

func (t *registrationTx) CreateRegistration(ctx context.Context, reg *domain.EventRegistration) error {
	id := newID()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO event_registrations (id, event_id, user_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, reg.EventID, reg.UserID, string(reg.Status), formatTime(reg.CreatedAt), formatTime(reg.UpdatedAt))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	reg.ID = id
	return nil
}

func (t *registrationTx) TransitionRegistration(ctx context.Context, regID string, from, to domain.RegistrationStatus, reason *string, at time.Time) (bool, error) {
	var cancelledAt, reasonNull sql.NullString
	if to == domain.RegistrationCancelled {
		cancelledAt = nullTime(&at)
		reasonNull = nullString(reason)
	}
	result, err := t.tx.ExecContext(ctx, `
		UPDATE event_registrations
		SET status = ?, cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(to), cancelledAt, reasonNull, formatTime(at), regID, string(from))
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (t *registrationTx) CancelActiveRegistrations(ctx context.Context, eventID, reason string, at time.Time) (int64, error) {
	ts := formatTime(at)
	result, err := t.tx.ExecContext(ctx, `
		UPDATE event_registrations
		SET status = 'cancelled', cancelled_at = ?, cancellation_reason = ?, updated_at = ?
		WHERE event_id = ? AND status = 'registered'
	`, ts, reason, ts, eventID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
