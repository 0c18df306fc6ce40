package postgres

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

// registrationStore serializes registration transactions per event with a row lock
// (SELECT ... FOR UPDATE) on the event record. lock_timeout bounds the wait.
type registrationStore struct {
	DB          *sql.DB
	lockTimeout time.Duration
}

func NewRegistrationStore(db *sql.DB, lockTimeout time.Duration) domain.RegistrationStore {
	return &registrationStore{
		DB:          db,
		lockTimeout: lockTimeout,
	}
}

func (s *registrationStore) WithEventLock(ctx context.Context, eventID string, fn func(tx domain.RegistrationTx) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if s.lockTimeout > 0 {
			setTimeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
			if _, err := tx.ExecContext(ctx, setTimeout); err != nil {
				return fmt.Errorf("set lock timeout: %w", err)
			}
		}
		var id string
		err := tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrNotFound
			}
			return lockError(ctx, err)
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
		return fmt.Errorf("begin transaction: %w", lockError(ctx, err))
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
	var status string
	var cancelledNull sql.NullTime
	var reasonNull sql.NullString
	err := s.Scan(&reg.ID, &reg.EventID, &reg.UserID, &status, &cancelledNull, &reasonNull, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	reg.CancelledAt = timePtr(cancelledNull)
	reg.CancellationReason = stringPtr(reasonNull)
	reg.CreatedAt = reg.CreatedAt.UTC()
	reg.UpdatedAt = reg.UpdatedAt.UTC()
	return reg, nil
}

func (t *registrationTx) GetEvent(ctx context.Context, eventID string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(t.tx.QueryRowContext(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (t *registrationTx) UpdateEventStatus(ctx context.Context, eventID string, status domain.EventStatus, at time.Time) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE events SET status = $1, updated_at = $2 WHERE id = $3`, string(status), at, eventID)
	return err
}

func (t *registrationTx) UpdateEvent(ctx context.Context, e *domain.Event) error {
	query := `
		UPDATE events SET name = $1, description = $2, start_time = $3, end_time = $4, max_participants = $5,
			status = $6, is_private = $7, category_id = $8, timezone = $9, cancellation_reason = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := t.tx.ExecContext(ctx, query,
		e.Name, nullString(e.Description), e.StartTime, e.EndTime, e.MaxParticipants,
		string(e.Status), e.IsPrivate, nullString(e.CategoryID), e.Timezone, nullString(e.CancellationReason), e.UpdatedAt,
		e.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (t *registrationTx) CountActiveRegistrations(ctx context.Context, eventID string) (int, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = $1 AND status = 'registered'`, eventID,
	).Scan(&n)
	return n, err
}

// HasOverlappingRegistration loads the windows of the user's live registrations on other
// events and checks them against [start, end).
func (t *registrationTx) HasOverlappingRegistration(ctx context.Context, userID string, start, end time.Time, excludeEventID string) (bool, error) {
	query := `
		SELECT e.start_time, e.end_time
		FROM event_registrations r
		INNER JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		  AND r.status <> 'cancelled'
		  AND e.deleted_at IS NULL
		  AND e.id::text <> $2
	`
	rows, err := t.tx.QueryContext(ctx, query, userID, excludeEventID)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var windows []registration.Interval
	for rows.Next() {
		var w registration.Interval
		if err := rows.Scan(&w.Start, &w.End); err != nil {
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
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE event_id = $1 AND user_id = $2 AND status = 'registered'
	`
	reg, err := scanRegistration(t.tx.QueryRowContext(ctx, query, eventID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (t *registrationTx) CreateRegistration(ctx context.Context, reg *domain.EventRegistration) error {
	query := `
		INSERT INTO event_registrations (event_id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := t.tx.QueryRowContext(ctx, query, reg.EventID, reg.UserID, string(reg.Status), reg.CreatedAt, reg.UpdatedAt).
		Scan(&reg.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return err
	}
	return nil
}

func (t *registrationTx) TransitionRegistration(ctx context.Context, regID string, from, to domain.RegistrationStatus, reason *string, at time.Time) (bool, error) {
	var cancelledAt sql.NullTime
	var reasonNull sql.NullString
	if to == domain.RegistrationCancelled {
		cancelledAt = sql.NullTime{Time: at, Valid: true}
		reasonNull = nullString(reason)
	}
	query := `
		UPDATE event_registrations
		SET status = $1, cancelled_at = $2, cancellation_reason = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`
	result, err := t.tx.ExecContext(ctx, query, string(to), cancelledAt, reasonNull, at, regID, string(from))
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
	query := `
		UPDATE event_registrations
		SET status = 'cancelled', cancelled_at = $1, cancellation_reason = $2, updated_at = $1
		WHERE event_id = $3 AND status = 'registered'
	`
	result, err := t.tx.ExecContext(ctx, query, at, reason, eventID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
