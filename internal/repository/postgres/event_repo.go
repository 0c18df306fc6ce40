package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventhub/internal/domain"
)

const eventColumns = `id, name, description, start_time, end_time, max_participants, status, is_private,
		category_id, organizer_id, timezone, cancellation_reason, created_at, updated_at, deleted_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{
		DB: db,
	}
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, categoryNull, reasonNull sql.NullString
	var deletedNull sql.NullTime
	var status string
	err := s.Scan(
		&e.ID, &e.Name, &descNull, &e.StartTime, &e.EndTime, &e.MaxParticipants, &status, &e.IsPrivate,
		&categoryNull, &e.OrganizerID, &e.Timezone, &reasonNull, &e.CreatedAt, &e.UpdatedAt, &deletedNull,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	e.Description = stringPtr(descNull)
	e.CategoryID = stringPtr(categoryNull)
	e.CancellationReason = stringPtr(reasonNull)
	e.DeletedAt = timePtr(deletedNull)
	e.StartTime = e.StartTime.UTC()
	e.EndTime = e.EndTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	query := `
		INSERT INTO events (name, description, start_time, end_time, max_participants, status, is_private,
			category_id, organizer_id, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id
	`
	return r.DB.QueryRowContext(ctx, query,
		e.Name, nullString(e.Description), e.StartTime, e.EndTime, e.MaxParticipants, string(e.Status), e.IsPrivate,
		nullString(e.CategoryID), e.OrganizerID, e.Timezone, e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE id = $1 AND deleted_at IS NULL
	`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE deleted_at IS NULL
		ORDER BY start_time ASC
	`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := make([]*domain.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *eventRepository) UpdateStatus(ctx context.Context, id string, from, to domain.EventStatus, at time.Time) (bool, error) {
	query := `
		UPDATE events SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`
	result, err := r.DB.ExecContext(ctx, query, string(to), at, id, string(from))
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *eventRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE events SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`
	result, err := r.DB.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
