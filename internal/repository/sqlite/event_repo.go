package sqlite

import (
	"context"
	"database/sql"
	"time"

	"eventhub/internal/domain"
)

const eventColumns = `id, name, description, start_time, end_time, max_participants, status, is_private,
		category_id, organizer_id, timezone, cancellation_reason, created_at, updated_at, deleted_at`

type eventRepository struct {
	DB *sql.DB
}

func NewEventRepository(db *sql.DB) domain.EventRepository {
	return &eventRepository{DB: db}
}

func scanEvent(s rowScanner) (*domain.Event, error) {
	e := &domain.Event{}
	var descNull, categoryNull, reasonNull, deletedNull sql.NullString
	var status, start, end, created, updated string
	err := s.Scan(
		&e.ID, &e.Name, &descNull, &start, &end, &e.MaxParticipants, &status, &e.IsPrivate,
		&categoryNull, &e.OrganizerID, &e.Timezone, &reasonNull, &created, &updated, &deletedNull,
	)
	if err != nil {
		return nil, err
	}
	e.Status = domain.EventStatus(status)
	e.Description = stringPtr(descNull)
	e.CategoryID = stringPtr(categoryNull)
	e.CancellationReason = stringPtr(reasonNull)
	if e.StartTime, err = parseTime(start); err != nil {
		return nil, err
	}
	if e.EndTime, err = parseTime(end); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	if e.DeletedAt, err = parseNullTime(deletedNull); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *eventRepository) Create(ctx context.Context, e *domain.Event) error {
	id := newID()
	query := `
		INSERT INTO events (id, name, description, start_time, end_time, max_participants, status, is_private,
			category_id, organizer_id, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.DB.ExecContext(ctx, query,
		id, e.Name, nullString(e.Description), formatTime(e.StartTime), formatTime(e.EndTime), e.MaxParticipants,
		string(e.Status), e.IsPrivate, nullString(e.CategoryID), e.OrganizerID, e.Timezone,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt),
	)
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ? AND deleted_at IS NULL`
	e, err := scanEvent(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, noRows(err)
	}
	return e, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE deleted_at IS NULL ORDER BY start_time ASC`
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
	result, err := r.DB.ExecContext(ctx,
		`UPDATE events SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), formatTime(at), id, string(from),
	)
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
	ts := formatTime(at)
	result, err := r.DB.ExecContext(ctx,
		`UPDATE events SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}
