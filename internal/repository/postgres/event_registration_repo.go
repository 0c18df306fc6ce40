package postgres

import (
	"context"
	"database/sql"

	"eventhub/internal/domain"
)

type eventRegistrationRepository struct {
	DB *sql.DB
}

func NewEventRegistrationRepository(db *sql.DB) domain.EventRegistrationRepository {
	return &eventRegistrationRepository{
		DB: db,
	}
}

func (r *eventRegistrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.EventRegistration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM event_registrations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.EventRegistration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

func (r *eventRegistrationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	query := `
		SELECT r.id, r.event_id, r.user_id, r.status, r.cancelled_at, r.cancellation_reason, r.created_at, r.updated_at,
			u.name, u.email
		FROM event_registrations r
		INNER JOIN users u ON u.id = r.user_id
		WHERE r.event_id = $1
		ORDER BY r.created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []*domain.Participant{}
	for rows.Next() {
		p := &domain.Participant{Registration: &domain.EventRegistration{}}
		reg := p.Registration
		var status string
		var cancelledNull sql.NullTime
		var reasonNull sql.NullString
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.UserID, &status, &cancelledNull, &reasonNull,
			&reg.CreatedAt, &reg.UpdatedAt, &p.UserName, &p.UserEmail); err != nil {
			return nil, err
		}
		reg.Status = domain.RegistrationStatus(status)
		reg.CancelledAt = timePtr(cancelledNull)
		reg.CancellationReason = stringPtr(reasonNull)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
