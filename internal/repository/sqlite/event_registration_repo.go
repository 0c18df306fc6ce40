package sqlite

import (
	"context"
	"database/sql"

	"eventhub/internal/domain"
)

type eventRegistrationRepository struct {
	DB *sql.DB
}

func NewEventRegistrationRepository(db *sql.DB) domain.EventRegistrationRepository {
	return &eventRegistrationRepository{DB: db}
}

func (r *eventRegistrationRepository) ListByUserID(ctx context.Context, userID string) ([]*domain.EventRegistration, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+registrationColumns+` FROM event_registrations WHERE user_id = ? ORDER BY created_at DESC`, userID)
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
	return regs, rows.Err()
}

// participantRow adapts a joined row so scanRegistration can read the registration part.
type participantRow struct {
	rows *sql.Rows
	p    *domain.Participant
}

func (pr participantRow) Scan(dest ...any) error {
	return pr.rows.Scan(append(dest, &pr.p.UserName, &pr.p.UserEmail)...)
}

func (r *eventRegistrationRepository) ListByEventID(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.event_id, r.user_id, r.status, r.cancelled_at, r.cancellation_reason, r.created_at, r.updated_at,
			u.name, u.email
		FROM event_registrations r
		INNER JOIN users u ON u.id = r.user_id
		WHERE r.event_id = ?
		ORDER BY r.created_at ASC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []*domain.Participant{}
	for rows.Next() {
		p := &domain.Participant{}
		reg, err := scanRegistration(participantRow{rows: rows, p: p})
		if err != nil {
			return nil, err
		}
		p.Registration = reg
		participants = append(participants, p)
	}
	return participants, rows.Err()
}
