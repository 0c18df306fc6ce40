package services

import (
	"context"
	"fmt"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/registration"
)

// resolveAndPersist sets e.Status to the effective status and writes it back when it moved.
// The write is a compare-and-swap on the stored value; if another writer won, the event
// is re-read and resolved without writing.
func resolveAndPersist(ctx context.Context, repo domain.EventRepository, e *domain.Event, now time.Time) (domain.EventStatus, error) {
	status, changed := registration.NeedsWriteBack(e, now)
	if !changed {
		return status, nil
	}
	ok, err := repo.UpdateStatus(ctx, e.ID, e.Status, status, now)
	if err != nil {
		return e.Status, fmt.Errorf("persist event status: %w", err)
	}
	if !ok {
		fresh, err := repo.GetByID(ctx, e.ID)
		if err != nil {
			return e.Status, fmt.Errorf("reload event: %w", err)
		}
		*e = *fresh
		e.Status = registration.ResolveStatus(e, now)
		return e.Status, nil
	}
	e.Status = status
	e.UpdatedAt = now
	return status, nil
}

// resolveInTx is resolveAndPersist for code already holding a registration transaction.
func resolveInTx(ctx context.Context, tx domain.RegistrationTx, e *domain.Event, now time.Time) (domain.EventStatus, error) {
	status, changed := registration.NeedsWriteBack(e, now)
	if !changed {
		return status, nil
	}
	if err := tx.UpdateEventStatus(ctx, e.ID, status, now); err != nil {
		return e.Status, err
	}
	e.Status = status
	e.UpdatedAt = now
	return status, nil
}
