package registration

import (
	"time"

	"eventhub/internal/domain"
)

// ResolveStatus maps the stored status and the current time to the effective status.
// Cancelled and archived are terminal and never overridden by the clock.
func ResolveStatus(e *domain.Event, now time.Time) domain.EventStatus {
	switch {
	case e.Status == domain.EventStatusCancelled:
		return domain.EventStatusCancelled
	case e.Status == domain.EventStatusArchived:
		return domain.EventStatusArchived
	case !now.Before(e.EndTime):
		return domain.EventStatusCompleted
	case !now.Before(e.StartTime):
		return domain.EventStatusOngoing
	default:
		return domain.EventStatusUpcoming
	}
}

// NeedsWriteBack reports the effective status and whether it differs from the stored one.
func NeedsWriteBack(e *domain.Event, now time.Time) (domain.EventStatus, bool) {
	status := ResolveStatus(e, now)
	return status, status != e.Status
}
