package registration

import (
	"errors"
	"fmt"
)

// DenialReason is the closed set of business-rule refusals of a registration attempt.
type DenialReason string

const (
	EventNotOpen      DenialReason = "event_not_open"
	UserInactive      DenialReason = "user_inactive"
	EventFull         DenialReason = "event_full"
	ScheduleConflict  DenialReason = "schedule_conflict"
	AlreadyRegistered DenialReason = "already_registered"
)

var denialMessages = map[DenialReason]string{
	EventNotOpen:      "This event is not open for registration.",
	UserInactive:      "Your account is inactive and cannot register for events.",
	EventFull:         "This event has reached its maximum participant limit.",
	ScheduleConflict:  "You have another event scheduled during this time period.",
	AlreadyRegistered: "You are already registered for this event.",
}

// Message returns the user-facing text for the reason.
func (r DenialReason) Message() string {
	if m, ok := denialMessages[r]; ok {
		return m
	}
	return string(r)
}

// Denial is an expected refusal; it is returned as an error value but is not a fault.
type Denial struct {
	Reason DenialReason
}

func (d *Denial) Error() string {
	return "registration denied: " + string(d.Reason)
}

// Deny returns a Denial for reason.
func Deny(reason DenialReason) error {
	return &Denial{Reason: reason}
}

// AsDenial extracts a Denial from err.
func AsDenial(err error) (*Denial, bool) {
	var d *Denial
	if errors.As(err, &d) {
		return d, true
	}
	return nil, false
}

// IsDenied reports whether err is a Denial with the given reason.
func IsDenied(err error, reason DenialReason) bool {
	d, ok := AsDenial(err)
	return ok && d.Reason == reason
}

// Fault is an infrastructure failure during a registration operation, annotated with
// where it happened. It unwraps to the cause so callers can test for domain.ErrLockTimeout.
type Fault struct {
	Stage   string
	EventID string
	UserID  string
	Err     error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("registration %s (event %s, user %s): %v", f.Stage, f.EventID, f.UserID, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }
