package registration

import (
	"errors"
	"fmt"

	"eventhub/internal/domain"
)

// ErrInvalidTransition is returned for a registration state change that is not allowed.
var ErrInvalidTransition = errors.New("invalid registration transition")

var transitions = map[domain.RegistrationStatus][]domain.RegistrationStatus{
	domain.RegistrationRegistered: {
		domain.RegistrationCancelled,
		domain.RegistrationAttended,
		domain.RegistrationNoShow,
	},
}

// CanTransition reports whether a registration may move from one status to another.
// Only registered rows move; cancelled, attended and no_show are terminal.
func CanTransition(from, to domain.RegistrationStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition wrapped with the offending pair.
func CheckTransition(from, to domain.RegistrationStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
