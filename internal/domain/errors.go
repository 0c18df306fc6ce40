package domain

import "errors"

// Sentinel errors shared by services, stores and the HTTP layer.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConflict           = errors.New("conflict")
	ErrLockTimeout        = errors.New("event is busy, retry later")
	ErrLastAdmin          = errors.New("cannot remove the last active admin")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateName      = errors.New("name already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("account is deactivated")
)
