package helpers

import (
	"errors"
	"log/slog"
	"net/http"

	"eventhub/internal/domain"
	"eventhub/internal/registration"
)

// WriteServiceError maps an error returned by a service to the JSON envelope.
// Unrecognised errors are logged and reported as a generic 500.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if d, ok := registration.AsDenial(err); ok {
		WriteJSONError(w, http.StatusUnprocessableEntity, string(d.Reason), d.Reason.Message())
		return
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteJSONError(w, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	case errors.Is(err, domain.ErrForbidden):
		WriteJSONError(w, http.StatusForbidden, ErrCodeForbidden, "forbidden")
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, registration.ErrInvalidTransition):
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, domain.ErrLockTimeout):
		w.Header().Set("Retry-After", "1")
		WriteJSONError(w, http.StatusServiceUnavailable, ErrCodeRetryLater, "the event is busy, please retry")
	case errors.Is(err, domain.ErrLastAdmin):
		WriteJSONError(w, http.StatusConflict, ErrCodeLastAdmin, domain.ErrLastAdmin.Error())
	case errors.Is(err, domain.ErrDuplicateEmail):
		WriteJSONError(w, http.StatusConflict, ErrCodeDuplicateEmail, domain.ErrDuplicateEmail.Error())
	case errors.Is(err, domain.ErrDuplicateName):
		WriteJSONError(w, http.StatusConflict, ErrCodeDuplicateName, domain.ErrDuplicateName.Error())
	case errors.Is(err, domain.ErrConflict):
		WriteJSONError(w, http.StatusConflict, ErrCodeConflict, "conflict")
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteJSONError(w, http.StatusUnauthorized, ErrCodeUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrUserInactive):
		WriteJSONError(w, http.StatusForbidden, ErrCodeUserInactive, domain.ErrUserInactive.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
	}
}
