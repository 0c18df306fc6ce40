package controllers

import (
	"net/http"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// currentUser returns the authenticated user or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return nil, false
	}
	return user, true
}
