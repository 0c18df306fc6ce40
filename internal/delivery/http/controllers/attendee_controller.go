package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

type AttendeeController struct {
	Logger  *slog.Logger
	Service domain.AttendeeService
}

func NewAttendeeController(logger *slog.Logger, svc domain.AttendeeService) *AttendeeController {
	return &AttendeeController{
		Logger:  logger,
		Service: svc,
	}
}

// RegistrationSuccessResponse is the success envelope for endpoints returning a single registration.
type RegistrationSuccessResponse struct {
	Data  *domain.EventRegistration `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// MyRegistrationsSuccessResponse is the success envelope for GET /me/registrations.
type MyRegistrationsSuccessResponse struct {
	Data  []*domain.EventRegistrationWithEvent `json:"data"`
	Error *helpers.APIError                    `json:"error"`
}

// ParticipantsSuccessResponse is the success envelope for GET /events/{eventID}/participants.
type ParticipantsSuccessResponse struct {
	Data  []*domain.Participant `json:"data"`
	Error *helpers.APIError     `json:"error"`
}

// CancelRegistrationRequest is the optional request body for POST /events/{eventID}/cancel-registration.
type CancelRegistrationRequest struct {
	Reason string `json:"reason"`
}

// CancelRegistrationResponse is the data returned after a cancellation.
type CancelRegistrationResponse struct {
	EventID string                    `json:"event_id"`
	UserID  string                    `json:"user_id"`
	Status  domain.RegistrationStatus `json:"status"`
}

// ParticipantRequest is the request body for POST /admin/events/{eventID}/force-register.
type ParticipantRequest struct {
	UserID string `json:"user_id"`
}

// Validate implements Validator.
func (p ParticipantRequest) Validate() []string {
	if !helpers.IsUUID(p.UserID) {
		return []string{"user_id must be a UUID"}
	}
	return nil
}

// RemoveParticipantRequest is the request body for DELETE /admin/events/{eventID}/remove-participant.
type RemoveParticipantRequest struct {
	UserID string `json:"user_id"`
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (p RemoveParticipantRequest) Validate() []string {
	var errs []string
	if !helpers.IsUUID(p.UserID) {
		errs = append(errs, "user_id must be a UUID")
	}
	if strings.TrimSpace(p.Reason) == "" {
		errs = append(errs, "reason is required")
	}
	return errs
}

// AttendanceRequest is the request body for POST /events/{eventID}/attendance.
type AttendanceRequest struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// Validate implements Validator.
func (a AttendanceRequest) Validate() []string {
	var errs []string
	if !helpers.IsUUID(a.UserID) {
		errs = append(errs, "user_id must be a UUID")
	}
	switch domain.RegistrationStatus(a.Status) {
	case domain.RegistrationAttended, domain.RegistrationNoShow:
	default:
		errs = append(errs, `status must be "attended" or "no_show"`)
	}
	return errs
}

// Register godoc
// @Summary Register the current user for an event
// @Description Refusals are reported with HTTP 422 and error.code set to the reason: event_not_open, user_inactive, event_full, schedule_conflict or already_registered.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 201 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: denial reason"
// @Failure 503 {object} helpers.APIResponse "error.code: retry_later"
// @Router /events/{eventID}/register [post]
func (c *AttendeeController) Register(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	reg, err := c.Service.Register(r.Context(), eventID, user.ID, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
}

// CancelRegistration godoc
// @Summary Cancel the current user's registration
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body CancelRegistrationRequest false "Optional reason"
// @Success 200 {object} helpers.APIResponse "data contains event_id, user_id and status"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (no active registration)"
// @Router /events/{eventID}/cancel-registration [post]
func (c *AttendeeController) CancelRegistration(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req CancelRegistrationRequest
	if !helpers.DecodeOptionalAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.Cancel(r.Context(), eventID, user.ID, req.Reason, time.Now()); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CancelRegistrationResponse{
		EventID: eventID,
		UserID:  user.ID,
		Status:  domain.RegistrationCancelled,
	})
}

// ListMyRegistrations godoc
// @Summary List the current user's registrations
// @Description Full history including cancelled rows, each with its event.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.MyRegistrationsSuccessResponse
// @Router /me/registrations [get]
func (c *AttendeeController) ListMyRegistrations(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := c.Service.ListMyRegistrations(r.Context(), user.ID, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if items == nil {
		items = []*domain.EventRegistrationWithEvent{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, items)
}

// ListParticipants godoc
// @Summary List an event's participants
// @Description Admin or owning organizer.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.ParticipantsSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/participants [get]
func (c *AttendeeController) ListParticipants(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	participants, err := c.Service.ListParticipants(r.Context(), actor, eventID)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if participants == nil {
		participants = []*domain.Participant{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, participants)
}

// MarkAttendance godoc
// @Summary Record attendance for a participant
// @Description Admin or owning organizer, once the event is ongoing or completed.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body AttendanceRequest true "Participant and outcome"
// @Success 200 {object} controllers.RegistrationSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID}/attendance [post]
func (c *AttendeeController) MarkAttendance(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req AttendanceRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, err := c.Service.MarkAttendance(r.Context(), actor, eventID, req.UserID, domain.RegistrationStatus(req.Status), time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// ForceRegister godoc
// @Summary Register a user for an event regardless of capacity
// @Description Admins only. Skips the capacity and schedule checks. Returns 201 when a registration is created, 200 when the user was already registered.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body ParticipantRequest true "User to register"
// @Success 200 {object} controllers.RegistrationSuccessResponse "Already registered"
// @Success 201 {object} controllers.RegistrationSuccessResponse "New registration created"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 422 {object} helpers.APIResponse "error.code: event_not_open"
// @Router /admin/events/{eventID}/force-register [post]
func (c *AttendeeController) ForceRegister(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req ParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	reg, created, err := c.Service.ForceRegister(r.Context(), eventID, req.UserID, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if created {
		helpers.WriteJSONSuccess(w, http.StatusCreated, reg)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// RemoveParticipant godoc
// @Summary Remove a participant from an event
// @Description Admins only. The registration is cancelled with the given reason.
// @Tags admin
// @Accept json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body RemoveParticipantRequest true "User and reason"
// @Success 204
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /admin/events/{eventID}/remove-participant [delete]
func (c *AttendeeController) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req RemoveParticipantRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := c.Service.RemoveParticipant(r.Context(), eventID, req.UserID, req.Reason, time.Now()); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
