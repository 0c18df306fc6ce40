package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateEventRequest is the request body for POST /events.
// start_time and end_time are RFC3339 or "2006-01-02T15:04[:05]" local to timezone.
type CreateEventRequest struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	MaxParticipants int     `json:"max_participants"`
	IsPrivate       bool    `json:"is_private"`
	CategoryID      *string `json:"category_id"`
	Timezone        string  `json:"timezone"`
}

// Validate implements Validator.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "name is required")
	}
	if c.StartTime == "" {
		errs = append(errs, "start_time is required")
	}
	if c.EndTime == "" {
		errs = append(errs, "end_time is required")
	}
	if c.MaxParticipants < 1 {
		errs = append(errs, "max_participants must be at least 1")
	}
	if c.CategoryID != nil && !helpers.IsUUID(*c.CategoryID) {
		errs = append(errs, "category_id must be a UUID")
	}
	return errs
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}. All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Name               *string `json:"name"`
	Description        *string `json:"description"`
	StartTime          *string `json:"start_time"`
	EndTime            *string `json:"end_time"`
	MaxParticipants    *int    `json:"max_participants"`
	IsPrivate          *bool   `json:"is_private"`
	CategoryID         *string `json:"category_id"` // "" detaches the category
	Timezone           *string `json:"timezone"`
	Status             *string `json:"status"` // "cancelled" or "archived"
	CancellationReason *string `json:"cancellation_reason"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name cannot be empty")
	}
	if u.MaxParticipants != nil && *u.MaxParticipants < 1 {
		errs = append(errs, "max_participants must be at least 1")
	}
	if u.CategoryID != nil && *u.CategoryID != "" && !helpers.IsUUID(*u.CategoryID) {
		errs = append(errs, "category_id must be a UUID")
	}
	if u.Status != nil {
		switch domain.EventStatus(*u.Status) {
		case domain.EventStatusCancelled:
			if u.CancellationReason == nil || strings.TrimSpace(*u.CancellationReason) == "" {
				errs = append(errs, "cancellation_reason is required when cancelling")
			}
		case domain.EventStatusArchived:
		default:
			errs = append(errs, `status can only be set to "cancelled" or "archived"`)
		}
	}
	return errs
}

// EventSuccessResponse is the success envelope for endpoints returning a single event.
type EventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventListSuccessResponse is the success envelope for GET /events.
type EventListSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
}

func NewEventController(logger *slog.Logger, svc domain.EventService) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
	}
}

// CreateEvent godoc
// @Summary Create an event
// @Description Admins and organizers only. The caller becomes the organizer. Times are stored in UTC.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	event, err := c.Service.CreateEvent(r.Context(), actor, domain.EventInput{
		Name:            req.Name,
		Description:     req.Description,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
		MaxParticipants: req.MaxParticipants,
		IsPrivate:       req.IsPrivate,
		CategoryID:      req.CategoryID,
		Timezone:        req.Timezone,
	}, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEvents godoc
// @Summary List visible events
// @Description Returns every live event the caller may see, with its current status.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.EventListSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	events, err := c.Service.ListEvents(r.Context(), actor, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if events == nil {
		events = []*domain.Event{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEvent godoc
// @Summary Get an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	event, err := c.Service.GetEvent(r.Context(), actor, eventID, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// UpdateEvent godoc
// @Summary Update an event
// @Description Admin or owning organizer. Schedule and capacity may change only while upcoming. Cancelling cancels every active registration.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to change"
// @Success 200 {object} controllers.EventSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: retry_later"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	update := domain.EventUpdate{
		Name:               req.Name,
		Description:        req.Description,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		MaxParticipants:    req.MaxParticipants,
		IsPrivate:          req.IsPrivate,
		CategoryID:         req.CategoryID,
		Timezone:           req.Timezone,
		CancellationReason: req.CancellationReason,
	}
	if req.Status != nil {
		status := domain.EventStatus(*req.Status)
		update.Status = &status
	}
	event, err := c.Service.UpdateEvent(r.Context(), actor, eventID, update, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Admins only. The event is soft-deleted.
// @Tags events
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 204
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := currentUser(w, r)
	if !ok {
		return
	}
	eventID, ok := helpers.PathID(w, r, "eventID")
	if !ok {
		return
	}
	if err := c.Service.DeleteEvent(r.Context(), actor, eventID, time.Now()); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
