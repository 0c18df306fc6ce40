package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CreateUserRequest is the request body for POST /admin/users.
type CreateUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	IsActive *bool  `json:"is_active"`
}

// Validate implements Validator.
func (u CreateUserRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(u.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(u.Email) == "" {
		errs = append(errs, "email is required")
	}
	if u.Password == "" {
		errs = append(errs, "password is required")
	}
	if !domain.Role(u.Role).Valid() {
		errs = append(errs, `role must be "admin", "organizer" or "user"`)
	}
	return errs
}

// UpdateUserRequest is the request body for PUT /admin/users/{userID}. All fields are optional.
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// Validate implements Validator.
func (u UpdateUserRequest) Validate() []string {
	var errs []string
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		errs = append(errs, "name cannot be empty")
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) == "" {
		errs = append(errs, "email cannot be empty")
	}
	if u.Role != nil && !domain.Role(*u.Role).Valid() {
		errs = append(errs, `role must be "admin", "organizer" or "user"`)
	}
	return errs
}

// UserListSuccessResponse is the success envelope for GET /admin/users.
type UserListSuccessResponse struct {
	Data  []*domain.User    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserController handles administrative user management.
type UserController struct {
	Logger  *slog.Logger
	Service domain.UserService
}

func NewUserController(logger *slog.Logger, svc domain.UserService) *UserController {
	return &UserController{
		Logger:  logger,
		Service: svc,
	}
}

// ListUsers godoc
// @Summary List users
// @Description Returns every account that has not been deleted, oldest first.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserListSuccessResponse
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Router /admin/users [get]
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.Service.ListUsers(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, users)
}

// CreateUser godoc
// @Summary Create a user
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CreateUserRequest true "User data"
// @Success 201 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_email"
// @Router /admin/users [post]
func (c *UserController) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, err := c.Service.CreateUser(r.Context(), domain.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     domain.Role(req.Role),
		IsActive: req.IsActive,
	}, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, user)
}

// UpdateUser godoc
// @Summary Update a user
// @Description Demoting or deactivating the last active admin is refused with last_admin.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Param body body UpdateUserRequest true "Fields to change"
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: last_admin or duplicate_email"
// @Router /admin/users/{userID} [put]
func (c *UserController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathID(w, r, "userID")
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	update := domain.UserUpdate{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: req.IsActive,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		update.Role = &role
	}
	user, err := c.Service.UpdateUser(r.Context(), userID, update, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}

// DeleteUser godoc
// @Summary Delete a user
// @Tags admin
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: last_admin"
// @Router /admin/users/{userID} [delete]
func (c *UserController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathID(w, r, "userID")
	if !ok {
		return
	}
	if err := c.Service.DeleteUser(r.Context(), userID, time.Now()); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleActive godoc
// @Summary Activate or deactivate a user
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param userID path string true "User ID (UUID)"
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: last_admin"
// @Router /admin/users/{userID}/toggle-active [post]
func (c *UserController) ToggleActive(w http.ResponseWriter, r *http.Request) {
	userID, ok := helpers.PathID(w, r, "userID")
	if !ok {
		return
	}
	user, err := c.Service.ToggleActive(r.Context(), userID, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
