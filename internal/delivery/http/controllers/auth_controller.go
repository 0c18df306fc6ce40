package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// RegisterRequest is the request body for POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // optional: "user" or "organizer" (defaults to "user")
}

// Validate implements Validator.
func (s RegisterRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(s.Name) == "" {
		errs = append(errs, "name is required")
	}
	if strings.TrimSpace(s.Email) == "" {
		errs = append(errs, "email is required")
	}
	if s.Password == "" {
		errs = append(errs, "password is required")
	}
	switch domain.Role(strings.ToLower(strings.TrimSpace(s.Role))) {
	case "", domain.RoleUser, domain.RoleOrganizer:
	default:
		errs = append(errs, `role must be "user" or "organizer"`)
	}
	return errs
}

// LoginRequest is the request body for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate implements Validator.
func (l LoginRequest) Validate() []string {
	var errs []string
	if strings.TrimSpace(l.Email) == "" {
		errs = append(errs, "email is required")
	}
	if l.Password == "" {
		errs = append(errs, "password is required")
	}
	return errs
}

// TokenResponse is the data returned by register and login.
type TokenResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *domain.User `json:"user"`
}

// TokenSuccessResponse is the success response envelope for POST /auth/register and POST /auth/login.
type TokenSuccessResponse struct {
	Data  TokenResponse     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UserSuccessResponse is the success envelope for endpoints returning a single user.
type UserSuccessResponse struct {
	Data  *domain.User      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

type AuthController struct {
	Logger  *slog.Logger
	Service domain.AuthService
}

func NewAuthController(logger *slog.Logger, svc domain.AuthService) *AuthController {
	return &AuthController{
		Logger:  logger,
		Service: svc,
	}
}

// Register godoc
// @Summary Create an account
// @Description Creates a user or organizer account and returns a bearer token. Admin accounts are created by admins only.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "Account data"
// @Success 201 {object} controllers.TokenSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_email"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/register [post]
func (c *AuthController) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	role := domain.Role(strings.ToLower(strings.TrimSpace(req.Role)))
	if role == "" {
		role = domain.RoleUser
	}
	user, token, err := c.Service.Register(r.Context(), domain.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     role,
	}, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, TokenResponse{Token: token, TokenType: "Bearer", User: user})
}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password. Deactivated accounts are rejected.
// @Tags auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Login credentials"
// @Success 200 {object} controllers.TokenSuccessResponse
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: user_inactive"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /auth/login [post]
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	user, token, err := c.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, TokenResponse{Token: token, TokenType: "Bearer", User: user})
}

// Me godoc
// @Summary Get the current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.UserSuccessResponse
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Router /me [get]
func (c *AuthController) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, user)
}
