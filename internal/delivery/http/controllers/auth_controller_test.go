package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

type fakeAuthService struct {
	lastInput domain.UserInput
	user      *domain.User
	token     string
	err       error
}

func (f *fakeAuthService) Register(_ context.Context, input domain.UserInput, _ time.Time) (*domain.User, string, error) {
	f.lastInput = input
	return f.user, f.token, f.err
}

func (f *fakeAuthService) Login(_ context.Context, _, _ string) (*domain.User, string, error) {
	return f.user, f.token, f.err
}

func (f *fakeAuthService) Me(_ context.Context, _ string) (*domain.User, error) {
	return f.user, f.err
}

func TestAuthController_Register(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		svcErr     error
		wantStatus int
		wantRole   domain.Role
	}{
		{"defaults to user", RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123"}, nil, http.StatusCreated, domain.RoleUser},
		{"organizer", RegisterRequest{Name: "Olga", Email: "olga@example.com", Password: "secret123", Role: "Organizer"}, nil, http.StatusCreated, domain.RoleOrganizer},
		{"admin refused", RegisterRequest{Name: "Eve", Email: "eve@example.com", Password: "secret123", Role: "admin"}, nil, http.StatusBadRequest, ""},
		{"missing fields", RegisterRequest{}, nil, http.StatusBadRequest, ""},
		{"duplicate email", RegisterRequest{Name: "Ana", Email: "ana@example.com", Password: "secret123"}, domain.ErrDuplicateEmail, http.StatusConflict, domain.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{user: &domain.User{ID: "u1"}, token: "tok", err: tt.svcErr}
			rr := httptest.NewRecorder()
			NewAuthController(testLogger(), svc).Register(rr, newRequest(t, http.MethodPost, "/auth/register", tt.body, nil, nil))

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantRole != "" {
				assert.Equal(t, tt.wantRole, svc.lastInput.Role)
			}
			if tt.wantStatus == http.StatusCreated {
				var resp TokenResponse
				decodeEnvelope(t, rr, &resp)
				assert.Equal(t, "tok", resp.Token)
				assert.Equal(t, "Bearer", resp.TokenType)
			}
		})
	}
}

func TestAuthController_Login(t *testing.T) {
	tests := []struct {
		name       string
		svcErr     error
		wantStatus int
		wantCode   string
	}{
		{"ok", nil, http.StatusOK, ""},
		{"bad password", domain.ErrInvalidCredentials, http.StatusUnauthorized, "unauthorized"},
		{"deactivated", domain.ErrUserInactive, http.StatusForbidden, "user_inactive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeAuthService{user: &domain.User{ID: "u1"}, token: "tok", err: tt.svcErr}
			rr := httptest.NewRecorder()
			NewAuthController(testLogger(), svc).Login(rr,
				newRequest(t, http.MethodPost, "/auth/login", LoginRequest{Email: "ana@example.com", Password: "secret123"}, nil, nil))
			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantCode != "" {
				apiErr := decodeEnvelope(t, rr, nil)
				require.NotNil(t, apiErr)
				assert.Equal(t, tt.wantCode, apiErr.Code)
			}
		})
	}
}

func TestAuthController_Me(t *testing.T) {
	ctrl := NewAuthController(testLogger(), &fakeAuthService{})

	rr := httptest.NewRecorder()
	ctrl.Me(rr, newRequest(t, http.MethodGet, "/me", nil, &domain.User{ID: "u1", Email: "ana@example.com", PasswordHash: "h"}, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "password")
	var u domain.User
	decodeEnvelope(t, rr, &u)
	assert.Equal(t, "ana@example.com", u.Email)

	rr = httptest.NewRecorder()
	ctrl.Me(rr, newRequest(t, http.MethodGet, "/me", nil, nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
