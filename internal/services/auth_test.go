package services

import (
	"context"
	"testing"

	"eventhub/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	repo := newMockUserRepository(adminUser("root"), adminUser("backup"))
	svc := NewAuthService(repo, plainHasher{}, stubIssuer{}, 0, notifier, discardLogger())

	u, token, err := svc.Register(ctx, domain.UserInput{Name: "Org", Email: "org@example.com", Password: "password1", Role: domain.RoleOrganizer}, base)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOrganizer, u.Role)
	assert.Equal(t, "token-"+u.ID, token)

	assert.Equal(t, []string{domain.TemplateWelcome, domain.TemplateAdminNewUser, domain.TemplateAdminNewUser}, notifier.templates())
	assert.Equal(t, "org@example.com", notifier.sent[0].Recipient.Email)
	assert.Equal(t, "backup@example.com", notifier.sent[1].Recipient.Email)
	assert.Equal(t, domain.AdminNewUserData{AdminName: "backup", UserName: "Org", UserEmail: "org@example.com", Role: domain.RoleOrganizer}, notifier.sent[1].Payload)

	_, _, err = svc.Register(ctx, domain.UserInput{Name: "Sneaky", Email: "sneaky@example.com", Password: "password1", Role: domain.RoleAdmin}, base)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	active := domain.NewUser("active@example.com", "Active", domain.RoleUser, base)
	active.ID, active.Salt, active.PasswordHash = "active", "salt", "salt:password1"
	inactive := domain.NewUser("inactive@example.com", "Inactive", domain.RoleUser, base)
	inactive.ID, inactive.Salt, inactive.PasswordHash, inactive.IsActive = "inactive", "salt", "salt:password1", false
	svc := NewAuthService(newMockUserRepository(active, inactive), plainHasher{}, stubIssuer{}, 0, nil, discardLogger())

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{name: "success with mixed-case email", email: " Active@Example.com ", password: "password1"},
		{name: "wrong password", email: "active@example.com", password: "nope", wantErr: domain.ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: "password1", wantErr: domain.ErrInvalidCredentials},
		{name: "inactive account", email: "inactive@example.com", password: "password1", wantErr: domain.ErrUserInactive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, token, err := svc.Login(ctx, tt.email, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "active", u.ID)
			assert.Equal(t, "token-active", token)
		})
	}
}
