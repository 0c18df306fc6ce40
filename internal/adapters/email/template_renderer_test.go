package email

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/domain"
)

func TestTemplateRenderer_AllTemplates(t *testing.T) {
	r := NewTemplateRenderer(AppInfo{Name: "EventHub", URL: "https://events.example.com"})
	start := time.Date(2030, 6, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		template    string
		data        any
		wantSubject string
		wantInBody  string
	}{
		{
			name:     "registration confirmation in event zone",
			template: domain.TemplateRegistrationConfirmation,
			data: domain.RegistrationConfirmationData{
				UserName:  "Ana",
				EventName: "Go Meetup",
				StartTime: start,
				EndTime:   start.Add(2 * time.Hour),
				Timezone:  "America/Bogota",
			},
			wantSubject: "You're registered: Go Meetup",
			wantInBody:  "04:00",
		},
		{
			name:     "new participant",
			template: domain.TemplateNewParticipant,
			data: domain.NewParticipantData{
				OrganizerName:    "Olga",
				ParticipantName:  "Ana",
				ParticipantEmail: "ana@example.com",
				EventName:        "Go Meetup",
				RegisteredAt:     start,
			},
			wantSubject: "New participant for Go Meetup",
			wantInBody:  "ana@example.com",
		},
		{
			name:        "welcome",
			template:    domain.TemplateWelcome,
			data:        domain.WelcomeData{Name: "Ana"},
			wantSubject: "Welcome to EventHub",
			wantInBody:  "https://events.example.com",
		},
		{
			name:     "admin new user",
			template: domain.TemplateAdminNewUser,
			data: domain.AdminNewUserData{
				AdminName: "Root",
				UserName:  "Olga",
				UserEmail: "olga@example.com",
				Role:      domain.RoleOrganizer,
			},
			wantSubject: "New organizer account: Olga",
			wantInBody:  "olga@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, html, text, err := r.Render(tt.template, tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSubject, subject)
			assert.Contains(t, html, tt.wantInBody)
			assert.Contains(t, text, tt.wantInBody)
		})
	}
}

func TestTemplateRenderer_EscapesHTML(t *testing.T) {
	r := NewTemplateRenderer(AppInfo{Name: "EventHub"})
	_, html, text, err := r.Render(domain.TemplateWelcome, domain.WelcomeData{Name: "<b>x</b>"})
	require.NoError(t, err)
	assert.NotContains(t, html, "<b>x</b>")
	assert.Contains(t, text, "<b>x</b>")
}

func TestTemplateRenderer_UnknownTemplate(t *testing.T) {
	r := NewTemplateRenderer(AppInfo{})
	_, _, _, err := r.Render("nope", nil)
	assert.Error(t, err)
}

func TestTemplateRenderer_WrongPayload(t *testing.T) {
	r := NewTemplateRenderer(AppInfo{})
	_, _, _, err := r.Render(domain.TemplateRegistrationConfirmation, domain.WelcomeData{Name: "Ana"})
	assert.Error(t, err)
}
