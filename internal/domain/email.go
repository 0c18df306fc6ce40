package domain

import (
	"context"
	"time"
)

// Notification template names.
const (
	TemplateRegistrationConfirmation = "registration_confirmation"
	TemplateNewParticipant           = "new_participant"
	TemplateWelcome                  = "welcome"
	TemplateAdminNewUser             = "admin_new_user"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// Recipient identifies who a notification goes to.
type Recipient struct {
	Email string
	Name  string
}

// Notifier queues notifications for asynchronous delivery. Enqueue never blocks on delivery;
// a returned error means the notification was not queued.
type Notifier interface {
	Enqueue(template string, recipient Recipient, payload any) error
}

// RegistrationConfirmationData is the payload for TemplateRegistrationConfirmation.
type RegistrationConfirmationData struct {
	UserName    string
	EventName   string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Timezone    string
}

// NewParticipantData is the payload for TemplateNewParticipant.
type NewParticipantData struct {
	OrganizerName    string
	ParticipantName  string
	ParticipantEmail string
	EventName        string
	RegisteredAt     time.Time
}

// WelcomeData is the payload for TemplateWelcome.
type WelcomeData struct {
	Name string
}

// AdminNewUserData is the payload for TemplateAdminNewUser.
type AdminNewUserData struct {
	AdminName string
	UserName  string
	UserEmail string
	Role      Role
}
