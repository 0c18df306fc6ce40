package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type authService struct {
	userRepo    domain.UserRepository
	hasher      domain.PasswordHasher
	tokenIssuer domain.TokenIssuer
	tokenExpiry time.Duration
	notifier    domain.Notifier
	logger      *slog.Logger
}

// NewAuthService creates an AuthService. notifier may be nil.
func NewAuthService(
	userRepo domain.UserRepository,
	hasher domain.PasswordHasher,
	tokenIssuer domain.TokenIssuer,
	tokenExpiry time.Duration,
	notifier domain.Notifier,
	logger *slog.Logger,
) domain.AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		userRepo:    userRepo,
		hasher:      hasher,
		tokenIssuer: tokenIssuer,
		tokenExpiry: tokenExpiry,
		notifier:    notifier,
		logger:      logger,
	}
}

// Register creates a self-service account. Only the user and organizer roles can be chosen.
func (s *authService) Register(ctx context.Context, input domain.UserInput, now time.Time) (*domain.User, string, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if role != domain.RoleUser && role != domain.RoleOrganizer {
		return nil, "", invalid("role must be %q or %q", domain.RoleUser, domain.RoleOrganizer)
	}
	user, err := newUserFromInput(input, role, s.hasher, now)
	if err != nil {
		return nil, "", err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Role, s.tokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	s.notifyRegistered(ctx, user)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("failed to get user: %w", err)
	}
	if err := s.hasher.Compare(user.PasswordHash, user.Salt, password); err != nil {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, "", domain.ErrUserInactive
	}
	token, err := s.tokenIssuer.Issue(user.ID, user.Email, user.Role, s.tokenExpiry)
	if err != nil {
		return nil, "", fmt.Errorf("failed to sign token: %w", err)
	}
	return user, token, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// notifyRegistered queues the welcome mail and an alert to every active admin.
func (s *authService) notifyRegistered(ctx context.Context, user *domain.User) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Enqueue(domain.TemplateWelcome, domain.Recipient{Email: user.Email, Name: user.Name},
		domain.WelcomeData{Name: user.Name}); err != nil {
		s.logger.WarnContext(ctx, "notification not queued", "template", domain.TemplateWelcome, "user_id", user.ID, "error", err)
	}

	admins, err := s.userRepo.ListActiveAdmins(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "admins not notified", "user_id", user.ID, "error", err)
		return
	}
	for _, admin := range admins {
		data := domain.AdminNewUserData{
			AdminName: admin.Name,
			UserName:  user.Name,
			UserEmail: user.Email,
			Role:      user.Role,
		}
		if err := s.notifier.Enqueue(domain.TemplateAdminNewUser, domain.Recipient{Email: admin.Email, Name: admin.Name}, data); err != nil {
			s.logger.WarnContext(ctx, "notification not queued", "template", domain.TemplateAdminNewUser, "admin_id", admin.ID, "error", err)
		}
	}
}
