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

type userService struct {
	userRepo domain.UserRepository
	hasher   domain.PasswordHasher
	logger   *slog.Logger
}

// NewUserService creates the administrative UserService.
func NewUserService(userRepo domain.UserRepository, hasher domain.PasswordHasher, logger *slog.Logger) domain.UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{
		userRepo: userRepo,
		hasher:   hasher,
		logger:   logger,
	}
}

func (s *userService) CreateUser(ctx context.Context, input domain.UserInput, now time.Time) (*domain.User, error) {
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, invalid("unknown role %q", role)
	}
	user, err := newUserFromInput(input, role, s.hasher, now)
	if err != nil {
		return nil, err
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.InfoContext(ctx, "user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, userID string, update domain.UserUpdate, now time.Time) (*domain.User, error) {
	var user *domain.User
	err := s.userRepo.WithAdminLock(ctx, func(tx domain.UserTx) error {
		var err error
		if user, err = getUser(ctx, tx, userID); err != nil {
			return err
		}
		wasActiveAdmin := user.IsAdmin() && user.IsActive
		if err := s.applyUpdate(user, update); err != nil {
			return err
		}
		if wasActiveAdmin && (!user.IsAdmin() || !user.IsActive) {
			if err := ensureAnotherAdmin(ctx, tx, user.ID); err != nil {
				return err
			}
		}
		user.UpdatedAt = now
		return saveUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) applyUpdate(user *domain.User, update domain.UserUpdate) error {
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return invalid("name cannot be empty")
		}
		user.Name = name
	}
	if update.Email != nil {
		email, err := normalizeEmail(*update.Email)
		if err != nil {
			return err
		}
		user.Email = email
	}
	if update.Role != nil {
		if !update.Role.Valid() {
			return invalid("unknown role %q", *update.Role)
		}
		user.Role = *update.Role
	}
	if update.IsActive != nil {
		user.IsActive = *update.IsActive
	}
	if update.Password != nil {
		if err := s.setPassword(user, *update.Password); err != nil {
			return err
		}
	}
	return nil
}

func (s *userService) DeleteUser(ctx context.Context, userID string, now time.Time) error {
	err := s.userRepo.WithAdminLock(ctx, func(tx domain.UserTx) error {
		user, err := getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user.IsAdmin() && user.IsActive {
			if err := ensureAnotherAdmin(ctx, tx, user.ID); err != nil {
				return err
			}
		}
		if err := tx.Delete(ctx, userID, now); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "user deleted", "user_id", userID)
	return nil
}

func (s *userService) ToggleActive(ctx context.Context, userID string, now time.Time) (*domain.User, error) {
	var user *domain.User
	err := s.userRepo.WithAdminLock(ctx, func(tx domain.UserTx) error {
		var err error
		if user, err = getUser(ctx, tx, userID); err != nil {
			return err
		}
		if user.IsAdmin() && user.IsActive {
			if err := ensureAnotherAdmin(ctx, tx, user.ID); err != nil {
				return err
			}
		}
		user.IsActive = !user.IsActive
		user.UpdatedAt = now
		return saveUser(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func getUser(ctx context.Context, tx domain.UserTx, userID string) (*domain.User, error) {
	user, err := tx.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func saveUser(ctx context.Context, tx domain.UserTx, user *domain.User) error {
	if err := tx.Update(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) || errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *userService) setPassword(user *domain.User, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	salt, err := s.hasher.GenerateSalt()
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(salt, password)
	if err != nil {
		return err
	}
	user.Salt, user.PasswordHash = salt, hash
	return nil
}

// ensureAnotherAdmin returns ErrLastAdmin unless an active admin other than userID exists.
// It must run inside WithAdminLock.
func ensureAnotherAdmin(ctx context.Context, tx domain.UserTx, userID string) error {
	admins, err := tx.ListActiveAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}
	for _, a := range admins {
		if a.ID != userID {
			return nil
		}
	}
	return domain.ErrLastAdmin
}

// newUserFromInput validates the common account fields and hashes the password.
func newUserFromInput(input domain.UserInput, role domain.Role, hasher domain.PasswordHasher, now time.Time) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, err
	}
	salt, err := hasher.GenerateSalt()
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(salt, input.Password)
	if err != nil {
		return nil, err
	}
	user := domain.NewUser(email, name, role, now)
	user.Salt, user.PasswordHash = salt, hash
	return user, nil
}
