package domain

import (
	"context"
	"time"
)

// Role is the application role of a user.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleUser      Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOrganizer || r == RoleUser
}

// User represents a registered user
// swagger:model User
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	IsActive     bool       `json:"is_active"`
	PasswordHash string     `json:"-"`
	Salt         string     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// NewUser returns an active User with the given fields. ID is typically set by the repository on create.
func NewUser(email, name string, role Role, createdAt time.Time) *User {
	return &User{
		Email:     email,
		Name:      name,
		Role:      role,
		IsActive:  true,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

func (u *User) IsOrganizer() bool { return u.Role == RoleOrganizer }

// CanManage reports whether u may manage the event: admins always, organizers only their own.
func (u *User) CanManage(e *Event) bool {
	return u.IsAdmin() || (u.IsOrganizer() && e.OrganizerID == u.ID)
}

// PasswordHasher handles salt generation, hashing, and verification.
type PasswordHasher interface {
	GenerateSalt() (string, error)
	Hash(salt, password string) (hash string, err error)
	Compare(hash, salt, password string) error
}

// TokenIssuer issues tokens (e.g. JWT) for an authenticated user.
type TokenIssuer interface {
	Issue(userID, email string, role Role, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the authenticated user ID.
type TokenVerifier interface {
	Verify(token string) (userID string, err error)
}

// UserRepository defines the interface for user storage. Soft-deleted users are never returned.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string, at time.Time) error
	List(ctx context.Context) ([]*User, error)
	ListActiveAdmins(ctx context.Context) ([]*User, error)
	// WithAdminLock runs fn in one transaction. Concurrent WithAdminLock calls are
	// serialized, so a check of the active admins inside fn holds until fn's writes commit.
	WithAdminLock(ctx context.Context, fn func(tx UserTx) error) error
}

// UserTx is the part of UserRepository available inside WithAdminLock.
type UserTx interface {
	GetByID(ctx context.Context, id string) (*User, error)
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string, at time.Time) error
	ListActiveAdmins(ctx context.Context) ([]*User, error)
}

// UserInput carries the fields for creating a user.
type UserInput struct {
	Name     string
	Email    string
	Password string
	Role     Role
	IsActive *bool
}

// UserUpdate carries optional changes to a user. Nil fields are left unchanged.
type UserUpdate struct {
	Name     *string
	Email    *string
	Password *string
	Role     *Role
	IsActive *bool
}

// UserService defines administrative user management. At least one active admin always remains.
type UserService interface {
	CreateUser(ctx context.Context, input UserInput, now time.Time) (*User, error)
	ListUsers(ctx context.Context) ([]*User, error)
	UpdateUser(ctx context.Context, userID string, update UserUpdate, now time.Time) (*User, error)
	DeleteUser(ctx context.Context, userID string, now time.Time) error
	ToggleActive(ctx context.Context, userID string, now time.Time) (*User, error)
}

// AuthService defines self-service account operations.
type AuthService interface {
	Register(ctx context.Context, input UserInput, now time.Time) (*User, string, error)
	Login(ctx context.Context, email, password string) (*User, string, error)
	Me(ctx context.Context, userID string) (*User, error)
}
