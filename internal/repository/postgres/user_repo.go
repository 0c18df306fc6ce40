package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"eventhub/internal/domain"
)

const userColumns = `id, email, name, role, is_active, password_hash, salt, created_at, updated_at`

type userRepository struct {
	DB *sql.DB
	// q is DB, or the transaction inside WithAdminLock.
	q queryer
}

func NewUserRepository(db *sql.DB) domain.UserRepository {
	return &userRepository{DB: db, q: db}
}

func scanUser(s rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var role string
	err := s.Scan(&u.ID, &u.Email, &u.Name, &role, &u.IsActive, &u.PasswordHash, &u.Salt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (email, name, role, is_active, password_hash, salt, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := r.q.QueryRowContext(ctx, query,
		u.Email, u.Name, string(u.Role), u.IsActive, u.PasswordHash, u.Salt, u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`
	return r.getOne(ctx, query, email)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`
	return r.getOne(ctx, query, id)
}

func (r *userRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, role = $3, is_active = $4, password_hash = $5, salt = $6, updated_at = $7
		WHERE id = $8 AND deleted_at IS NULL
	`
	result, err := r.q.ExecContext(ctx, query,
		u.Email, u.Name, string(u.Role), u.IsActive, u.PasswordHash, u.Salt, u.UpdatedAt, u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete soft-deletes the user. Registrations are kept for history.
func (r *userRepository) Delete(ctx context.Context, id string, at time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET deleted_at = $1, is_active = FALSE, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`,
		at, id,
	)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns every user that is not soft-deleted, oldest first.
func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`
	return r.list(ctx, query)
}

func (r *userRepository) ListActiveAdmins(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE role = 'admin' AND is_active AND deleted_at IS NULL
		ORDER BY created_at ASC
	`
	return r.list(ctx, query)
}

func (r *userRepository) list(ctx context.Context, query string) ([]*domain.User, error) {
	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]*domain.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// WithAdminLock takes row locks on every active admin before running fn. A concurrent
// call blocks on those rows and, once it gets them, sees the committed admin set.
func (r *userRepository) WithAdminLock(ctx context.Context, fn func(tx domain.UserTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := lockAdmins(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := fn(&userRepository{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// lockAdmins locks in id order so that two callers never hold each other's rows.
func lockAdmins(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM users
		WHERE role = 'admin' AND is_active AND deleted_at IS NULL
		ORDER BY id
		FOR UPDATE
	`)
	if err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock admins: %w", err)
	}
	return nil
}
