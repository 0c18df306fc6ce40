package sqlite

import (
	"context"
	"database/sql"
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
	var role, created, updated string
	err := s.Scan(&u.ID, &u.Email, &u.Name, &role, &u.IsActive, &u.PasswordHash, &u.Salt, &created, &updated)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if u.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	id := newID()
	query := `
		INSERT INTO users (id, email, name, role, is_active, password_hash, salt, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.q.ExecContext(ctx, query,
		id, u.Email, u.Name, string(u.Role), u.IsActive, u.PasswordHash, u.Salt,
		formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	u.ID = id
	return nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? AND deleted_at IS NULL`, email))
	if err != nil {
		return nil, noRows(err)
	}
	return u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, err := scanUser(r.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? AND deleted_at IS NULL`, id))
	if err != nil {
		return nil, noRows(err)
	}
	return u, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query := `
		UPDATE users
		SET email = ?, name = ?, role = ?, is_active = ?, password_hash = ?, salt = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.q.ExecContext(ctx, query,
		u.Email, u.Name, string(u.Role), u.IsActive, u.PasswordHash, u.Salt, formatTime(u.UpdatedAt), u.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateEmail
		}
		return err
	}
	return affectedOrNotFound(result)
}

func (r *userRepository) Delete(ctx context.Context, id string, at time.Time) error {
	ts := formatTime(at)
	result, err := r.q.ExecContext(ctx,
		`UPDATE users SET deleted_at = ?, is_active = 0, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		ts, ts, id,
	)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}

func (r *userRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC, id ASC
	`)
}

func (r *userRepository) ListActiveAdmins(ctx context.Context) ([]*domain.User, error) {
	return r.list(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE role = 'admin' AND is_active = 1 AND deleted_at IS NULL
		ORDER BY created_at ASC
	`)
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

// WithAdminLock runs fn in a write transaction. Open starts every transaction with
// BEGIN IMMEDIATE, which takes the database write lock up front, so admin changes
// queue behind each other.
func (r *userRepository) WithAdminLock(ctx context.Context, fn func(tx domain.UserTx) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
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
