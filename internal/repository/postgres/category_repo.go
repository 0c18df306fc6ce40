package postgres

import (
	"context"
	"database/sql"
	"errors"

	"eventhub/internal/domain"
)

type categoryRepository struct {
	DB *sql.DB
}

func NewCategoryRepository(db *sql.DB) domain.CategoryRepository {
	return &categoryRepository{DB: db}
}

func scanCategory(s rowScanner) (*domain.EventCategory, error) {
	c := &domain.EventCategory{}
	var descNull sql.NullString
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &descNull, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Description = stringPtr(descNull)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.EventCategory) error {
	query := `
		INSERT INTO event_categories (name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.DB.QueryRowContext(ctx, query, c.Name, c.Slug, nullString(c.Description), c.CreatedAt, c.UpdatedAt).Scan(&c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return err
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.EventCategory, error) {
	query := `SELECT id, name, slug, description, created_at, updated_at FROM event_categories WHERE id = $1`
	c, err := scanCategory(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.EventCategory, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM event_categories ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []*domain.EventCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *categoryRepository) Update(ctx context.Context, c *domain.EventCategory) error {
	query := `
		UPDATE event_categories
		SET name = $1, slug = $2, description = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := r.DB.ExecContext(ctx, query, c.Name, c.Slug, nullString(c.Description), c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
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

// Delete removes the category; events referencing it are detached by the foreign key.
func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_categories WHERE id = $1`, id)
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
