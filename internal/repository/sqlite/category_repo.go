package sqlite

import (
	"context"
	"database/sql"

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
	var created, updated string
	if err := s.Scan(&c.ID, &c.Name, &c.Slug, &descNull, &created, &updated); err != nil {
		return nil, err
	}
	c.Description = stringPtr(descNull)
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, err
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *categoryRepository) Create(ctx context.Context, c *domain.EventCategory) error {
	id := newID()
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO event_categories (id, name, slug, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, c.Name, c.Slug, nullString(c.Description), formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return err
	}
	c.ID = id
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.EventCategory, error) {
	c, err := scanCategory(r.DB.QueryRowContext(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM event_categories WHERE id = ?`, id))
	if err != nil {
		return nil, noRows(err)
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
	result, err := r.DB.ExecContext(ctx,
		`UPDATE event_categories SET name = ?, slug = ?, description = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Slug, nullString(c.Description), formatTime(c.UpdatedAt), c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return err
	}
	return affectedOrNotFound(result)
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM event_categories WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affectedOrNotFound(result)
}
