package domain

import (
	"context"
	"time"
)

// EventCategory groups events. Deleting a category detaches its events.
// swagger:model EventCategory
type EventCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CategoryRepository defines the interface for category storage.
type CategoryRepository interface {
	Create(ctx context.Context, c *EventCategory) error
	GetByID(ctx context.Context, id string) (*EventCategory, error)
	List(ctx context.Context) ([]*EventCategory, error)
	Update(ctx context.Context, c *EventCategory) error
	Delete(ctx context.Context, id string) error
}

// CategoryService defines category management.
type CategoryService interface {
	CreateCategory(ctx context.Context, name string, description *string, now time.Time) (*EventCategory, error)
	GetCategory(ctx context.Context, id string) (*EventCategory, error)
	ListCategories(ctx context.Context) ([]*EventCategory, error)
	UpdateCategory(ctx context.Context, id string, name, description *string, now time.Time) (*EventCategory, error)
	DeleteCategory(ctx context.Context, id string) error
}
