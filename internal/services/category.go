package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventhub/internal/domain"
)

type categoryService struct {
	categoryRepo domain.CategoryRepository
}

func NewCategoryService(categoryRepo domain.CategoryRepository) domain.CategoryService {
	return &categoryService{categoryRepo: categoryRepo}
}

func (s *categoryService) CreateCategory(ctx context.Context, name string, description *string, now time.Time) (*domain.EventCategory, error) {
	name = strings.TrimSpace(name)
	slug := slugify(name)
	if slug == "" {
		return nil, invalid("name must contain letters or digits")
	}
	c := &domain.EventCategory{
		Name:        name,
		Slug:        slug,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.categoryRepo.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) {
			return nil, err
		}
		return nil, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (s *categoryService) GetCategory(ctx context.Context, id string) (*domain.EventCategory, error) {
	return s.categoryRepo.GetByID(ctx, id)
}

func (s *categoryService) ListCategories(ctx context.Context) ([]*domain.EventCategory, error) {
	return s.categoryRepo.List(ctx)
}

func (s *categoryService) UpdateCategory(ctx context.Context, id string, name, description *string, now time.Time) (*domain.EventCategory, error) {
	c, err := s.categoryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != nil {
		n := strings.TrimSpace(*name)
		slug := slugify(n)
		if slug == "" {
			return nil, invalid("name must contain letters or digits")
		}
		c.Name, c.Slug = n, slug
	}
	if description != nil {
		c.Description = description
	}
	c.UpdatedAt = now
	if err := s.categoryRepo.Update(ctx, c); err != nil {
		if errors.Is(err, domain.ErrDuplicateName) || errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, id string) error {
	return s.categoryRepo.Delete(ctx, id)
}
