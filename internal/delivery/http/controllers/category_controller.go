package controllers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// CategoryRequest is the request body for POST /categories and PUT /categories/{categoryID}.
type CategoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// Validate implements Validator.
func (c CategoryRequest) Validate() []string {
	if strings.TrimSpace(c.Name) == "" {
		return []string{"name is required"}
	}
	return nil
}

type CategoryController struct {
	Logger  *slog.Logger
	Service domain.CategoryService
}

func NewCategoryController(logger *slog.Logger, svc domain.CategoryService) *CategoryController {
	return &CategoryController{Logger: logger, Service: svc}
}

// ListCategories godoc
// @Summary List categories
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Success 200 {object} helpers.APIResponse "data is an array of categories"
// @Router /categories [get]
func (c *CategoryController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.Service.ListCategories(r.Context())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	if categories == nil {
		categories = []*domain.EventCategory{}
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, categories)
}

// GetCategory godoc
// @Summary Get a category
// @Tags categories
// @Produce json
// @Security BearerAuth
// @Param categoryID path string true "Category ID (UUID)"
// @Success 200 {object} helpers.APIResponse "data is the category"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /categories/{categoryID} [get]
func (c *CategoryController) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "categoryID")
	if !ok {
		return
	}
	category, err := c.Service.GetCategory(r.Context(), id)
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CategoryRequest true "Category data"
// @Success 201 {object} helpers.APIResponse "data is the created category"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_name"
// @Router /categories [post]
func (c *CategoryController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	category, err := c.Service.CreateCategory(r.Context(), req.Name, req.Description, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param categoryID path string true "Category ID (UUID)"
// @Param body body CategoryRequest true "Category data"
// @Success 200 {object} helpers.APIResponse "data is the updated category"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: duplicate_name"
// @Router /categories/{categoryID} [put]
func (c *CategoryController) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "categoryID")
	if !ok {
		return
	}
	var req CategoryRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	category, err := c.Service.UpdateCategory(r.Context(), id, &req.Name, req.Description, time.Now())
	if err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, category)
}

// DeleteCategory godoc
// @Summary Delete a category
// @Description Events in the category are detached, not deleted.
// @Tags categories
// @Security BearerAuth
// @Param categoryID path string true "Category ID (UUID)"
// @Success 204
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Router /categories/{categoryID} [delete]
func (c *CategoryController) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := helpers.PathID(w, r, "categoryID")
	if !ok {
		return
	}
	if err := c.Service.DeleteCategory(r.Context(), id); err != nil {
		helpers.WriteServiceError(w, r, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
