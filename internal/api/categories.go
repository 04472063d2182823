package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"finboard/internal/core"
)

// ListCategories fetches categories, optionally filtered by kind.
func (c *Client) ListCategories(ctx context.Context, token string, kind core.TransactionKind) ([]core.Category, error) {
	q := url.Values{}
	if kind != "" {
		q.Set("type", string(kind))
	}
	var cats []core.Category
	if err := c.do(ctx, http.MethodGet, "/api/categories/", token, q, nil, &cats); err != nil {
		return nil, err
	}
	return cats, nil
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, token string, in core.Category) (core.Category, error) {
	var cat core.Category
	if err := c.do(ctx, http.MethodPost, "/api/categories/", token, nil, in, &cat); err != nil {
		return core.Category{}, err
	}
	return cat, nil
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/categories/%d/", id), token, nil, nil, nil)
}
