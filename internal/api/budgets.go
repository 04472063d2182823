package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// BudgetFilter narrows a budget listing by the month/year the budget
// starts in.
type BudgetFilter struct {
	Year  int
	Month int
}

func (f BudgetFilter) query() url.Values {
	q := url.Values{}
	if f.Year > 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month > 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	return q
}

// BudgetInput is the write payload for creating or updating a budget.
type BudgetInput struct {
	Name      string           `json:"name"`
	Limit     decimal.Decimal  `json:"amount"`
	Category  core.CategoryRef `json:"category"`
	StartDate core.Date        `json:"start_date"`
	EndDate   core.Date        `json:"end_date"`
}

// ListBudgets fetches the user's budgets.
func (c *Client) ListBudgets(ctx context.Context, token string, filter BudgetFilter) ([]core.Budget, error) {
	var budgets []core.Budget
	if err := c.do(ctx, http.MethodGet, "/api/budgets/", token, filter.query(), nil, &budgets); err != nil {
		return nil, err
	}
	return budgets, nil
}

// CreateBudget creates a budget.
func (c *Client) CreateBudget(ctx context.Context, token string, in BudgetInput) (core.Budget, error) {
	var b core.Budget
	if err := c.do(ctx, http.MethodPost, "/api/budgets/", token, nil, in, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// UpdateBudget replaces a budget.
func (c *Client) UpdateBudget(ctx context.Context, token string, id int64, in BudgetInput) (core.Budget, error) {
	var b core.Budget
	path := fmt.Sprintf("/api/budgets/%d/", id)
	if err := c.do(ctx, http.MethodPut, path, token, nil, in, &b); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

// DeleteBudget removes a budget.
func (c *Client) DeleteBudget(ctx context.Context, token string, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/budgets/%d/", id), token, nil, nil, nil)
}
