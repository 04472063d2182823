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

// TransactionFilter narrows a transaction listing. Zero fields are omitted
// from the query.
type TransactionFilter struct {
	Year      int
	Month     int
	Category  int64
	Recurring *bool
}

func (f TransactionFilter) query() url.Values {
	q := url.Values{}
	if f.Year > 0 {
		q.Set("year", strconv.Itoa(f.Year))
	}
	if f.Month > 0 {
		q.Set("month", strconv.Itoa(f.Month))
	}
	if f.Category > 0 {
		q.Set("category", strconv.FormatInt(f.Category, 10))
	}
	if f.Recurring != nil {
		q.Set("is_recurring", strconv.FormatBool(*f.Recurring))
	}
	return q
}

// TransactionInput is the write payload for creating or updating a
// transaction.
type TransactionInput struct {
	Amount           decimal.Decimal       `json:"amount"`
	Description      string                `json:"description"`
	Date             core.Date             `json:"date"`
	Category         core.CategoryRef      `json:"category"`
	IsRecurring      bool                  `json:"is_recurring"`
	RecurrencePeriod core.RecurrencePeriod `json:"recurrence_type,omitempty"`
}

// Balance is the all-time account balance computed by the API.
type Balance struct {
	TotalIncome  decimal.Decimal `json:"total_income"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	Balance      decimal.Decimal `json:"balance"`
}

func kindPath(kind core.TransactionKind) string {
	// The API keeps income and expense as separate resources.
	if kind == core.Income {
		return "/api/transactions/income/"
	}
	return "/api/transactions/expense/"
}

// ListTransactions fetches transactions of one kind. The returned
// transactions are stamped with the kind, which the API leaves implicit in
// the resource path.
func (c *Client) ListTransactions(ctx context.Context, token string, kind core.TransactionKind, filter TransactionFilter) ([]core.Transaction, error) {
	var txs []core.Transaction
	if err := c.do(ctx, http.MethodGet, kindPath(kind), token, filter.query(), nil, &txs); err != nil {
		return nil, err
	}
	for i := range txs {
		txs[i].Kind = kind
	}
	return txs, nil
}

// CreateTransaction creates a transaction of the given kind.
func (c *Client) CreateTransaction(ctx context.Context, token string, kind core.TransactionKind, in TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	if err := c.do(ctx, http.MethodPost, kindPath(kind), token, nil, in, &tx); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = kind
	return tx, nil
}

// UpdateTransaction replaces a transaction.
func (c *Client) UpdateTransaction(ctx context.Context, token string, kind core.TransactionKind, id int64, in TransactionInput) (core.Transaction, error) {
	var tx core.Transaction
	path := fmt.Sprintf("%s%d/", kindPath(kind), id)
	if err := c.do(ctx, http.MethodPut, path, token, nil, in, &tx); err != nil {
		return core.Transaction{}, err
	}
	tx.Kind = kind
	return tx, nil
}

// DeleteTransaction removes a transaction.
func (c *Client) DeleteTransaction(ctx context.Context, token string, kind core.TransactionKind, id int64) error {
	path := fmt.Sprintf("%s%d/", kindPath(kind), id)
	return c.do(ctx, http.MethodDelete, path, token, nil, nil, nil)
}

// GetBalance fetches the all-time balance.
func (c *Client) GetBalance(ctx context.Context, token string) (Balance, error) {
	var b Balance
	if err := c.do(ctx, http.MethodGet, "/api/transactions/balance/", token, nil, nil, &b); err != nil {
		return Balance{}, err
	}
	return b, nil
}
