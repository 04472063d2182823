package core

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Derived view types. All of them are pure functions of a fetched
// transaction/budget/category snapshot plus the selected period; nothing
// here survives a reload.

// CategoryAmount is a per-category expense total.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

type AlertStatus string

const (
	StatusSafe      AlertStatus = "Safe"
	StatusNearLimit AlertStatus = "Near Limit"
	StatusExceeded  AlertStatus = "Exceeded"
)

// BudgetAlert compares spend against a budget's limit.
type BudgetAlert struct {
	Category string
	Spent    decimal.Decimal
	Limit    decimal.Decimal
	Status   AlertStatus
	// Utilization is the raw spent/limit percentage, unclamped.
	Utilization float64
}

// Progress returns the utilization clamped to [0, 100] for progress bars.
func (a BudgetAlert) Progress() int {
	if a.Utilization <= 0 {
		return 0
	}
	if a.Utilization >= 100 {
		return 100
	}
	return int(a.Utilization)
}

// MonthlySummary is the compact summary for one period.
type MonthlySummary struct {
	Period       Period
	IncomeTotal  decimal.Decimal
	ExpenseTotal decimal.Decimal
	NetSavings   decimal.Decimal
	Alerts       []BudgetAlert
}

// HistoricalPoint is one month of a fixed trailing trend window.
type HistoricalPoint struct {
	Year    int
	Month   int // 1-12
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Label returns a short chart label such as "Jul 2025".
func (p HistoricalPoint) Label() string {
	return time.Month(p.Month).String()[:3] + " " + strconv.Itoa(p.Year)
}

// PeriodTotals holds the per-period totals used in comparisons.
type PeriodTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
}

// MonthComparison holds the selected period, the prior calendar month, and
// the percentage deltas between them.
type MonthComparison struct {
	Current  PeriodTotals
	Previous PeriodTotals

	IncomeChangePct  float64
	ExpenseChangePct float64
	SavingsChangePct float64
}
