// Package aggregate derives view summaries from fetched transaction,
// budget, and category snapshots.
//
// Everything here is pure and synchronous: no I/O, no retained state, no
// domain errors. Partial data degrades (zero dates are skipped, unresolved
// categories become "Unknown") instead of failing a computation.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

// DefaultTrendWindow is the number of trailing months in the historical
// trend, the anchor month included.
const DefaultTrendWindow = 6

// nearLimitRatio is the single near-limit cutoff for budget alerts. The
// views historically disagreed (80% in one place, 90% in another); 0.8
// inclusive is the unified behavior.
var nearLimitRatio = decimal.New(8, -1)

// FilterByPeriod returns the transactions whose date falls in the given
// calendar month, preserving input order. Transactions with a zero date
// are excluded.
func FilterByPeriod(txs []core.Transaction, p core.Period) []core.Transaction {
	var out []core.Transaction
	for _, t := range txs {
		if p.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}

// SumByKind sums the amounts of all transactions matching the kind.
// Returns zero for empty input.
func SumByKind(txs []core.Transaction, kind core.TransactionKind) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		if t.Kind == kind {
			sum = sum.Add(t.Amount)
		}
	}
	return sum
}

func sumAmounts(txs []core.Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, t := range txs {
		sum = sum.Add(t.Amount)
	}
	return sum
}

// CategoryBreakdown groups expense transactions by resolved category name
// and sums amounts per group. The result is sorted descending by amount;
// equal amounts keep first-encountered input order.
func CategoryBreakdown(txs []core.Transaction, lookup core.CategoryLookup) []core.CategoryAmount {
	totals := make(map[string]decimal.Decimal)
	var order []string
	for _, t := range txs {
		if t.Kind != core.Expense {
			continue
		}
		name := t.Category.Resolve(lookup)
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] = totals[name].Add(t.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(order))
	for _, name := range order {
		out = append(out, core.CategoryAmount{Category: name, Amount: totals[name]})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.GreaterThan(out[j].Amount)
	})
	return out
}

// BudgetAlerts computes alert statuses for every budget active in the
// selected period. A budget is active when its [start, end] interval
// contains the first day of the period; spent is summed over the budget's
// own interval, not the selected month. Budgets with zero spend produce
// no alert.
func BudgetAlerts(expenses []core.Transaction, budgets []core.Budget, lookup core.CategoryLookup, p core.Period) []core.BudgetAlert {
	first := p.First()
	var alerts []core.BudgetAlert
	for _, b := range budgets {
		if !b.ContainsDay(first) {
			continue
		}
		name := b.Category.Resolve(lookup)
		spent := decimal.Zero
		for _, t := range expenses {
			if t.Kind != core.Expense {
				continue
			}
			if t.Category.Resolve(lookup) != name {
				continue
			}
			if !b.ContainsDay(t.Date) {
				continue
			}
			spent = spent.Add(t.Amount)
		}
		if !spent.IsPositive() {
			continue
		}

		status := core.StatusSafe
		switch {
		case spent.GreaterThanOrEqual(b.Limit):
			status = core.StatusExceeded
		case spent.GreaterThanOrEqual(b.Limit.Mul(nearLimitRatio)):
			status = core.StatusNearLimit
		}

		alerts = append(alerts, core.BudgetAlert{
			Category:    name,
			Spent:       spent,
			Limit:       b.Limit,
			Status:      status,
			Utilization: core.Percent(spent, b.Limit),
		})
	}
	return alerts
}

// Summarize produces the MonthlySummary for one period.
func Summarize(p core.Period, incomes, expenses []core.Transaction, budgets []core.Budget, lookup core.CategoryLookup) core.MonthlySummary {
	incomeTotal := sumAmounts(FilterByPeriod(incomes, p))
	expenseTotal := sumAmounts(FilterByPeriod(expenses, p))
	return core.MonthlySummary{
		Period:       p,
		IncomeTotal:  incomeTotal,
		ExpenseTotal: expenseTotal,
		NetSavings:   incomeTotal.Sub(expenseTotal),
		Alerts:       BudgetAlerts(expenses, budgets, lookup, p),
	}
}

// HistoricalTrend buckets income and expense totals into a fixed window of
// trailing months ending at the anchor period inclusive. Every month in
// the window is present, zero-seeded, in chronological order; transactions
// outside the window are dropped silently.
func HistoricalTrend(incomes, expenses []core.Transaction, anchor core.Period, window int) []core.HistoricalPoint {
	if window <= 0 {
		window = DefaultTrendWindow
	}

	anchorIdx := monthIndex(anchor)
	startIdx := anchorIdx - (window - 1)

	points := make([]core.HistoricalPoint, window)
	for i := range points {
		p := periodAt(startIdx + i)
		points[i] = core.HistoricalPoint{
			Year:    p.Year,
			Month:   p.Month,
			Income:  decimal.Zero,
			Expense: decimal.Zero,
		}
	}

	bucket := func(d core.Date) int {
		if d.IsZero() {
			return -1
		}
		idx := monthIndex(d.Period()) - startIdx
		if idx < 0 || idx >= window {
			return -1
		}
		return idx
	}
	for _, t := range incomes {
		if i := bucket(t.Date); i >= 0 {
			points[i].Income = points[i].Income.Add(t.Amount)
		}
	}
	for _, t := range expenses {
		if i := bucket(t.Date); i >= 0 {
			points[i].Expense = points[i].Expense.Add(t.Amount)
		}
	}
	return points
}

// MonthComparison computes totals for the selected period and the prior
// calendar month, plus percentage deltas. A zero denominator yields a 0
// delta, never Inf or NaN. The savings delta divides by the absolute prior
// net so the sign of the change survives a negative baseline.
func MonthComparison(incomes, expenses []core.Transaction, p core.Period) core.MonthComparison {
	cur := periodTotals(incomes, expenses, p)
	prev := periodTotals(incomes, expenses, p.Previous())

	var savings float64
	if !prev.Net.IsZero() {
		savings = core.Percent(cur.Net.Sub(prev.Net), prev.Net.Abs())
	}

	return core.MonthComparison{
		Current:          cur,
		Previous:         prev,
		IncomeChangePct:  pctChange(cur.Income, prev.Income),
		ExpenseChangePct: pctChange(cur.Expense, prev.Expense),
		SavingsChangePct: savings,
	}
}

func periodTotals(incomes, expenses []core.Transaction, p core.Period) core.PeriodTotals {
	income := sumAmounts(FilterByPeriod(incomes, p))
	expense := sumAmounts(FilterByPeriod(expenses, p))
	return core.PeriodTotals{Income: income, Expense: expense, Net: income.Sub(expense)}
}

func pctChange(cur, prev decimal.Decimal) float64 {
	if prev.IsZero() {
		return 0
	}
	return core.Percent(cur.Sub(prev), prev)
}

func monthIndex(p core.Period) int {
	return p.Year*12 + (p.Month - 1)
}

func periodAt(idx int) core.Period {
	return core.Period{Year: idx / 12, Month: idx%12 + 1}
}
