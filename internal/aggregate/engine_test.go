package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"

	"finboard/internal/core"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func expense(amount, date, category string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		Amount:      dec(amount),
		Description: "test expense",
		Date:        d,
		Kind:        core.Expense,
		Category:    core.CategoryRef{Name: category},
	}
}

func income(amount, date string) core.Transaction {
	d, _ := core.ParseDate(date)
	return core.Transaction{
		Amount:      dec(amount),
		Description: "test income",
		Date:        d,
		Kind:        core.Income,
		Category:    core.CategoryRef{Name: "Salary"},
	}
}

func monthBudget(category string, limit string, year, month int) core.Budget {
	p := core.Period{Year: year, Month: month}
	return core.Budget{
		Name:      category,
		Limit:     dec(limit),
		Category:  core.CategoryRef{Name: category},
		StartDate: p.First(),
		EndDate:   p.LastDay(),
	}
}

func TestFilterByPeriod(t *testing.T) {
	txs := []core.Transaction{
		expense("10", "2025-07-01", "A"),
		expense("20", "2025-06-30", "A"), // adjacent month
		expense("30", "2025-07-31", "A"),
		expense("40", "2024-07-15", "A"), // adjacent year
	}
	got := FilterByPeriod(txs, core.Period{Year: 2025, Month: 7})
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	// Input order preserved
	if !got[0].Amount.Equal(dec("10")) || !got[1].Amount.Equal(dec("30")) {
		t.Fatalf("order not preserved: %v, %v", got[0].Amount, got[1].Amount)
	}
}

func TestFilterByPeriodSkipsZeroDates(t *testing.T) {
	txs := []core.Transaction{{Amount: dec("10"), Kind: core.Expense}}
	if got := FilterByPeriod(txs, core.Period{Year: 2025, Month: 7}); len(got) != 0 {
		t.Fatalf("zero-date transaction included: %v", got)
	}
}

func TestSumByKindEmpty(t *testing.T) {
	if got := SumByKind(nil, core.Income); !got.IsZero() {
		t.Fatalf("empty sum = %s, want 0", got)
	}
}

func TestSumByKind(t *testing.T) {
	txs := []core.Transaction{
		income("5000", "2025-07-01"),
		expense("980", "2025-07-05", "Groceries"),
		income("200", "2025-07-20"),
	}
	if got := SumByKind(txs, core.Income); !got.Equal(dec("5200")) {
		t.Fatalf("income sum = %s, want 5200", got)
	}
	if got := SumByKind(txs, core.Expense); !got.Equal(dec("980")) {
		t.Fatalf("expense sum = %s, want 980", got)
	}
}

func TestCategoryBreakdownEmpty(t *testing.T) {
	if got := CategoryBreakdown(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty breakdown, got %v", got)
	}
}

func TestCategoryBreakdownSortedAndStable(t *testing.T) {
	txs := []core.Transaction{
		expense("450", "2025-07-10", "Utilities"),
		expense("980", "2025-07-05", "Groceries"),
		expense("300", "2025-07-08", "Utilities"),
		expense("750", "2025-07-12", "Transport"), // ties with Utilities at 750
	}
	got := CategoryBreakdown(txs, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(got))
	}
	if got[0].Category != "Groceries" || !got[0].Amount.Equal(dec("980")) {
		t.Fatalf("first group = %+v", got[0])
	}
	// Utilities reached 750 first in input order, so it wins the tie.
	if got[1].Category != "Utilities" || got[2].Category != "Transport" {
		t.Fatalf("tie order: %s, %s", got[1].Category, got[2].Category)
	}
}

func TestCategoryBreakdownResolvesIDs(t *testing.T) {
	lookup := core.NewCategoryLookup([]core.Category{{ID: 2, Name: "Groceries"}})
	txs := []core.Transaction{
		{Amount: dec("10"), Date: core.NewDate(2025, 7, 1), Kind: core.Expense, Category: core.CategoryRef{ID: 2}},
		{Amount: dec("5"), Date: core.NewDate(2025, 7, 2), Kind: core.Expense, Category: core.CategoryRef{ID: 99}},
	}
	got := CategoryBreakdown(txs, lookup)
	if got[0].Category != "Groceries" {
		t.Fatalf("first category = %s", got[0].Category)
	}
	if got[1].Category != core.UnknownCategory {
		t.Fatalf("unresolved category = %s, want %s", got[1].Category, core.UnknownCategory)
	}
}

func TestBudgetAlertThresholds(t *testing.T) {
	p := core.Period{Year: 2025, Month: 7}
	budgets := []core.Budget{monthBudget("Groceries", "1000", 2025, 7)}

	cases := []struct {
		spent string
		want  core.AlertStatus
	}{
		{"1000", core.StatusExceeded},  // spent == limit
		{"1200", core.StatusExceeded},  // spent > limit
		{"800", core.StatusNearLimit},  // exactly 80%, inclusive
		{"980", core.StatusNearLimit},  // between 80% and limit
		{"799.99", core.StatusSafe},    // just below the cutoff
		{"1", core.StatusSafe},
	}
	for i, tc := range cases {
		txs := []core.Transaction{expense(tc.spent, "2025-07-05", "Groceries")}
		alerts := BudgetAlerts(txs, budgets, nil, p)
		if len(alerts) != 1 {
			t.Fatalf("case %d: expected 1 alert, got %d", i, len(alerts))
		}
		if alerts[0].Status != tc.want {
			t.Fatalf("case %d: spent %s -> %s, want %s", i, tc.spent, alerts[0].Status, tc.want)
		}
	}
}

func TestBudgetAlertsSuppressZeroSpend(t *testing.T) {
	p := core.Period{Year: 2025, Month: 7}
	budgets := []core.Budget{monthBudget("Groceries", "1000", 2025, 7)}
	if alerts := BudgetAlerts(nil, budgets, nil, p); len(alerts) != 0 {
		t.Fatalf("zero-spend alert not suppressed: %v", alerts)
	}
}

func TestBudgetAlertsUseBudgetInterval(t *testing.T) {
	// Quarterly budget: spend from the whole interval counts, even for the
	// July period selection; spend outside the interval does not.
	quarter := core.Budget{
		Name:      "Q3 dining",
		Limit:     dec("900"),
		Category:  core.CategoryRef{Name: "Dining"},
		StartDate: core.NewDate(2025, 7, 1),
		EndDate:   core.NewDate(2025, 9, 30),
	}
	txs := []core.Transaction{
		expense("400", "2025-07-10", "Dining"),
		expense("350", "2025-08-02", "Dining"), // outside July, inside budget
		expense("100", "2025-06-20", "Dining"), // before the interval
	}
	alerts := BudgetAlerts(txs, []core.Budget{quarter}, nil, core.Period{Year: 2025, Month: 7})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if !alerts[0].Spent.Equal(dec("750")) {
		t.Fatalf("spent = %s, want 750", alerts[0].Spent)
	}
	if alerts[0].Status != core.StatusNearLimit {
		t.Fatalf("status = %s", alerts[0].Status)
	}
}

func TestBudgetAlertsSkipInactiveBudget(t *testing.T) {
	budgets := []core.Budget{monthBudget("Groceries", "1000", 2025, 6)}
	txs := []core.Transaction{expense("500", "2025-06-15", "Groceries")}
	if alerts := BudgetAlerts(txs, budgets, nil, core.Period{Year: 2025, Month: 7}); len(alerts) != 0 {
		t.Fatalf("inactive budget produced alert: %v", alerts)
	}
}

func TestBudgetAlertUtilizationUnclamped(t *testing.T) {
	p := core.Period{Year: 2025, Month: 7}
	budgets := []core.Budget{monthBudget("Groceries", "1000", 2025, 7)}
	txs := []core.Transaction{expense("1500", "2025-07-05", "Groceries")}
	alerts := BudgetAlerts(txs, budgets, nil, p)
	if alerts[0].Utilization != 150 {
		t.Fatalf("utilization = %v, want 150", alerts[0].Utilization)
	}
	if alerts[0].Progress() != 100 {
		t.Fatalf("progress = %d, want 100 (clamped)", alerts[0].Progress())
	}
}

func TestSummarizeExample(t *testing.T) {
	p := core.Period{Year: 2025, Month: 7}
	incomes := []core.Transaction{income("5000", "2025-07-01")}
	expenses := []core.Transaction{expense("980", "2025-07-05", "Groceries")}
	budgets := []core.Budget{monthBudget("Groceries", "1000", 2025, 7)}

	got := Summarize(p, incomes, expenses, budgets, nil)
	if !got.IncomeTotal.Equal(dec("5000")) {
		t.Fatalf("income total = %s", got.IncomeTotal)
	}
	if !got.ExpenseTotal.Equal(dec("980")) {
		t.Fatalf("expense total = %s", got.ExpenseTotal)
	}
	if !got.NetSavings.Equal(dec("4020")) {
		t.Fatalf("net savings = %s", got.NetSavings)
	}
	if len(got.Alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(got.Alerts))
	}
	a := got.Alerts[0]
	if a.Category != "Groceries" || !a.Spent.Equal(dec("980")) || !a.Limit.Equal(dec("1000")) || a.Status != core.StatusNearLimit {
		t.Fatalf("alert = %+v", a)
	}
}

func TestHistoricalTrendWindow(t *testing.T) {
	anchor := core.Period{Year: 2025, Month: 7}
	incomes := []core.Transaction{
		income("5000", "2025-07-01"),
		income("5000", "2025-03-15"),
		income("9999", "2024-12-31"), // outside the 6-month window
	}
	expenses := []core.Transaction{
		expense("980", "2025-07-05", "Groceries"),
		expense("100", "2026-01-01", "Groceries"), // after the anchor
	}

	points := HistoricalTrend(incomes, expenses, anchor, DefaultTrendWindow)
	if len(points) != 6 {
		t.Fatalf("expected exactly 6 points, got %d", len(points))
	}
	// Chronological, oldest first: Feb..Jul 2025.
	if points[0].Year != 2025 || points[0].Month != 2 {
		t.Fatalf("first point = %d-%d, want 2025-2", points[0].Year, points[0].Month)
	}
	if points[5].Year != 2025 || points[5].Month != 7 {
		t.Fatalf("last point = %d-%d, want 2025-7", points[5].Year, points[5].Month)
	}
	// Zero-seeded months are present.
	if !points[0].Income.IsZero() || !points[0].Expense.IsZero() {
		t.Fatalf("empty month not zero-seeded: %+v", points[0])
	}
	if !points[1].Income.Equal(dec("5000")) { // March
		t.Fatalf("march income = %s", points[1].Income)
	}
	if !points[5].Expense.Equal(dec("980")) {
		t.Fatalf("july expense = %s", points[5].Expense)
	}
}

func TestHistoricalTrendWindowAcrossYearBoundary(t *testing.T) {
	points := HistoricalTrend(nil, nil, core.Period{Year: 2025, Month: 2}, 6)
	if points[0].Year != 2024 || points[0].Month != 9 {
		t.Fatalf("first point = %d-%d, want 2024-9", points[0].Year, points[0].Month)
	}
}

func TestMonthComparison(t *testing.T) {
	incomes := []core.Transaction{
		income("5000", "2025-07-01"),
		income("4000", "2025-06-01"),
	}
	expenses := []core.Transaction{
		expense("1000", "2025-07-05", "A"),
		expense("2000", "2025-06-05", "A"),
	}
	got := MonthComparison(incomes, expenses, core.Period{Year: 2025, Month: 7})

	if got.IncomeChangePct != 25 {
		t.Fatalf("income change = %v, want 25", got.IncomeChangePct)
	}
	if got.ExpenseChangePct != -50 {
		t.Fatalf("expense change = %v, want -50", got.ExpenseChangePct)
	}
	// Savings 2000 -> 4000 against |2000| baseline.
	if got.SavingsChangePct != 100 {
		t.Fatalf("savings change = %v, want 100", got.SavingsChangePct)
	}
}

func TestMonthComparisonZeroDenominators(t *testing.T) {
	incomes := []core.Transaction{income("5000", "2025-07-01")}
	got := MonthComparison(incomes, nil, core.Period{Year: 2025, Month: 7})
	if got.IncomeChangePct != 0 {
		t.Fatalf("income change with zero prior = %v, want 0", got.IncomeChangePct)
	}
	if got.ExpenseChangePct != 0 || got.SavingsChangePct != 0 {
		t.Fatalf("zero-denominator deltas = %v, %v, want 0", got.ExpenseChangePct, got.SavingsChangePct)
	}
}

func TestMonthComparisonNegativeBaseline(t *testing.T) {
	// June net is -500, July net is +1000: improvement of 1500 against a
	// 500 baseline = +300%.
	incomes := []core.Transaction{income("1000", "2025-07-01")}
	expenses := []core.Transaction{expense("500", "2025-06-05", "A")}
	got := MonthComparison(incomes, expenses, core.Period{Year: 2025, Month: 7})
	if got.SavingsChangePct != 300 {
		t.Fatalf("savings change = %v, want 300", got.SavingsChangePct)
	}
}
