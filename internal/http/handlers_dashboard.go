package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"finboard/internal/aggregate"
	"finboard/internal/core"
)

// handleDashboard renders the main dashboard page. The page itself is a
// shell, every data section loads through an HTMX partial.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	params := ParseMonthParams(r.URL.Query())
	data := struct {
		Email string
		Year  int
		Month int
		Label string
	}{
		Email: sess.Email,
		Year:  params.Year,
		Month: params.Month,
		Label: params.Period().Label(),
	}
	s.renderTemplate(w, r, "dashboard_page", data)
}

// loadSnapshot resolves the session's snapshot, handling expired
// credentials. Returns nil when the response has already been written.
func (s *Server) loadSnapshot(w http.ResponseWriter, r *http.Request) *snapshot {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return nil
	}

	snap, err := s.loader.get(r.Context(), sess.ID, sess.AccessToken)
	if err != nil {
		if s.authFailed(w, r, err) {
			return nil
		}
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		InternalServerError("Could not load data").Write(w)
		return nil
	}
	return snap
}

type summaryView struct {
	Label        string
	Year         int
	Month        int
	Income       string
	Expenses     string
	Net          string
	NetNegative  bool
	Balance      string
	AlertCount   int
	Partial      bool
}

// handleSummaryPartial renders the monthly income/expense/savings totals.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	summary := aggregate.Summarize(p, snap.incomes, snap.expenses, snap.budgets, snap.lookup)

	data := summaryView{
		Label:       p.Label(),
		Year:        p.Year,
		Month:       p.Month,
		Income:      core.FormatAmount(summary.IncomeTotal),
		Expenses:    core.FormatAmount(summary.ExpenseTotal),
		Net:         core.FormatAmount(summary.NetSavings),
		NetNegative: summary.NetSavings.IsNegative(),
		Balance:     core.FormatAmount(snap.balance.Balance),
		AlertCount:  len(summary.Alerts),
		Partial:     snap.partial(),
	}
	s.renderPartial(w, r, "summary_partial", data)
}

type breakdownRow struct {
	Name   string
	Amount string
	Width  int
}

// handleBreakdownPartial renders the per-category expense breakdown, bars
// scaled against the largest category.
func (s *Server) handleBreakdownPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	breakdown := aggregate.CategoryBreakdown(aggregate.FilterByPeriod(snap.expenses, p), snap.lookup)

	// Entries are sorted by amount descending, so the first one anchors
	// the bar scale.
	max := decimal.Zero
	if len(breakdown) > 0 {
		max = breakdown[0].Amount
	}

	rows := make([]breakdownRow, 0, len(breakdown))
	for _, entry := range breakdown {
		rows = append(rows, breakdownRow{
			Name:   entry.Category,
			Amount: core.FormatAmount(entry.Amount),
			Width:  scaleWidth(entry.Amount, max),
		})
	}

	data := struct {
		Label string
		Rows  []breakdownRow
	}{Label: p.Label(), Rows: rows}
	s.renderPartial(w, r, "breakdown_partial", data)
}

type alertRow struct {
	Category    string
	Spent       string
	Limit       string
	Status      string
	StatusClass string
	Progress    int
	Utilization string
}

func statusClass(status core.AlertStatus) string {
	switch status {
	case core.StatusExceeded:
		return "alert--exceeded"
	case core.StatusNearLimit:
		return "alert--near-limit"
	default:
		return "alert--safe"
	}
}

// handleAlertsPartial renders budget alerts for the selected month.
func (s *Server) handleAlertsPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	alerts := aggregate.BudgetAlerts(snap.expenses, snap.budgets, snap.lookup, p)

	rows := make([]alertRow, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, alertRow{
			Category:    a.Category,
			Spent:       core.FormatAmount(a.Spent),
			Limit:       core.FormatAmount(a.Limit),
			Status:      string(a.Status),
			StatusClass: statusClass(a.Status),
			Progress:    a.Progress(),
			Utilization: fmt.Sprintf("%.0f%%", a.Utilization),
		})
	}

	data := struct {
		Label string
		Rows  []alertRow
	}{Label: p.Label(), Rows: rows}
	s.renderPartial(w, r, "alerts_partial", data)
}

type trendBar struct {
	Label        string
	Income       string
	Expense      string
	IncomeWidth  int
	ExpenseWidth int
}

// handleTrendPartial renders the income and expense history ending at the
// selected month.
func (s *Server) handleTrendPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	points := aggregate.HistoricalTrend(snap.incomes, snap.expenses, p, s.trendWindow)

	maxVal := pointsMax(points)

	bars := make([]trendBar, 0, len(points))
	for _, pt := range points {
		bars = append(bars, trendBar{
			Label:        pt.Label(),
			Income:       core.FormatAmount(pt.Income),
			Expense:      core.FormatAmount(pt.Expense),
			IncomeWidth:  scaleWidth(pt.Income, maxVal),
			ExpenseWidth: scaleWidth(pt.Expense, maxVal),
		})
	}

	data := struct {
		Label string
		Bars  []trendBar
	}{Label: p.Label(), Bars: bars}
	s.renderPartial(w, r, "trend_partial", data)
}

type comparisonView struct {
	CurrentLabel  string
	PreviousLabel string
	Current       totalsView
	Previous      totalsView
	IncomePct     string
	ExpensePct    string
	SavingsPct    string
}

type totalsView struct {
	Income  string
	Expense string
	Net     string
}

// handleComparisonPartial renders the current vs previous month comparison.
func (s *Server) handleComparisonPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	cmp := aggregate.MonthComparison(snap.incomes, snap.expenses, p)

	data := comparisonView{
		CurrentLabel:  p.Label(),
		PreviousLabel: p.Previous().Label(),
		Current: totalsView{
			Income:  core.FormatAmount(cmp.Current.Income),
			Expense: core.FormatAmount(cmp.Current.Expense),
			Net:     core.FormatAmount(cmp.Current.Net),
		},
		Previous: totalsView{
			Income:  core.FormatAmount(cmp.Previous.Income),
			Expense: core.FormatAmount(cmp.Previous.Expense),
			Net:     core.FormatAmount(cmp.Previous.Net),
		},
		IncomePct:  formatPct(cmp.IncomeChangePct),
		ExpensePct: formatPct(cmp.ExpenseChangePct),
		SavingsPct: formatPct(cmp.SavingsChangePct),
	}
	s.renderPartial(w, r, "comparison_partial", data)
}

func pointsMax(points []core.HistoricalPoint) decimal.Decimal {
	max := decimal.Zero
	for _, pt := range points {
		if pt.Income.GreaterThan(max) {
			max = pt.Income
		}
		if pt.Expense.GreaterThan(max) {
			max = pt.Expense
		}
	}
	return max
}

func scaleWidth(v, max decimal.Decimal) int {
	if !max.IsPositive() || !v.IsPositive() {
		return 0
	}
	width := int(core.Percent(v, max))
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}

func formatPct(v float64) string {
	if v > 0 {
		return fmt.Sprintf("+%.1f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}
