package http

import (
	"log/slog"
	"net/http"
	"sort"

	"finboard/internal/api"
	"finboard/internal/core"
)

// handleBudgets serves the budgets page and accepts new or edited budgets
// posted from its form.
func (s *Server) handleBudgets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderBudgetsPage(w, r)
	case http.MethodPost:
		s.handleSaveBudget(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderBudgetsPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	snap, err := s.loader.get(r.Context(), sess.ID, sess.AccessToken)
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(r.Context(), "Snapshot load failed", "error", err)
		InternalServerError("Could not load data").Write(w)
		return
	}

	params := ParseMonthParams(r.URL.Query())
	data := struct {
		Email      string
		Year       int
		Month      int
		Label      string
		Categories []core.Category
	}{
		Email:      sess.Email,
		Year:       params.Year,
		Month:      params.Month,
		Label:      params.Period().Label(),
		Categories: expenseCategories(snap.categories),
	}
	s.renderTemplate(w, r, "budgets_page", data)
}

// expenseCategories keeps only expense categories, since budgets cap
// spending rather than income.
func expenseCategories(categories []core.Category) []core.Category {
	out := make([]core.Category, 0, len(categories))
	for _, c := range categories {
		if c.Kind != core.Income {
			out = append(out, c)
		}
	}
	return out
}

func parseBudgetForm(r *http.Request) (api.BudgetInput, error) {
	form := r.PostForm

	limit, err := core.ParseAmount(FormString(form, "amount"))
	if err != nil {
		return api.BudgetInput{}, err
	}
	start, err := FormDate(form, "start_date")
	if err != nil {
		return api.BudgetInput{}, err
	}
	end, err := FormDate(form, "end_date")
	if err != nil {
		return api.BudgetInput{}, err
	}

	in := api.BudgetInput{
		Name:      sanitizeInput(FormString(form, "name")),
		Limit:     limit,
		StartDate: start,
		EndDate:   end,
	}
	if id := FormInt64(form, "category"); id > 0 {
		in.Category = core.CategoryRef{ID: id}
	} else {
		in.Category = core.CategoryRef{Name: sanitizeInput(FormString(form, "category"))}
	}

	check := core.Budget{
		Name:      in.Name,
		Limit:     in.Limit,
		Category:  in.Category,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}
	if err := check.Validate(); err != nil {
		return api.BudgetInput{}, err
	}
	return in, nil
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	in, err := parseBudgetForm(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	id := FormInt64(r.PostForm, "id")

	var budget core.Budget
	if id > 0 {
		budget, err = s.api.UpdateBudget(ctx, sess.AccessToken, id, in)
	} else {
		budget, err = s.api.CreateBudget(ctx, sess.AccessToken, in)
	}
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Budget save failed", "error", err)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	period := budget.StartDate.Period()
	message := "Budget added"
	if id > 0 {
		message = "Budget updated"
	}
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerBudgetChanged(period.Year, period.Month).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		Write(w)
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := FormInt64(r.PostForm, "id")
	if id <= 0 {
		BadRequestError("Missing budget id").Write(w)
		return
	}

	ctx := r.Context()
	if err := s.api.DeleteBudget(ctx, sess.AccessToken, id); err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Budget delete failed", "error", err, "id", id)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	params := ParseMonthParams(r.URL.Query())
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerBudgetChanged(params.Year, params.Month).
		TriggerSuccessNotification("Budget deleted").
		Write(w)
}

type budgetRow struct {
	ID       int64
	Name     string
	Category string
	Limit    string
	Start    string
	End      string
	Active   bool
}

// handleBudgetsPartial renders the budget list. Budgets overlapping the
// selected month are marked active.
func (s *Server) handleBudgetsPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	budgets := make([]core.Budget, len(snap.budgets))
	copy(budgets, snap.budgets)
	sort.SliceStable(budgets, func(i, j int) bool {
		if !budgets[i].StartDate.Equal(budgets[j].StartDate.Time) {
			return budgets[i].StartDate.After(budgets[j].StartDate.Time)
		}
		return budgets[i].ID > budgets[j].ID
	})

	rows := make([]budgetRow, 0, len(budgets))
	for _, b := range budgets {
		active := b.ContainsDay(p.First()) || b.ContainsDay(p.LastDay())
		rows = append(rows, budgetRow{
			ID:       b.ID,
			Name:     b.Name,
			Category: b.Category.Resolve(snap.lookup),
			Limit:    core.FormatAmount(b.Limit),
			Start:    b.StartDate.String(),
			End:      b.EndDate.String(),
			Active:   active,
		})
	}

	data := struct {
		Label string
		Year  int
		Month int
		Rows  []budgetRow
	}{Label: p.Label(), Year: p.Year, Month: p.Month, Rows: rows}
	s.renderPartial(w, r, "budgets_partial", data)
}

// handleCreateCategory creates a category from the inline form on the
// transactions page.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(FormString(r.PostForm, "name"))
	if name == "" {
		BadRequestError("Missing category name").Write(w)
		return
	}
	kind := FormKind(r.PostForm, "type")

	in := core.Category{
		Name:        name,
		Kind:        kind,
		Description: sanitizeInput(FormString(r.PostForm, "description")),
	}

	ctx := r.Context()
	if _, err := s.api.CreateCategory(ctx, sess.AccessToken, in); err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Category create failed", "error", err)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerCategoryChanged().
		TriggerFormReset().
		TriggerSuccessNotification("Category created").
		Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := FormInt64(r.PostForm, "id")
	if id <= 0 {
		BadRequestError("Missing category id").Write(w)
		return
	}

	ctx := r.Context()
	if err := s.api.DeleteCategory(ctx, sess.AccessToken, id); err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Category delete failed", "error", err, "id", id)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerCategoryChanged().
		TriggerSuccessNotification("Category deleted").
		Write(w)
}
