package http

import (
	"log/slog"
	"net/http"
	"sort"

	"finboard/internal/aggregate"
	"finboard/internal/api"
	"finboard/internal/core"
)

// handleTransactions serves the transactions page and accepts new or
// edited transactions posted from its form.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.renderTransactionsPage(w, r)
	case http.MethodPost:
		s.handleSaveTransaction(w, r)
	default:
		MethodNotAllowedError("GET, POST").Write(w)
	}
}

func (s *Server) renderTransactionsPage(w http.ResponseWriter, r *http.Request) {
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
		Categories: snap.categories,
	}
	s.renderTemplate(w, r, "transactions_page", data)
}

// parseTransactionForm builds a transaction from posted form values. The
// returned transaction carries no ID; updates read it separately.
func parseTransactionForm(r *http.Request) (core.TransactionKind, api.TransactionInput, error) {
	form := r.PostForm
	kind := FormKind(form, "type")

	amount, err := core.ParseAmount(FormString(form, "amount"))
	if err != nil {
		return kind, api.TransactionInput{}, err
	}
	date, err := FormDate(form, "date")
	if err != nil {
		return kind, api.TransactionInput{}, err
	}

	in := api.TransactionInput{
		Amount:      amount,
		Description: sanitizeInput(FormString(form, "description")),
		Date:        date,
		IsRecurring: FormBool(form, "is_recurring"),
	}
	if in.IsRecurring {
		in.RecurrencePeriod = core.RecurrencePeriod(FormString(form, "recurrence_type"))
	}
	if id := FormInt64(form, "category"); id > 0 {
		in.Category = core.CategoryRef{ID: id}
	} else {
		in.Category = core.CategoryRef{Name: sanitizeInput(FormString(form, "category"))}
	}

	check := core.Transaction{
		Amount:           in.Amount,
		Description:      in.Description,
		Date:             in.Date,
		Kind:             kind,
		Category:         in.Category,
		IsRecurring:      in.IsRecurring,
		RecurrencePeriod: in.RecurrencePeriod,
	}
	if err := check.Validate(); err != nil {
		return kind, api.TransactionInput{}, err
	}
	return kind, in, nil
}

func (s *Server) handleSaveTransaction(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	kind, in, err := parseTransactionForm(r)
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	ctx := r.Context()
	id := FormInt64(r.PostForm, "id")

	var tx core.Transaction
	if id > 0 {
		tx, err = s.api.UpdateTransaction(ctx, sess.AccessToken, kind, id, in)
	} else {
		tx, err = s.api.CreateTransaction(ctx, sess.AccessToken, kind, in)
	}
	if err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Transaction save failed", "error", err, "kind", kind)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	period := tx.Date.Period()
	message := "Transaction added"
	if id > 0 {
		message = "Transaction updated"
	}
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerTransactionChanged(period.Year, period.Month).
		TriggerFormReset().
		TriggerSuccessNotification(message).
		Write(w)
}

// handleDeleteTransaction removes a single transaction. The form carries
// the transaction id and its kind, since income and expense live on
// separate API endpoints.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
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
		BadRequestError("Missing transaction id").Write(w)
		return
	}
	kind := FormKind(r.PostForm, "type")

	ctx := r.Context()
	if err := s.api.DeleteTransaction(ctx, sess.AccessToken, kind, id); err != nil {
		if s.authFailed(w, r, err) {
			return
		}
		slog.ErrorContext(ctx, "Transaction delete failed", "error", err, "id", id)
		ErrorResponse(http.StatusBadGateway, apiErrorMessage(err)).Write(w)
		return
	}

	s.loader.invalidate(sess.ID)

	params := ParseMonthParams(r.URL.Query())
	NewHTMXResponse().
		Status(http.StatusOK).
		TriggerTransactionChanged(params.Year, params.Month).
		TriggerSuccessNotification("Transaction deleted").
		Write(w)
}

type transactionRow struct {
	ID          int64
	Date        string
	Description string
	Category    string
	Amount      string
	Kind        string
	IsExpense   bool
	Recurring   bool
	Recurrence  string
}

// handleTransactionsPartial renders the transaction list for the selected
// month, newest first.
func (s *Server) handleTransactionsPartial(w http.ResponseWriter, r *http.Request) {
	snap := s.loadSnapshot(w, r)
	if snap == nil {
		return
	}

	p := ParseMonthParams(r.URL.Query()).Period()
	txs := aggregate.FilterByPeriod(snap.transactions(), p)
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.After(txs[j].Date.Time)
		}
		return txs[i].ID > txs[j].ID
	})

	rows := make([]transactionRow, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, transactionRow{
			ID:          tx.ID,
			Date:        tx.Date.String(),
			Description: tx.Description,
			Category:    tx.Category.Resolve(snap.lookup),
			Amount:      core.FormatAmount(tx.Amount),
			Kind:        string(tx.Kind),
			IsExpense:   tx.Kind == core.Expense,
			Recurring:   tx.IsRecurring,
			Recurrence:  string(tx.RecurrencePeriod),
		})
	}

	data := struct {
		Label string
		Year  int
		Month int
		Rows  []transactionRow
	}{Label: p.Label(), Year: p.Year, Month: p.Month, Rows: rows}
	s.renderPartial(w, r, "transactions_partial", data)
}
