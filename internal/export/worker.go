package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/api"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

// ReportWriter persists a finished report and returns a reference to it,
// a file path for the CSV backend or a range ref for Google Sheets.
type ReportWriter interface {
	WriteReport(ctx context.Context, period core.Period, rows [][]string) (string, error)
}

// financeAPI is the slice of the API client the worker needs.
type financeAPI interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	ListTransactions(ctx context.Context, token string, kind core.TransactionKind, filter api.TransactionFilter) ([]core.Transaction, error)
	ListCategories(ctx context.Context, token string, kind core.TransactionKind) ([]core.Category, error)
}

// requestSource delivers report requests until its context is done.
type requestSource interface {
	ConsumeReportRequests(ctx context.Context, handler func(*amqp.ReportRequestMessage) error) error
}

// Worker consumes report requests and writes one report per requested month.
// It authenticates against the finance API with its own credentials and
// re-logs in once when a token expires mid-run.
type Worker struct {
	api      financeAPI
	writer   ReportWriter
	source   requestSource
	email    string
	password string

	mu      sync.Mutex
	running bool
	token   string
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWorker creates an export worker.
func NewWorker(apiClient financeAPI, writer ReportWriter, source requestSource, email, password string) *Worker {
	return &Worker{
		api:      apiClient,
		writer:   writer,
		source:   source,
		email:    email,
		password: password,
	}
}

// Start begins consuming report requests. Returns an error if already running.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)

	go func() {
		defer close(w.doneCh)
		defer cancel()

		go func() {
			select {
			case <-w.stopCh:
				cancel()
			case <-runCtx.Done():
			}
		}()

		err := w.source.ConsumeReportRequests(runCtx, func(msg *amqp.ReportRequestMessage) error {
			return w.Handle(runCtx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("Report consumption stopped", "error", err)
		}
	}()

	slog.InfoContext(ctx, "Export worker started")
	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Export worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently consuming.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Handle produces and stores the report for one requested month.
func (w *Worker) Handle(ctx context.Context, msg *amqp.ReportRequestMessage) error {
	period := core.Period{Year: msg.Year, Month: msg.Month}

	rows, err := w.buildReport(ctx, period)
	if errors.Is(err, api.ErrUnauthorized) {
		// Token expired, log in again and retry once.
		w.setToken("")
		rows, err = w.buildReport(ctx, period)
	}
	if err != nil {
		return fmt.Errorf("build report for %s: %w", period.Key(), err)
	}

	ref, err := w.writer.WriteReport(ctx, period, rows)
	if err != nil {
		return fmt.Errorf("write report for %s: %w", period.Key(), err)
	}

	slog.InfoContext(ctx, "Report written", applog.NewFields().
		WithOperation(applog.OpExport).
		WithPeriod(period.Year, period.Month).
		WithExportRef(ref).
		WithRecordCount(len(rows)).
		ToSlice()...)
	return nil
}

func (w *Worker) buildReport(ctx context.Context, period core.Period) ([][]string, error) {
	token, err := w.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	filter := api.TransactionFilter{Year: period.Year, Month: period.Month}

	var (
		income     []core.Transaction
		expenses   []core.Transaction
		categories []core.Category
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = w.api.ListTransactions(gctx, token, core.Income, filter)
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = w.api.ListTransactions(gctx, token, core.Expense, filter)
		return err
	})
	g.Go(func() error {
		var err error
		categories, err = w.api.ListCategories(gctx, token, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lookup := core.NewCategoryLookup(categories)
	return BuildRows(append(income, expenses...), lookup), nil
}

func (w *Worker) ensureToken(ctx context.Context) (string, error) {
	w.mu.Lock()
	token := w.token
	w.mu.Unlock()
	if token != "" {
		return token, nil
	}

	resp, err := w.api.Login(ctx, w.email, w.password)
	if err != nil {
		return "", fmt.Errorf("worker login: %w", err)
	}
	w.setToken(resp.Tokens.Access)
	return resp.Tokens.Access, nil
}

func (w *Worker) setToken(token string) {
	w.mu.Lock()
	w.token = token
	w.mu.Unlock()
}
