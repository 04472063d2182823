// Package http serves the finboard web UI: server-rendered pages with HTMX
// partials, backed by the remote finance API.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"finboard/internal/api"
	"finboard/internal/cache"
	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/session"
	appweb "finboard/web"
)

// financeClient is the slice of the API client the server depends on.
type financeClient interface {
	Login(ctx context.Context, email, password string) (api.LoginResponse, error)
	Signup(ctx context.Context, username, email, password string) error
	Logout(ctx context.Context, token, refresh string) error
	Profile(ctx context.Context, token string) (api.User, error)

	ListTransactions(ctx context.Context, token string, kind core.TransactionKind, filter api.TransactionFilter) ([]core.Transaction, error)
	CreateTransaction(ctx context.Context, token string, kind core.TransactionKind, in api.TransactionInput) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, token string, kind core.TransactionKind, id int64, in api.TransactionInput) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, token string, kind core.TransactionKind, id int64) error
	GetBalance(ctx context.Context, token string) (api.Balance, error)

	ListBudgets(ctx context.Context, token string, filter api.BudgetFilter) ([]core.Budget, error)
	CreateBudget(ctx context.Context, token string, in api.BudgetInput) (core.Budget, error)
	UpdateBudget(ctx context.Context, token string, id int64, in api.BudgetInput) (core.Budget, error)
	DeleteBudget(ctx context.Context, token string, id int64) error

	ListCategories(ctx context.Context, token string, kind core.TransactionKind) ([]core.Category, error)
	CreateCategory(ctx context.Context, token string, in core.Category) (core.Category, error)
	DeleteCategory(ctx context.Context, token string, id int64) error
}

// ReportQueue enqueues asynchronous report exports. May be nil when AMQP is
// not configured, in which case only the synchronous CSV download is offered.
type ReportQueue interface {
	PublishReportRequest(ctx context.Context, year, month int, requestedBy string) error
}

type Server struct {
	http.Server

	templates   *template.Template
	api         financeClient
	sessions    *session.Manager
	queue       ReportQueue
	loader      *loader
	limiter     *writeLimiter
	metrics     securityMetrics
	trendWindow int

	caches       *cache.Manager
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
// writeLimit caps POST requests per client IP per minute.
func NewServer(addr string, apiClient financeClient, sessions *session.Manager, queue ReportQueue, trendWindow, writeLimit int) *Server {
	mux := http.NewServeMux()

	if trendWindow < 1 {
		trendWindow = 6
	}
	if writeLimit < 1 {
		writeLimit = 60
	}

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		api:         apiClient,
		sessions:    sessions,
		queue:       queue,
		loader:      newLoader(apiClient, time.Minute),
		limiter:     newWriteLimiter(writeLimit, time.Minute),
		trendWindow: trendWindow,
		caches:      cache.NewManager(),
	}

	s.caches.Register(s.loader.cache)
	s.caches.Register(sessions.CacheCleaner())
	s.caches.Register(s.limiter)
	s.caches.StartCleanup(10 * time.Minute)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/signup", s.withSecurityHeaders(s.handleSignup))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))
	mux.HandleFunc("/profile", s.withSecurityHeaders(s.handleProfile))

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleDashboard))
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/transactions/delete", s.withSecurityHeaders(s.handleDeleteTransaction))
	mux.HandleFunc("/budgets", s.withSecurityHeaders(s.handleBudgets))
	mux.HandleFunc("/budgets/delete", s.withSecurityHeaders(s.handleDeleteBudget))
	mux.HandleFunc("/categories", s.withSecurityHeaders(s.handleCreateCategory))
	mux.HandleFunc("/categories/delete", s.withSecurityHeaders(s.handleDeleteCategory))
	mux.HandleFunc("/analytics", s.withSecurityHeaders(s.handleAnalytics))
	mux.HandleFunc("/export/csv", s.withSecurityHeaders(s.handleExportCSV))
	mux.HandleFunc("/export/report", s.withSecurityHeaders(s.handleEnqueueReport))

	// UI partials
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.handleSummaryPartial))
	mux.HandleFunc("/ui/breakdown", s.withSecurityHeaders(s.handleBreakdownPartial))
	mux.HandleFunc("/ui/alerts", s.withSecurityHeaders(s.handleAlertsPartial))
	mux.HandleFunc("/ui/trend", s.withSecurityHeaders(s.handleTrendPartial))
	mux.HandleFunc("/ui/comparison", s.withSecurityHeaders(s.handleComparisonPartial))
	mux.HandleFunc("/ui/transactions", s.withSecurityHeaders(s.handleTransactionsPartial))
	mux.HandleFunc("/ui/budgets", s.withSecurityHeaders(s.handleBudgetsPartial))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			applog.FieldRequestID, requestID,
			"method", r.Method,
			"url", r.URL.Path,
			applog.FieldClientIP, clientIP,
			"user_agent", r.Header.Get("User-Agent"))

		if detectSuspiciousRequest(r, &s.metrics) {
			slog.WarnContext(ctx, "Suspicious request", "client_ip", clientIP, "method", r.Method, "url", r.URL.String())
		}

		// Rate limit writes only, partial refreshes stay cheap.
		if r.Method == http.MethodPost && !s.limiter.allow(clientIP, &s.metrics) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			applog.FieldRequestID, requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
