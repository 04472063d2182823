package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"finboard/internal/api"
	"finboard/internal/session"
	"finboard/internal/storage"
)

func newTestServer(t *testing.T, stub *stubAPI) *Server {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	sessions := session.NewManager(repo, time.Hour)
	srv := NewServer(":0", stub, sessions, nil, 6, 60)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(t, &stubAPI{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, &stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	}
	for name, want := range headers {
		if got := rec.Header().Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("missing CSP, got %q", csp)
	}
}

func TestDashboard_RequiresSession(t *testing.T) {
	srv := newTestServer(t, &stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestPartial_RequiresSession_HTMXRedirect(t *testing.T) {
	srv := newTestServer(t, &stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/ui/summary", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", got)
	}
}

func login(t *testing.T, srv *Server) []*http.Cookie {
	t.Helper()

	form := url.Values{"email": {"user@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login status = %d, want 303", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Fatal("login set no session cookie")
	}
	return cookies
}

func TestLoginFlow(t *testing.T) {
	stub := &stubAPI{
		login: func(_ context.Context, email, password string) (api.LoginResponse, error) {
			return api.LoginResponse{
				Tokens: api.TokenPair{Access: "acc", Refresh: "ref"},
			}, nil
		},
	}
	srv := newTestServer(t, stub)

	cookies := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/ui/summary", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("summary after login = %d, want 200", rec.Code)
	}
}

func TestProfilePage(t *testing.T) {
	stub := &stubAPI{
		login: func(_ context.Context, _, _ string) (api.LoginResponse, error) {
			return api.LoginResponse{Tokens: api.TokenPair{Access: "acc", Refresh: "ref"}}, nil
		},
		profile: func(_ context.Context, token string) (api.User, error) {
			if token != "acc" {
				t.Errorf("profile fetched with token %q, want acc", token)
			}
			return api.User{ID: 7, Username: "sam", Email: "user@example.com"}, nil
		},
	}
	srv := newTestServer(t, stub)

	cookies := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("profile status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "sam") || !strings.Contains(body, "user@example.com") {
		t.Error("profile page missing username or email")
	}
}

func TestProfilePage_RequiresSession(t *testing.T) {
	srv := newTestServer(t, &stubAPI{})

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if got := rec.Header().Get("Location"); got != "/login" {
		t.Errorf("Location = %q, want /login", got)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	stub := &stubAPI{
		login: func(_ context.Context, _, _ string) (api.LoginResponse, error) {
			return api.LoginResponse{}, &api.Error{Status: http.StatusUnauthorized, Message: "Invalid credentials"}
		},
	}
	srv := newTestServer(t, stub)

	form := url.Values{"email": {"user@example.com"}, "password": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Error("response does not surface the API error message")
	}
}

func TestExpiredCredentialsClearSession(t *testing.T) {
	stub := &stubAPI{
		login: func(_ context.Context, _, _ string) (api.LoginResponse, error) {
			return api.LoginResponse{Tokens: api.TokenPair{Access: "acc", Refresh: "ref"}}, nil
		},
		getBalance: func(_ context.Context, _ string) (api.Balance, error) {
			return api.Balance{}, api.ErrUnauthorized
		},
	}
	srv := newTestServer(t, stub)

	cookies := login(t, srv)

	req := httptest.NewRequest(http.MethodGet, "/ui/summary", nil)
	req.Header.Set("HX-Request", "true")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if got := rec.Header().Get("HX-Redirect"); got != "/login" {
		t.Errorf("HX-Redirect = %q, want /login", got)
	}

	// The session is gone, so a retry with the same cookie is anonymous.
	retry := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range cookies {
		retry.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, retry)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("retry status = %d, want 303 redirect to login", rec.Code)
	}
}

func TestWriteLimiter(t *testing.T) {
	wl := newWriteLimiter(3, time.Minute)

	var m securityMetrics
	for i := 0; i < 3; i++ {
		if !wl.allow("10.1.2.3", &m) {
			t.Fatalf("write %d rejected below the limit", i+1)
		}
	}
	if wl.allow("10.1.2.3", &m) {
		t.Error("write over the limit allowed")
	}
	if m.rateLimitHits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", m.rateLimitHits)
	}
	if !wl.allow("10.9.9.9", &m) {
		t.Error("separate client blocked by another client's traffic")
	}
}

func TestWriteLimiterWindowReset(t *testing.T) {
	wl := newWriteLimiter(1, time.Minute)

	if !wl.allow("10.1.2.3", nil) {
		t.Fatal("first write rejected")
	}
	if wl.allow("10.1.2.3", nil) {
		t.Fatal("second write in the same window allowed")
	}

	// Age the window past its length so the next write opens a fresh one.
	wl.mu.Lock()
	wl.clients["10.1.2.3"].start = time.Now().Add(-2 * time.Minute)
	wl.mu.Unlock()

	if !wl.allow("10.1.2.3", nil) {
		t.Error("write after the window closed rejected")
	}
}

func TestWriteLimiterCleanExpired(t *testing.T) {
	wl := newWriteLimiter(10, time.Minute)
	wl.allow("10.1.2.3", nil)
	wl.allow("10.9.9.9", nil)

	wl.mu.Lock()
	wl.clients["10.1.2.3"].start = time.Now().Add(-5 * time.Minute)
	wl.mu.Unlock()

	if n := wl.CleanExpired(); n != 1 {
		t.Errorf("CleanExpired() = %d, want 1", n)
	}
	if _, ok := wl.clients["10.9.9.9"]; !ok {
		t.Error("active client swept")
	}
}
