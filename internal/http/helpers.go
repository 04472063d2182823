package http

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"finboard/internal/api"
	"finboard/internal/storage"
)

// requireSession resolves the request's session or sends the caller to the
// login page. Returns false when the response has already been written.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (storage.Session, bool) {
	sess, ok := s.sessions.Get(r.Context(), r)
	if !ok {
		redirectToLogin(w, r)
		return storage.Session{}, false
	}
	return sess, true
}

// handleUnauthorized implements the single expiry policy: any API call that
// comes back unauthorized clears the session and sends the user to login.
func (s *Server) handleUnauthorized(w http.ResponseWriter, r *http.Request) {
	slog.WarnContext(r.Context(), "API credentials rejected, clearing session")
	s.sessions.Destroy(r.Context(), w, r)
	redirectToLogin(w, r)
}

// authFailed routes unauthorized errors through handleUnauthorized and
// reports whether it consumed the error.
func (s *Server) authFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if errors.Is(err, api.ErrUnauthorized) {
		s.handleUnauthorized(w, r)
		return true
	}
	return false
}

// redirectToLogin issues a real redirect for page loads and an HX-Redirect
// for HTMX partial requests, which cannot follow 303s into a swap.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// apiErrorMessage extracts a user-facing message from an API error.
func apiErrorMessage(err error) string {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "The service is unavailable, try again later"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

// renderTemplate executes a named template, falling back to a plain error
// when templates failed to parse at startup.
func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "template", name)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		slog.ErrorContext(r.Context(), "Template execution failed", "error", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// renderPartial is renderTemplate with the HTML content type set, for HTMX
// swap targets.
func (s *Server) renderPartial(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	s.renderTemplate(w, r, name, data)
}
