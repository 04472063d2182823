// Package session manages server-side browser sessions.
//
// The browser holds only an opaque cookie. Bearer tokens stay server-side,
// invalidated in one place on logout or 401.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"finboard/internal/api"
	"finboard/internal/cache"
	"finboard/internal/storage"
)

// CookieName is the session cookie set on login.
const CookieName = "finboard_session"

const cacheSize = 1000

// Manager creates, resolves, and destroys sessions. Lookups go through an
// LRU cache in front of SQLite.
type Manager struct {
	repo  *storage.SQLiteRepository
	cache *cache.LRUCache[storage.Session]
	ttl   time.Duration
}

func NewManager(repo *storage.SQLiteRepository, ttl time.Duration) *Manager {
	return &Manager{
		repo:  repo,
		cache: cache.NewLRUCache[storage.Session](cacheSize, 5*time.Minute),
		ttl:   ttl,
	}
}

// CacheCleaner exposes the lookup cache for periodic expiry sweeps.
func (m *Manager) CacheCleaner() cache.Cleaner {
	return m.cache
}

// Create starts a session for the given identity and sets the cookie.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, email string, tokens api.TokenPair) (storage.Session, error) {
	now := time.Now()
	s := storage.Session{
		ID:           uuid.NewString(),
		Email:        email,
		AccessToken:  tokens.Access,
		RefreshToken: tokens.Refresh,
		CreatedAt:    now,
		LastSeenAt:   now,
	}
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return storage.Session{}, err
	}
	m.cache.Set(s.ID, s)

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    s.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(m.ttl.Seconds()),
	})
	return s, nil
}

// Get resolves the request's session cookie. The second return is false
// when there is no cookie, no matching row, or the session has idled past
// its TTL.
func (m *Manager) Get(ctx context.Context, r *http.Request) (storage.Session, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return storage.Session{}, false
	}
	id := cookie.Value

	s, found := m.cache.Get(id)
	if !found {
		s, err = m.repo.GetSession(ctx, id)
		if errors.Is(err, storage.ErrSessionNotFound) {
			return storage.Session{}, false
		}
		if err != nil {
			slog.ErrorContext(ctx, "Session lookup failed", "error", err)
			return storage.Session{}, false
		}
		m.cache.Set(id, s)
	}

	if m.expired(s) {
		m.invalidate(ctx, id)
		return storage.Session{}, false
	}

	if err := m.repo.TouchSession(ctx, id, time.Now()); err != nil {
		slog.WarnContext(ctx, "Session touch failed", "error", err)
	}
	return s, true
}

// Destroy invalidates the request's session and clears the cookie. Safe to
// call without an active session.
func (m *Manager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		m.invalidate(ctx, cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// CleanExpired removes sessions idle past the TTL. Run periodically.
func (m *Manager) CleanExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpiredSessions(ctx, time.Now().Add(-m.ttl))
}

func (m *Manager) expired(s storage.Session) bool {
	return time.Since(s.LastSeenAt) > m.ttl
}

func (m *Manager) invalidate(ctx context.Context, id string) {
	m.cache.Delete(id)
	if err := m.repo.DeleteSession(ctx, id); err != nil {
		slog.ErrorContext(ctx, "Session delete failed", "error", err, "session_id", id)
	}
}
