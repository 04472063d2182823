package http

import (
	"sync"
	"sync/atomic"
	"time"
)

// writeLimiter caps mutating requests per client IP over a fixed window.
// Reads and partial refreshes are never limited, so the map only tracks
// clients that have written recently.
type writeLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	clients map[string]*writeWindow
}

type writeWindow struct {
	start time.Time
	count int
}

func newWriteLimiter(limit int, window time.Duration) *writeLimiter {
	return &writeLimiter{
		limit:   limit,
		window:  window,
		clients: make(map[string]*writeWindow),
	}
}

// allow records one write from clientIP and reports whether it fits in the
// current window. A window starts at the first write after the previous one
// closed.
func (wl *writeLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	now := time.Now()
	win, ok := wl.clients[clientIP]
	if !ok || now.Sub(win.start) >= wl.window {
		wl.clients[clientIP] = &writeWindow{start: now, count: 1}
		return true
	}

	win.count++
	if win.count > wl.limit {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	return true
}

// CleanExpired drops windows that closed more than one window length ago.
// It satisfies cache.Cleaner so the server's cleanup manager drives it.
func (wl *writeLimiter) CleanExpired() int {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	cutoff := time.Now().Add(-2 * wl.window)
	removed := 0
	for ip, win := range wl.clients {
		if win.start.Before(cutoff) {
			delete(wl.clients, ip)
			removed++
		}
	}
	return removed
}
