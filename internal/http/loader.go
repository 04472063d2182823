package http

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/api"
	"finboard/internal/cache"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

// snapshot is one complete load of a user's remote data. Every dashboard
// view is computed from a snapshot, so a single fetch serves all partials.
type snapshot struct {
	seq      uint64
	loadedAt time.Time

	incomes    []core.Transaction
	expenses   []core.Transaction
	budgets    []core.Budget
	categories []core.Category
	lookup     core.CategoryLookup
	balance    api.Balance

	// degraded is set when at least one collection failed to load and was
	// replaced by its empty value. Collections are fetched concurrently, so
	// failing fetches may flip it from more than one goroutine.
	degraded atomic.Bool
}

// partial reports whether any collection in this snapshot was replaced by
// its empty value.
func (s *snapshot) partial() bool {
	return s.degraded.Load()
}

func (s *snapshot) transactions() []core.Transaction {
	all := make([]core.Transaction, 0, len(s.incomes)+len(s.expenses))
	all = append(all, s.incomes...)
	all = append(all, s.expenses...)
	return all
}

// loader fetches snapshots from the finance API, fanning out one request per
// collection. Individual collection failures degrade to empty slices;
// expired credentials abort the whole load.
//
// Loads are numbered from a monotonic counter and a finished load only
// replaces the cached snapshot if no newer load has landed first, so a slow
// stale response can never overwrite fresh data.
type loader struct {
	api   financeClient
	seq   atomic.Uint64
	cache *cache.LRUCache[*snapshot]
	mu    sync.Mutex
}

func newLoader(apiClient financeClient, ttl time.Duration) *loader {
	return &loader{
		api:   apiClient,
		cache: cache.NewLRUCache[*snapshot](500, ttl),
	}
}

// get returns the cached snapshot for the session or loads a fresh one.
func (l *loader) get(ctx context.Context, sessionID, token string) (*snapshot, error) {
	if snap, ok := l.cache.Get(sessionID); ok {
		return snap, nil
	}
	return l.load(ctx, sessionID, token)
}

// refresh always loads a fresh snapshot, bypassing the cache.
func (l *loader) refresh(ctx context.Context, sessionID, token string) (*snapshot, error) {
	return l.load(ctx, sessionID, token)
}

// invalidate drops the cached snapshot after a mutation.
func (l *loader) invalidate(sessionID string) {
	l.cache.Delete(sessionID)
}

func (l *loader) load(ctx context.Context, sessionID, token string) (*snapshot, error) {
	snap := &snapshot{
		seq:      l.seq.Add(1),
		loadedAt: time.Now(),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Each collection degrades independently, only an auth failure is
	// allowed to cancel the whole group.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		items, err := l.api.ListTransactions(gctx, token, core.Income, api.TransactionFilter{})
		return snap.collect(gctx, "income", err, func() { snap.incomes = items })
	})
	g.Go(func() error {
		items, err := l.api.ListTransactions(gctx, token, core.Expense, api.TransactionFilter{})
		return snap.collect(gctx, "expenses", err, func() { snap.expenses = items })
	})
	g.Go(func() error {
		items, err := l.api.ListBudgets(gctx, token, api.BudgetFilter{})
		return snap.collect(gctx, "budgets", err, func() { snap.budgets = items })
	})
	g.Go(func() error {
		items, err := l.api.ListCategories(gctx, token, "")
		return snap.collect(gctx, "categories", err, func() { snap.categories = items })
	})
	g.Go(func() error {
		balance, err := l.api.GetBalance(gctx, token)
		return snap.collect(gctx, "balance", err, func() { snap.balance = balance })
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap.lookup = core.NewCategoryLookup(snap.categories)

	slog.DebugContext(ctx, "Snapshot loaded",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldSessionID, sessionID,
		applog.FieldLoadSeq, snap.seq,
		"partial", snap.partial())

	if l.publish(sessionID, snap) {
		return snap, nil
	}

	// A newer load finished first, serve its snapshot instead.
	if cur, ok := l.cache.Get(sessionID); ok {
		return cur, nil
	}
	return snap, nil
}

// collect applies one fetch result to the snapshot. Unauthorized errors
// propagate, anything else downgrades the collection to empty.
func (s *snapshot) collect(ctx context.Context, name string, err error, apply func()) error {
	if err == nil {
		apply()
		return nil
	}
	if errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	slog.WarnContext(ctx, "Collection load failed, using empty data",
		"collection", name,
		"error", err)
	s.degraded.Store(true)
	return nil
}

// publish stores the snapshot unless a newer one is already cached.
func (l *loader) publish(sessionID string, snap *snapshot) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.cache.Get(sessionID); ok && cur.seq > snap.seq {
		slog.Debug("Dropping stale snapshot",
			applog.FieldSessionID, sessionID,
			"stale_seq", snap.seq,
			"current_seq", cur.seq)
		return false
	}
	l.cache.Set(sessionID, snap)
	return true
}
