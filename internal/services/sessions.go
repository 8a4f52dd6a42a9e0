package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/store"
)

// Sessions holds one loaded fact table per dashboard session. A table is
// loaded on first use, shared read-only by all requests of the session, and
// dropped after the session has been idle for the configured TTL, when
// Invalidate is called, or when more than maxActive sessions hold a table.
type Sessions struct {
	loader    store.Loader
	tables    *cache.Cache
	group     singleflight.Group
	ttl       time.Duration
	maxActive int
	logger    *slog.Logger

	// mu orders table stores against Invalidate. pending maps a session to
	// the sequence number of its current load; a load that finishes after
	// its entry was replaced or removed does not store its table.
	mu      sync.Mutex
	seq     uint64
	pending map[string]uint64

	loads    atomic.Int64
	failures atomic.Int64
	evicted  atomic.Int64
}

// NewSessions returns an empty session store. A maxActive of zero means no
// cap.
func NewSessions(loader store.Loader, ttl time.Duration, maxActive int, logger *slog.Logger) *Sessions {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sessions{
		loader:    loader,
		tables:    cache.New(ttl, ttl/2+time.Second),
		ttl:       ttl,
		maxActive: maxActive,
		logger:    logger,
		pending:   make(map[string]uint64),
	}
	s.tables.OnEvicted(func(id string, _ any) {
		s.logger.Debug("session table evicted", "session_id", id)
		metrics.SessionsActive.Set(float64(s.tables.ItemCount()))
	})
	return s
}

// Table returns the session's fact table, loading it if needed. Concurrent
// callers for the same session share a single load. Load failures are not
// cached.
func (s *Sessions) Table(ctx context.Context, sessionID string) (*models.FactTable, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	if t, ok := s.touch(sessionID); ok {
		return t, nil
	}

	v, err, shared := s.group.Do(sessionID, func() (any, error) {
		if t, ok := s.tables.Get(sessionID); ok {
			return t, nil
		}
		seq := s.beginLoad(sessionID)
		s.loads.Add(1)
		// The load is shared by every waiter, so one caller going away
		// must not cancel it. The loader applies its own query timeout.
		table, err := s.loader.Load(context.WithoutCancel(ctx))
		if err != nil {
			s.finishLoad(sessionID, seq, nil)
			s.failures.Add(1)
			return nil, err
		}
		if !s.finishLoad(sessionID, seq, table) {
			s.logger.Debug("session invalidated during load, table not kept", "session_id", sessionID)
		}
		return table, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load session table: %w", err)
	}

	if shared {
		s.logger.Debug("session table load shared", "session_id", sessionID)
	}
	return v.(*models.FactTable), nil
}

// touch returns a cached table and extends its idle TTL.
func (s *Sessions) touch(sessionID string) (*models.FactTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables.Get(sessionID)
	if !ok {
		return nil, false
	}
	s.tables.SetDefault(sessionID, t)
	return t.(*models.FactTable), true
}

func (s *Sessions) beginLoad(sessionID string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.pending[sessionID] = s.seq
	return s.seq
}

// finishLoad clears the pending entry of load seq and stores table if the
// entry is still current. It reports whether the entry was current.
func (s *Sessions) finishLoad(sessionID string, seq uint64, table *models.FactTable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending[sessionID] != seq {
		return false
	}
	delete(s.pending, sessionID)
	if table != nil {
		s.store(sessionID, table)
	}
	return true
}

// store caches a table, first evicting least recently used sessions if a
// new session would exceed the cap. The caller holds s.mu.
func (s *Sessions) store(sessionID string, table *models.FactTable) {
	if s.maxActive > 0 {
		if _, ok := s.tables.Get(sessionID); !ok {
			s.tables.DeleteExpired()
			for s.tables.ItemCount() >= s.maxActive {
				if !s.evictOldest() {
					break
				}
			}
		}
	}
	s.tables.SetDefault(sessionID, table)
	metrics.SessionsActive.Set(float64(s.tables.ItemCount()))
}

// evictOldest drops the session whose idle deadline comes first. Every
// access pushes the deadline out, so that is the least recently used one.
func (s *Sessions) evictOldest() bool {
	oldest, deadline := "", int64(0)
	for id, item := range s.tables.Items() {
		if oldest == "" || item.Expiration < deadline {
			oldest, deadline = id, item.Expiration
		}
	}
	if oldest == "" {
		return false
	}
	s.tables.Delete(oldest)
	s.evicted.Add(1)
	s.logger.Info("session table evicted at capacity",
		"session_id", oldest,
		"max_active", s.maxActive,
	)
	return true
}

// Invalidate drops the session's table; the next Table call reloads it. A
// load already in flight for the session still answers its waiters but
// does not store its table.
func (s *Sessions) Invalidate(sessionID string) {
	s.mu.Lock()
	delete(s.pending, sessionID)
	s.tables.Delete(sessionID)
	s.mu.Unlock()

	s.group.Forget(sessionID)
	metrics.SessionsActive.Set(float64(s.tables.ItemCount()))
}

// Options returns the filter widget contents for the session's table.
func (s *Sessions) Options(ctx context.Context, sessionID string) (models.FilterOptions, error) {
	table, err := s.Table(ctx, sessionID)
	if err != nil {
		return models.FilterOptions{}, err
	}

	opts := models.FilterOptions{
		Regions:  table.Regions(),
		Products: table.Products(),
		RowCount: table.Len(),
		LoadedAt: table.LoadedAt(),
	}
	lo, hi, err := table.DateBounds()
	if err != nil {
		return opts, err
	}
	opts.MinDate, opts.MaxDate = lo, hi
	return opts, nil
}

// Stats reports session and load counters for the admin endpoint.
func (s *Sessions) Stats() map[string]any {
	return map[string]any{
		"sessions":      s.tables.ItemCount(),
		"max_sessions":  s.maxActive,
		"session_ttl":   s.ttl.String(),
		"loads":         s.loads.Load(),
		"load_failures": s.failures.Load(),
		"evicted":       s.evicted.Load(),
	}
}

// Close drops every session table.
func (s *Sessions) Close() {
	s.tables.Flush()
	metrics.SessionsActive.Set(0)
}
