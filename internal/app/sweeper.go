package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/snaplist/internal/domain"
	"github.com/pscheid92/snaplist/internal/metrics"
)

const (
	// listTimeout bounds the session enumeration so an unresponsive store
	// cannot stall a sweep indefinitely.
	listTimeout = 30 * time.Second

	// cleanupTimeout bounds one session's item+record deletion.
	cleanupTimeout = 30 * time.Second
)

// Sweeper periodically removes expired sessions and their items. Each expired
// session is cleaned up as an independent unit of work: one session's failure
// is logged and counted but never blocks the others or a future tick.
type Sweeper struct {
	sessions domain.SessionRepository
	items    domain.ItemRepository
	clock    clockwork.Clock
	interval time.Duration

	// elector gates sweeps behind a shared lock. Nil means every tick sweeps,
	// which is fine for single-instance deployments and one-shot runs.
	elector *SweepElector

	stopCh   chan struct{}
	stopOnce sync.Once
	loopWg   sync.WaitGroup
}

func NewSweeper(sessions domain.SessionRepository, items domain.ItemRepository, clock clockwork.Clock, interval time.Duration) *Sweeper {
	return &Sweeper{
		sessions: sessions,
		items:    items,
		clock:    clock,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// WithElector makes the sweeper acquire the shared lock before each pass.
func (s *Sweeper) WithElector(elector *SweepElector) *Sweeper {
	s.elector = elector
	return s
}

// Start launches the recurring sweep loop in a background goroutine.
func (s *Sweeper) Start() {
	ticker := s.clock.NewTicker(s.interval)
	s.loopWg.Add(1)
	go func() {
		defer s.loopWg.Done()
		for {
			select {
			case <-ticker.Chan():
				s.Sweep(context.Background())
			case <-s.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
	slog.Info("Expiry sweeper started", "interval", s.interval.String())
}

// Stop terminates the sweep loop and waits for it to exit. An in-flight sweep
// finishes before Stop returns.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.loopWg.Wait()
}

// Sweep runs one cleanup pass. All errors are logged and swallowed; the next
// tick simply retries whatever is left.
func (s *Sweeper) Sweep(ctx context.Context) {
	if s.elector != nil {
		acquired, err := s.elector.TryAcquire(ctx)
		if err != nil {
			slog.Error("Sweep: leader election failed", "error", err)
			metrics.SweepErrorsTotal.WithLabelValues("leader").Inc()
			return
		}
		if !acquired {
			slog.Debug("Sweep: another instance holds the sweep lock, skipping")
			return
		}
		metrics.SweepLeaderElections.Inc()
		defer func() {
			if err := s.elector.Release(ctx); err != nil {
				slog.Warn("Sweep: failed to release sweep lock", "error", err)
			}
		}()
	}

	start := s.clock.Now()
	defer func() {
		metrics.SweepRunsTotal.Inc()
		metrics.SweepDurationSeconds.Observe(s.clock.Since(start).Seconds())
	}()

	listCtx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	sessions, err := s.sessions.ListAll(listCtx)
	if err != nil {
		slog.Error("Sweep: failed to list sessions", "error", err)
		metrics.SweepErrorsTotal.WithLabelValues("list").Inc()
		return
	}

	now := s.clock.Now()
	var expired []domain.Session
	for _, session := range sessions {
		if session.Expired(now) {
			expired = append(expired, session)
		}
	}

	if len(expired) == 0 {
		slog.Debug("Sweep: nothing to clean", "sessions", len(sessions))
		return
	}

	var purgedSessions, purgedItems atomic.Int64
	var wg sync.WaitGroup
	for _, session := range expired {
		wg.Add(1)
		go func(session domain.Session) {
			defer wg.Done()
			if items, ok := s.cleanupSession(ctx, session); ok {
				purgedSessions.Add(1)
				purgedItems.Add(items)
			}
		}(session)
	}
	wg.Wait()

	metrics.SessionsPurgedTotal.Add(float64(purgedSessions.Load()))
	metrics.ItemsDeletedTotal.WithLabelValues("sweep").Add(float64(purgedItems.Load()))

	slog.Info("Sweep complete",
		"expired", len(expired),
		"sessions_purged", purgedSessions.Load(),
		"items_purged", purgedItems.Load())
}

// cleanupSession removes one expired session's items and then its record.
// Items go first: if the process dies between the two steps, the session
// record survives and the next sweep retries the whole unit. The reverse
// order would strand items no later sweep could ever find.
func (s *Sweeper) cleanupSession(ctx context.Context, session domain.Session) (int64, bool) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cleanupTimeout)
	defer cancel()

	itemCount, err := s.items.DeleteBySession(cleanupCtx, session.ID)
	if err != nil {
		slog.Error("Sweep: failed to delete session items",
			"session_id", session.ID.String(),
			"error", err)
		metrics.SweepErrorsTotal.WithLabelValues("items").Inc()
		return 0, false
	}

	if err := s.sessions.Delete(cleanupCtx, session.ID); err != nil {
		slog.Error("Sweep: failed to delete session record",
			"session_id", session.ID.String(),
			"items_deleted", itemCount,
			"error", err)
		metrics.SweepErrorsTotal.WithLabelValues("session").Inc()
		return 0, false
	}

	slog.Info("Swept expired session",
		"session_id", session.ID.String(),
		"items_deleted", itemCount,
		"expired_at", session.ExpiresAt)
	return itemCount, true
}
