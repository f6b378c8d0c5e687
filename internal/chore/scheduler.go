package chore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/encero/chores-tracker-sub000/internal/recurrence"
	"github.com/encero/chores-tracker-sub000/internal/store"
)

// Scheduler runs generation for the current local date on a fixed interval.
type Scheduler struct {
	mu        sync.RWMutex
	generator *Generator
	sessions  *store.SessionStore
	interval  time.Duration
	loc       *time.Location
	graceDays int
	now       func() time.Time
	logger    *slog.Logger
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a generation scheduler. sessions may be nil.
func NewScheduler(gen *Generator, sessions *store.SessionStore, interval time.Duration, loc *time.Location, graceDays int, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		generator: gen,
		sessions:  sessions,
		interval:  interval,
		loc:       loc,
		graceDays: graceDays,
		now:       time.Now,
		logger:    logger,
	}
}

// Start runs one pass immediately and then one per interval until ctx is
// cancelled or Stop is called. Calling Start on a running scheduler is a
// no-op; it can be started again after Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		s.logger.Warn("scheduler already running")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	done := make(chan struct{})
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	today := recurrence.Today(s.now(), s.loc)

	if _, err := s.generator.GenerateForDate(ctx, today); err != nil {
		s.logger.Error("scheduled generation", "date", today, "error", err)
	}
	if _, err := s.generator.SweepMissed(ctx, today, s.graceDays); err != nil {
		s.logger.Error("sweep missed instances", "date", today, "error", err)
	}

	if s.sessions != nil {
		if n, err := s.sessions.DeleteExpired(); err != nil {
			s.logger.Error("delete expired sessions", "error", err)
		} else if n > 0 {
			s.logger.Debug("expired sessions deleted", "count", n)
		}
	}
}
