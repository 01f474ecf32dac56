package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/immxrtalbeast/debatehall/lib/logger/sl"
	"github.com/sourcegraph/conc/pool"
)

// SessionAdvancer moves sessions whose deadlines have passed.
type SessionAdvancer interface {
	ActiveSessions(ctx context.Context) ([]*domain.DebateSession, error)
	AdvanceSession(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// Scheduler periodically persists deadline-driven phase transitions.
type Scheduler struct {
	sessions SessionAdvancer
	interval time.Duration
	workers  int
	log      *slog.Logger
}

func New(sessions SessionAdvancer, interval time.Duration, workers int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if workers <= 0 {
		workers = 1
	}
	return &Scheduler{
		sessions: sessions,
		interval: interval,
		workers:  workers,
		log:      log.With(slog.String("component", "scheduler")),
	}
}

// Run ticks immediately and then on every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("starting scheduler", slog.Duration("interval", s.interval), slog.Int("workers", s.workers))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runTick(ctx)
	for {
		select {
		case <-ticker.C:
			s.runTick(ctx)
		case <-ctx.Done():
			s.log.Info("stopping scheduler")
			return nil
		}
	}
}

// Tick advances every active session once and returns the number of
// committed transitions. Per-session failures are joined into the error.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	const op = "scheduler.tick"

	sessions, err := s.sessions.ActiveSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	var applied atomic.Int64
	p := pool.New().WithMaxGoroutines(s.workers).WithContext(ctx)
	for _, session := range sessions {
		id := session.ID
		p.Go(func(ctx context.Context) error {
			n, err := s.sessions.AdvanceSession(ctx, id)
			if err != nil {
				// A moderator or another instance got there first.
				if errors.Is(err, domain.ErrInvalidTransition) {
					s.log.Debug("session already advanced", slog.String("session_id", id.String()))
					return nil
				}
				return fmt.Errorf("session %s: %w", id, err)
			}
			applied.Add(int64(n))
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return int(applied.Load()), fmt.Errorf("%s: %w", op, err)
	}
	return int(applied.Load()), nil
}

func (s *Scheduler) runTick(ctx context.Context) {
	applied, err := s.Tick(ctx)
	if err != nil {
		s.log.Error("scheduler tick failed", sl.Err(err))
	}
	if applied > 0 {
		s.log.Info("sessions advanced", slog.Int("transitions", applied))
	}
}
