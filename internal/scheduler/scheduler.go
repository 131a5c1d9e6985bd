// Package scheduler runs the periodic auto-approval of pending event-linked
// recycling logs. It is a thin timer around the verification engine; the
// engine's verified guard is what keeps a tick from double-awarding points
// when an admin approves the same log concurrently.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ecotrack/internal/model"
	"ecotrack/internal/recycling"
	"ecotrack/internal/repo"
)

// Summary reports the outcome of one tick. Processed is false when the
// auto-approval toggle was off and nothing was attempted.
type Summary struct {
	Processed bool
	Approved  int
	Failed    int
	Total     int
}

type Scheduler struct {
	engine   *recycling.Engine
	repo     repo.Repository
	interval time.Duration
	log      *zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var systemActor = model.Actor{ID: model.SystemActorID, Role: model.RoleSystem}

func New(engine *recycling.Engine, r repo.Repository, interval time.Duration, log *zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine:   engine,
		repo:     r,
		interval: interval,
		log:      log,
	}
}

// Start launches the periodic timer. If a timer is already running it is
// stopped first, so at most one instance ever ticks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done

	go s.run(ctx, done)
	s.log.Info().Dur("interval", s.interval).Msg("auto-approval scheduler started")
}

// Stop cancels the timer and waits for the loop to exit. A tick already in
// progress runs to completion. Stopping an idle scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel = nil
	s.done = nil
	s.log.Info().Msg("auto-approval scheduler stopped")
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel != nil
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Ticks run with their own context so Stop cannot cancel a
			// batch mid-flight; it only keeps the next tick from firing.
			s.RunOnce(context.Background())
		}
	}
}

// RunOnce executes a single scheduler tick. It is exposed so the batch can be
// tested without wall-clock delays.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	enabled, err := s.repo.GetSettingBool(ctx, model.SettingAutoApproval)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read auto-approval setting")
		return Summary{}
	}
	if !enabled {
		s.log.Debug().Msg("auto-approval disabled, skipping tick")
		return Summary{}
	}

	ids, err := s.repo.GetPendingEventLogIDs(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to query pending event logs")
		return Summary{Processed: true}
	}

	summary := Summary{Processed: true, Total: len(ids)}
	for _, id := range ids {
		if _, err := s.engine.Approve(ctx, id, systemActor); err != nil {
			if errors.Is(err, repo.ErrAlreadyVerified) {
				// Lost the race against a manual approval; nothing to do.
				s.log.Debug().Int64("log_id", id).Msg("log already verified, skipping")
				continue
			}
			summary.Failed++
			s.log.Warn().Err(err).Int64("log_id", id).Msg("auto-approval failed for log")
			continue
		}
		summary.Approved++
	}

	if summary.Approved > 0 {
		details := fmt.Sprintf("approved=%d failed=%d total=%d", summary.Approved, summary.Failed, summary.Total)
		if err := s.repo.InsertSystemLog(ctx, "auto_approval", details); err != nil {
			s.log.Error().Err(err).Msg("failed to write auto-approval audit entry")
		}
		s.log.Info().
			Int("approved", summary.Approved).
			Int("failed", summary.Failed).
			Int("total", summary.Total).
			Msg("auto-approval tick completed")
	}

	return summary
}
