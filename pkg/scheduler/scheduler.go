// Package scheduler fires recurring replays of registered flows from their
// cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/orchestrator"
	"github.com/retrace-dev/retrace/pkg/persistence"
)

// FlowRunner launches one replay. The orchestrator satisfies it.
type FlowRunner interface {
	Run(ctx context.Context, flow *models.Flow, opts orchestrator.RunOptions) (*models.RunResult, error)
}

// Scheduler loads schedules from persistence and fires replays on their
// cron expressions. Reload picks up schedule changes without restarting.
type Scheduler struct {
	store  persistence.Persistence
	runner FlowRunner
	logger *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
}

func New(store persistence.Persistence, runner FlowRunner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		store:   store,
		runner:  runner,
		logger:  logger.With("module", "scheduler"),
		cron:    cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start loads all enabled schedules and begins firing them. It returns
// after the cron loop is running; Stop shuts it down.
func (s *Scheduler) Start(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.InfoContext(ctx, "scheduler started", "schedules", len(s.entries))

	return nil
}

// Reload synchronizes the cron entries with the schedule repository:
// new and changed schedules are registered, removed and disabled ones are
// dropped.
func (s *Scheduler) Reload(ctx context.Context) error {
	schedules, err := s.store.ScheduleRepository().Schedules(ctx)
	if err != nil {
		return fmt.Errorf("loading schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(schedules))

	for _, schedule := range schedules {
		if !schedule.Enabled {
			continue
		}

		if err := schedule.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skipping schedule", "schedule", schedule.ID, "error", err)

			continue
		}

		seen[schedule.ID] = struct{}{}

		if id, ok := s.entries[schedule.ID]; ok {
			s.cron.Remove(id)
		}

		entryID, err := s.cron.AddFunc(schedule.CronExpr, s.fire(schedule))
		if err != nil {
			s.logger.WarnContext(ctx, "registering schedule", "schedule", schedule.ID, "error", err)

			continue
		}

		s.entries[schedule.ID] = entryID
	}

	for id, entryID := range s.entries {
		if _, ok := seen[id]; !ok {
			s.cron.Remove(entryID)
			delete(s.entries, id)
		}
	}

	return nil
}

// fire builds the callback one schedule runs on each tick. Each firing is
// an independent replay with its own run id.
func (s *Scheduler) fire(schedule *models.Schedule) func() {
	scheduleID := schedule.ID
	flowID := schedule.FlowID

	return func() {
		ctx := context.Background()

		flow, err := s.store.FlowRepository().FlowByID(ctx, flowID)
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled flow unavailable",
				"schedule", scheduleID, "flow", flowID, "error", err)

			return
		}

		started := time.Now()

		result, err := s.runner.Run(ctx, flow, orchestrator.RunOptions{})
		if err != nil {
			s.logger.ErrorContext(ctx, "scheduled run failed to start",
				"schedule", scheduleID, "flow", flowID, "error", err)

			return
		}

		s.logger.InfoContext(ctx, "scheduled run finished",
			"schedule", scheduleID,
			"flow", flowID,
			"run", result.RunID,
			"success", result.Success,
			"tookMs", time.Since(started).Milliseconds())
	}
}

// Stop halts the cron loop and waits for in-flight firings to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// NextFirings reports the next fire time per registered schedule id.
func (s *Scheduler) NextFirings() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]time.Time, len(s.entries))

	for id, entryID := range s.entries {
		entry := s.cron.Entry(entryID)
		if !entry.Next.IsZero() {
			out[id] = entry.Next
		}
	}

	return out
}
