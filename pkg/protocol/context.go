package protocol

import (
	"context"
	"log/slog"
	"time"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/jsengine"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/resolve"
	"github.com/retrace-dev/retrace/pkg/variables"
)

// ExecFlags carry orchestrator-owned execution toggles into handlers.
type ExecFlags struct {
	// SkipSettleWait tells handlers the orchestrator owns the post-action
	// navigation/network-idle wait, so they must not apply it themselves.
	// Set when two dispatch tiers are active to avoid double policy
	// application.
	SkipSettleWait bool
	// ScreenshotOnFailure enables failure screenshots for this run.
	ScreenshotOnFailure bool
}

// ExecContext is the per-run execution context threaded through every step:
// the shared variable store, the active tab/frame identity, the logging sink,
// and the collaborator handles. Tab and frame identity are mutable: tab
// management and frame-switch actions update them for all subsequent steps.
type ExecContext struct {
	RunID  string
	FlowID string

	Vars     *variables.Store
	Driver   browser.Driver
	Resolver *resolve.Engine
	JS       *jsengine.Engine
	Logger   *slog.Logger

	TabID   string
	FrameID string

	// Deadline is the run's global wall-clock deadline; zero means none.
	Deadline time.Time

	Flags ExecFlags

	// LogSink receives structured per-step entries. Never nil once the
	// orchestrator prepared the run.
	LogSink func(models.RunLogEntry)
}

// Log emits a structured run log entry, stamping the time.
func (ec *ExecContext) Log(entry models.RunLogEntry) {
	if ec.LogSink == nil {
		return
	}

	if entry.At.IsZero() {
		entry.At = time.Now()
	}

	ec.LogSink(entry)
}

// Remaining returns how much of the global deadline is left, or fallback when
// no deadline is set. Expired deadlines return zero.
func (ec *ExecContext) Remaining(fallback time.Duration) time.Duration {
	if ec.Deadline.IsZero() {
		return fallback
	}

	remaining := time.Until(ec.Deadline)
	if remaining < 0 {
		return 0
	}

	if fallback > 0 && remaining > fallback {
		return fallback
	}

	return remaining
}

// Render interpolates a parameter string against the variable store.
func (ec *ExecContext) Render(input string) (any, error) {
	return ec.Vars.Render(input)
}

// RenderString interpolates and coerces to string.
func (ec *ExecContext) RenderString(input string) (string, error) {
	return ec.Vars.RenderString(input)
}

// Locate reads the current page and resolves the target, emitting a fallback
// log entry when a stale ref fell through to a candidate strategy.
func (ec *ExecContext) Locate(ctx context.Context, stepID string, target *models.ElementTarget) (*resolve.Resolution, error) {
	page, err := ec.Driver.ReadPage(ctx, ec.TabID, ec.FrameID)
	if err != nil {
		return nil, classifyDriverError(err)
	}

	resolution, err := ec.Resolver.Locate(ctx, page, target)
	if err != nil {
		return nil, err
	}

	if resolution.FallbackUsed() {
		ec.Log(models.RunLogEntry{
			StepID:       stepID,
			Status:       "fallback",
			Message:      "target ref was stale, resolved by fallback strategy",
			FallbackUsed: true,
			FallbackFrom: resolution.FallbackFrom,
			FallbackTo:   resolution.ResolvedBy,
		})
	}

	return resolution, nil
}

func classifyDriverError(err error) error {
	switch {
	case err == nil:
		return nil
	case browserIs(err, browser.ErrTabNotFound):
		return models.NewStepError(models.CodeTabNotFound, "%v", err)
	case browserIs(err, browser.ErrFrameNotFound):
		return models.NewStepError(models.CodeFrameNotFound, "%v", err)
	default:
		return models.NewStepError(models.CodeUnknown, "%v", err)
	}
}
