package protocol

import (
	"context"

	"github.com/retrace-dev/retrace/pkg/models"
)

// HookDecision is what a before-step hook can ask of the orchestrator.
type HookDecision struct {
	// Pause halts the run in paused state at the current node; the run is
	// resumable later at the recorded node id.
	Pause bool
	// Skip marks the step skipped without executing it.
	Skip bool
}

// Hook observes and can steer every step transition. Implementations embed
// BaseHook and override what they need.
type Hook interface {
	// BeforeStep runs before a step executes; its decision can pause the
	// run or skip the step.
	BeforeStep(ctx context.Context, ec *ExecContext, action *models.Action) (*HookDecision, error)
	// AfterStep runs after a step produced its result.
	AfterStep(ctx context.Context, ec *ExecContext, action *models.Action, result *models.ExecutionResult)
	// OnRetry runs before each retry backoff delay.
	OnRetry(ctx context.Context, ec *ExecContext, action *models.Action, attempt int, err *models.StepError)
	// OnError runs when a step has exhausted its attempts and failed.
	OnError(ctx context.Context, ec *ExecContext, action *models.Action, err *models.StepError)
	// ChooseNextLabel may override the next edge label; empty string means
	// no opinion.
	ChooseNextLabel(ctx context.Context, ec *ExecContext, action *models.Action, result *models.ExecutionResult) string
}

// BaseHook is a no-op Hook for embedding.
type BaseHook struct{}

func (BaseHook) BeforeStep(context.Context, *ExecContext, *models.Action) (*HookDecision, error) {
	return nil, nil
}

func (BaseHook) AfterStep(context.Context, *ExecContext, *models.Action, *models.ExecutionResult) {
}

func (BaseHook) OnRetry(context.Context, *ExecContext, *models.Action, int, *models.StepError) {
}

func (BaseHook) OnError(context.Context, *ExecContext, *models.Action, *models.StepError) {
}

func (BaseHook) ChooseNextLabel(context.Context, *ExecContext, *models.Action, *models.ExecutionResult) string {
	return ""
}
