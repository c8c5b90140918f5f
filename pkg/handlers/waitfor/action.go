// Package waitfor implements the wait action.
package waitfor

import (
	"context"
	"time"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/resolve"
)

const (
	defaultWaitTimeout = 15 * time.Second
	pollInterval       = 100 * time.Millisecond
)

// Handler pauses the flow until a condition holds. Supported modes are a
// fixed sleep, an element becoming visible, network idle, and a scripted
// condition evaluating truthy.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "wait"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if ms := action.IntParam("ms", 0); ms > 0 {
		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "wait interrupted")), nil
		case <-time.After(time.Duration(ms) * time.Millisecond):
		}

		return models.SuccessResult(nil), nil
	}

	timeout := defaultWaitTimeout
	if ms := action.IntParam("timeoutMs", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	if networkIdle := action.BoolParam("networkIdle", false); networkIdle {
		idle := 500 * time.Millisecond
		if ms := action.IntParam("idleMs", 0); ms > 0 {
			idle = time.Duration(ms) * time.Millisecond
		}

		if err := ec.Driver.WaitForNetworkIdle(ctx, ec.TabID, idle, timeout); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTimeout)), nil
		}

		return models.SuccessResult(nil), nil
	}

	if condition := action.StringParam("condition", ""); condition != "" {
		return h.waitCondition(ctx, ec, condition, timeout)
	}

	if !action.Target.Empty() {
		return h.waitElement(ctx, ec, action, timeout)
	}

	return models.FailedResult(models.NewStepError(models.CodeValidationError, "wait action has nothing to wait for")), nil
}

func (h *Handler) waitCondition(ctx context.Context, ec *protocol.ExecContext, condition string, timeout time.Duration) (*models.ExecutionResult, error) {
	deadline := time.Now().Add(timeout)

	for {
		ok, err := ec.JS.EvaluateBool(ctx, condition, ec.Vars.Snapshot(false))
		if err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}

		if ok {
			return models.SuccessResult(nil), nil
		}

		if time.Now().After(deadline) {
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "condition did not become true within %s", timeout)), nil
		}

		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "wait interrupted")), nil
		case <-time.After(pollInterval):
		}
	}
}

func (h *Handler) waitElement(ctx context.Context, ec *protocol.ExecContext, action *models.Action, timeout time.Duration) (*models.ExecutionResult, error) {
	deadline := time.Now().Add(timeout)

	for {
		res, stepErr := ec.Locate(ctx, action.ID, action.Target)
		if stepErr == nil && res.Element.Visible {
			return models.SuccessResult(map[string]any{"resolvedBy": res.ResolvedBy}), nil
		}

		if stepErr != nil && !resolve.IsNotFound(stepErr) {
			return models.FailedResult(models.AsStepError(stepErr)), nil
		}

		if time.Now().After(deadline) {
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "element did not appear within %s", timeout)), nil
		}

		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "wait interrupted")), nil
		case <-time.After(pollInterval):
		}
	}
}

// Factory creates wait handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string   { return "wait" }
func (f *Factory) Name() string { return "Wait" }

func (f *Factory) Description() string {
	return "Pauses the flow for a duration, element, network idle, or scripted condition"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ms":          map[string]any{"type": "integer", "minimum": 1},
			"condition":   map[string]any{"type": "string"},
			"networkIdle": map[string]any{"type": "boolean"},
			"idleMs":      map[string]any{"type": "integer"},
			"timeoutMs":   map[string]any{"type": "integer"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
