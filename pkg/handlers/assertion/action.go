// Package assertion implements the assert action.
package assertion

import (
	"context"
	"fmt"
	"strings"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Fail strategies decide how a failed assertion affects the step. "warn"
// logs and continues, "retry" and "stop" fail the step; with "retry" the
// step policy is expected to list ASSERTION_FAILED in retryOn.
const (
	FailStop  = "stop"
	FailWarn  = "warn"
	FailRetry = "retry"
)

// Handler evaluates a condition against the current page or variables.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	strategy, _ := params["failStrategy"].(string)
	switch strategy {
	case "", FailStop, FailWarn, FailRetry:
	default:
		return models.NewStepError(models.CodeValidationError, "failStrategy must be stop, warn, or retry, got %q", strategy)
	}

	condition, _ := params["condition"].(string)
	mode, _ := params["mode"].(string)

	if condition == "" && mode == "" {
		return models.NewStepError(models.CodeValidationError, "assert action requires a 'condition' or a 'mode'")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	if condition, _ := params["condition"].(string); condition != "" {
		return fmt.Sprintf("assert %s", condition)
	}

	mode, _ := params["mode"].(string)

	return fmt.Sprintf("assert element %s", mode)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	ok, detail, err := h.evaluate(ctx, ec, action)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if ok {
		return models.SuccessResult(map[string]any{"passed": true}), nil
	}

	strategy := action.StringParam("failStrategy", FailStop)
	if strategy == FailWarn {
		ec.Log(models.RunLogEntry{
			StepID:  action.ID,
			Status:  "warn",
			Message: "assertion failed: " + detail,
		})

		return models.SuccessResult(map[string]any{"passed": false}), nil
	}

	return models.FailedResult(models.NewStepError(models.CodeAssertionFailed, "%s", detail)), nil
}

func (h *Handler) evaluate(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (bool, string, error) {
	if condition := action.StringParam("condition", ""); condition != "" {
		ok, err := ec.JS.EvaluateBool(ctx, condition, ec.Vars.Snapshot(false))
		if err != nil {
			return false, "", err
		}

		return ok, fmt.Sprintf("condition %q evaluated false", condition), nil
	}

	mode := action.StringParam("mode", "exists")

	res, locErr := ec.Locate(ctx, action.ID, action.Target)

	switch mode {
	case "exists":
		if locErr != nil {
			return false, "element not found", nil
		}

		return true, "", nil
	case "notExists":
		if locErr != nil {
			return true, "", nil
		}

		return false, "element unexpectedly present", nil
	case "visible":
		if locErr != nil {
			return false, "element not found", nil
		}

		return res.Element.Visible, "element is not visible", nil
	case "textEquals", "textContains":
		if locErr != nil {
			return false, "element not found", nil
		}

		expected, err := ec.RenderString(action.StringParam("value", ""))
		if err != nil {
			return false, "", models.NewStepError(models.CodeValidationError, "rendering value: %v", err)
		}

		actual := res.Element.Text
		if mode == "textEquals" {
			return actual == expected,
				fmt.Sprintf("text %q does not equal %q", actual, expected), nil
		}

		return strings.Contains(actual, expected),
			fmt.Sprintf("text %q does not contain %q", actual, expected), nil
	default:
		return false, "", models.NewStepError(models.CodeValidationError, "unknown assert mode %q", mode)
	}
}

// Factory creates assert handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string   { return "assert" }
func (f *Factory) Name() string { return "Assert" }

func (f *Factory) Description() string {
	return "Evaluates a condition against the page or run variables"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"condition": map[string]any{"type": "string"},
			"mode": map[string]any{
				"type": "string",
				"enum": []string{"exists", "notExists", "visible", "textEquals", "textContains"},
			},
			"value": map[string]any{"type": "string"},
			"failStrategy": map[string]any{
				"type": "string",
				"enum": []string{FailStop, FailWarn, FailRetry},
			},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
