// Package fill implements the fill action: resolve the target, optionally
// clear it, and type a value with template substitution from variables.
package fill

import (
	"context"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler types a value into a resolved element.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	if _, ok := params["value"].(string); !ok {
		return models.NewStepError(models.CodeValidationError, "fill requires a string 'value' parameter")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	value, _ := params["value"].(string)

	return fmt.Sprintf("fill %q", value)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	resolution, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	value, err := ec.RenderString(action.StringParam("value", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError,
			"rendering fill value: %v", err)), nil
	}

	clear := action.BoolParam("clear", true)

	if err := ec.Driver.TypeText(ctx, ec.TabID, ec.FrameID, resolution.Element.Ref, value, clear); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	if key := action.StringParam("thenPress", ""); key != "" {
		if err := ec.Driver.PressKey(ctx, ec.TabID, ec.FrameID, key); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
		}
	}

	return models.SuccessResult(map[string]any{"resolvedBy": resolution.ResolvedBy}), nil
}
