// Package click implements the click and dblclick actions: resolve the
// target, verify visibility, dispatch the click, optionally wait for the page
// to settle.
package click

import (
	"context"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/policy"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler dispatches single or double clicks.
type Handler struct {
	double bool
}

// Validate accepts any params; the target lives on the action itself.
func (h *Handler) Validate(params map[string]any) error {
	if button, ok := params["button"].(string); ok {
		switch button {
		case "", "left", "middle", "right":
		default:
			return models.NewStepError(models.CodeValidationError, "invalid button %q", button)
		}
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	verb := "click"
	if h.double {
		verb = "double-click"
	}

	if button, ok := params["button"].(string); ok && button != "" && button != "left" {
		return fmt.Sprintf("%s (%s button)", verb, button)
	}

	return verb
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	resolution, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if !resolution.Element.Visible {
		return models.FailedResult(models.NewStepError(models.CodeElementNotVisible,
			"element %s is not visible", resolution.Element.Ref)), nil
	}

	fromURL := ""
	if tab, err := ec.Driver.Tab(ctx, ec.TabID); err == nil {
		fromURL = tab.URL
	}

	opts := browser.ClickOptions{Count: 1, Button: action.StringParam("button", "")}
	if h.double {
		opts.Count = 2
	}

	if err := ec.Driver.Click(ctx, ec.TabID, ec.FrameID, resolution.Element.Ref, opts); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	if !ec.Flags.SkipSettleWait {
		if wait := policy.ParseSettleWait(action.Params); wait != nil {
			if err := policy.AwaitSettled(ctx, ec.Driver, ec.TabID, fromURL, wait); err != nil {
				return models.FailedResult(models.AsStepError(err)), nil
			}
		}
	}

	return models.SuccessResult(map[string]any{"resolvedBy": resolution.ResolvedBy}), nil
}
