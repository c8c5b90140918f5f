// Package scrollto implements the scroll action.
package scrollto

import (
	"context"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler scrolls an element into view, or scrolls the viewport by a
// pixel offset when no target is set.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "scroll"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if !action.Target.Empty() {
		res, stepErr := ec.Locate(ctx, action.ID, action.Target)
		if stepErr != nil {
			return models.FailedResult(models.AsStepError(stepErr)), nil
		}

		if err := ec.Driver.Scroll(ctx, ec.TabID, ec.FrameID, res.Element.Ref, 0, 0); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
		}

		return models.SuccessResult(map[string]any{"resolvedBy": res.ResolvedBy}), nil
	}

	dx := action.IntParam("deltaX", 0)
	dy := action.IntParam("deltaY", 0)

	if err := ec.Driver.Scroll(ctx, ec.TabID, ec.FrameID, "", dx, dy); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

// Factory creates scroll handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string   { return "scroll" }
func (f *Factory) Name() string { return "Scroll" }

func (f *Factory) Description() string {
	return "Scrolls an element into view or scrolls the viewport by an offset"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"deltaX": map[string]any{"type": "integer"},
			"deltaY": map[string]any{"type": "integer"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
