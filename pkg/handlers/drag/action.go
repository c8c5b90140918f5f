// Package drag implements the drag action.
package drag

import (
	"context"
	"encoding/json"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler drags a source element onto a destination element. The source
// comes from the step target, the destination from the "to" parameter.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	if _, ok := params["to"]; !ok {
		return models.NewStepError(models.CodeValidationError, "drag action requires a 'to' target")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "drag element"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	src, stepErr := ec.Locate(ctx, action.ID, action.Target)
	if stepErr != nil {
		return models.FailedResult(models.AsStepError(stepErr)), nil
	}

	dest, err := destTarget(action.Params["to"])
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "drag 'to' target is malformed: %v", err)), nil
	}

	dst, stepErr := ec.Locate(ctx, action.ID, dest)
	if stepErr != nil {
		return models.FailedResult(models.AsStepError(stepErr)), nil
	}

	if err := ec.Driver.Drag(ctx, ec.TabID, ec.FrameID, src.Element.Ref, dst.Element.Ref); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(map[string]any{
		"sourceResolvedBy": src.ResolvedBy,
		"destResolvedBy":   dst.ResolvedBy,
	}), nil
}

// destTarget decodes an inline element target out of the step params.
func destTarget(raw any) (*models.ElementTarget, error) {
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}

	target := &models.ElementTarget{}
	if err := json.Unmarshal(buf, target); err != nil {
		return nil, err
	}

	return target, nil
}

// Factory creates drag handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "drag" }
func (f *Factory) Name() string        { return "Drag" }
func (f *Factory) Description() string { return "Drags a source element onto a destination element" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"to"},
		"properties": map[string]any{
			"to": map[string]any{"type": "object"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
