// Package extract implements the extract action.
package extract

import (
	"context"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler pulls text or an attribute out of a resolved element and stores
// it in the variable store, either under a plain name (saveAs) or at a
// dotted path inside an existing variable (assignPath).
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	saveAs, _ := params["saveAs"].(string)
	assignPath, _ := params["assignPath"].(string)

	if saveAs == "" && assignPath == "" {
		return models.NewStepError(models.CodeValidationError, "extract action requires 'saveAs' or 'assignPath'")
	}

	if saveAs != "" && assignPath != "" {
		return models.NewStepError(models.CodeValidationError, "extract action accepts 'saveAs' or 'assignPath', not both")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	if saveAs, _ := params["saveAs"].(string); saveAs != "" {
		return fmt.Sprintf("extract into %s", saveAs)
	}

	assignPath, _ := params["assignPath"].(string)

	return fmt.Sprintf("extract into %s", assignPath)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	var value string

	if attr := action.StringParam("attribute", ""); attr != "" {
		value = res.Element.Attr(attr)
	} else {
		value = res.Element.Text
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, value)
	} else if assignPath := action.StringParam("assignPath", ""); assignPath != "" {
		if err := ec.Vars.AssignPath(assignPath, value); err != nil {
			return models.FailedResult(models.NewStepError(models.CodeValidationError, "assigning %s: %v", assignPath, err)), nil
		}
	}

	return models.SuccessResult(map[string]any{"value": value}), nil
}

// Factory creates extract handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string   { return "extract" }
func (f *Factory) Name() string { return "Extract" }

func (f *Factory) Description() string {
	return "Extracts element text or an attribute into a variable"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"attribute":  map[string]any{"type": "string"},
			"saveAs":     map[string]any{"type": "string"},
			"assignPath": map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
