// Package script implements the script action.
package script

import (
	"context"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler evaluates a JavaScript snippet against the run variables and
// optionally stores the result.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	if code, _ := params["code"].(string); code == "" {
		return models.NewStepError(models.CodeValidationError, "script action requires a 'code' parameter")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "run script"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	code := action.StringParam("code", "")

	var (
		value any
		err   error
	)

	if action.BoolParam("inPage", false) {
		value, err = ec.Driver.Evaluate(ctx, ec.TabID, ec.FrameID, code)
		if err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeScriptFailed)), nil
		}
	} else {
		value, err = ec.JS.Evaluate(ctx, code, ec.Vars.Snapshot(false))
		if err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, value)
	}

	if assignPath := action.StringParam("assignPath", ""); assignPath != "" {
		if err := ec.Vars.AssignPath(assignPath, value); err != nil {
			return models.FailedResult(models.NewStepError(models.CodeValidationError, "assigning %s: %v", assignPath, err)), nil
		}
	}

	return models.SuccessResult(map[string]any{"result": value}), nil
}

// Factory creates script handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string   { return "script" }
func (f *Factory) Name() string { return "Script" }

func (f *Factory) Description() string {
	return "Evaluates a JavaScript snippet against the run variables or in the page"
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"code"},
		"properties": map[string]any{
			"code":       map[string]any{"type": "string"},
			"inPage":     map[string]any{"type": "boolean"},
			"saveAs":     map[string]any{"type": "string"},
			"assignPath": map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
