// Package keypress implements the key action.
package keypress

import (
	"context"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler sends one or more key presses to the active frame.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	if key, _ := params["key"].(string); key == "" {
		return models.NewStepError(models.CodeValidationError, "key action requires a 'key' parameter")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	key, _ := params["key"].(string)

	return fmt.Sprintf("press %q", key)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	key := action.StringParam("key", "")
	times := action.IntParam("times", 1)

	if times < 1 {
		times = 1
	}

	for i := 0; i < times; i++ {
		if err := ec.Driver.PressKey(ctx, ec.TabID, ec.FrameID, key); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
		}
	}

	return models.SuccessResult(nil), nil
}

// Factory creates key handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "key" }
func (f *Factory) Name() string        { return "Key Press" }
func (f *Factory) Description() string { return "Sends key presses to the active frame" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"key"},
		"properties": map[string]any{
			"key":   map[string]any{"type": "string"},
			"times": map[string]any{"type": "integer", "minimum": 1},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
