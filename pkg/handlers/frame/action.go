// Package frame implements the switchFrame action.
package frame

import (
	"context"
	"fmt"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler changes the active frame for all subsequent steps. An empty or
// "top" frame id returns to the main document.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	frameID, _ := params["frameId"].(string)
	if frameID == "" || frameID == "top" {
		return "switch to top frame"
	}

	return fmt.Sprintf("switch to frame %s", frameID)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	frameID := action.StringParam("frameId", "")
	if frameID == "top" {
		frameID = ""
	}

	// Probe the frame before committing so a typo fails this step instead
	// of every step after it.
	if frameID != "" {
		if _, err := ec.Driver.ReadPage(ctx, ec.TabID, frameID); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeFrameNotFound)), nil
		}
	}

	ec.FrameID = frameID

	return models.SuccessResult(map[string]any{"frameId": frameID}), nil
}

// Factory creates switchFrame handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "switchFrame" }
func (f *Factory) Name() string        { return "Switch Frame" }
func (f *Factory) Description() string { return "Changes the active frame for subsequent steps" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"frameId": map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
