// Package screenshot implements the screenshot action.
package screenshot

import (
	"context"
	"encoding/base64"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler captures the active tab and attaches the image to the run log.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "take screenshot"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	image, err := ec.Driver.Screenshot(ctx, ec.TabID)
	if err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	encoded := base64.StdEncoding.EncodeToString(image)

	ec.Log(models.RunLogEntry{
		StepID:           action.ID,
		Status:           "screenshot",
		ScreenshotBase64: encoded,
	})

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, encoded)
	}

	return models.SuccessResult(nil), nil
}

// Factory creates screenshot handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "screenshot" }
func (f *Factory) Name() string        { return "Screenshot" }
func (f *Factory) Description() string { return "Captures the active tab as an image" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"saveAs": map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
