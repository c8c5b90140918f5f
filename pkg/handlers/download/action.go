// Package download implements the handleDownload action.
package download

import (
	"context"
	"time"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

const defaultDownloadTimeout = 30 * time.Second

// Handler waits for a file download triggered by a previous step to land.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	return "wait for download"
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	timeout := defaultDownloadTimeout
	if ms := action.IntParam("timeoutMs", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	filename, err := ec.Driver.WaitForDownload(ctx, ec.TabID, timeout)
	if err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeDownloadFailed)), nil
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, filename)
	}

	return models.SuccessResult(map[string]any{"filename": filename}), nil
}

// Factory creates handleDownload handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "handleDownload" }
func (f *Factory) Name() string        { return "Handle Download" }
func (f *Factory) Description() string { return "Waits for a triggered file download to complete" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"timeoutMs": map[string]any{"type": "integer"},
			"saveAs":    map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
