// Package navigate implements the navigate action.
package navigate

import (
	"context"
	"fmt"
	"net/url"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/policy"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler drives the active tab to a new URL.
type Handler struct{}

func (h *Handler) Validate(params map[string]any) error {
	raw, _ := params["url"].(string)
	if raw == "" {
		return models.NewStepError(models.CodeValidationError, "navigate action requires a 'url' parameter")
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	raw, _ := params["url"].(string)

	return fmt.Sprintf("navigate to %s", raw)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	raw, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "rendering url: %v", err)), nil
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "navigate url %q is not absolute", raw)), nil
	}

	if err := ec.Driver.Navigate(ctx, ec.TabID, raw); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeNavigationFailed)), nil
	}

	if !ec.Flags.SkipSettleWait {
		// Navigation always settles; an absent "after" block means the default
		// navigation wait, not no wait at all.
		wait := policy.ParseSettleWait(action.Params)
		if wait == nil {
			wait = policy.DefaultSettleWait(policy.SettleNavigation)
		}

		if err := policy.AwaitSettled(ctx, ec.Driver, ec.TabID, "", wait); err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}
	}

	return models.SuccessResult(map[string]any{"url": raw}), nil
}

// Factory creates navigate handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "navigate" }
func (f *Factory) Name() string        { return "Navigate" }
func (f *Factory) Description() string { return "Drives the active tab to a new URL" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url": map[string]any{"type": "string"},
			"after": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"waitForNavigation": map[string]any{"type": "boolean"},
					"networkIdle":       map[string]any{"type": "boolean"},
					"idleMs":            map[string]any{"type": "integer"},
					"timeoutMs":         map[string]any{"type": "integer"},
				},
			},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) { return &Handler{}, nil }
