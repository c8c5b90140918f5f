// Package tabs implements the openTab, switchTab, and closeTab actions.
// Tab handlers mutate the execution context's active tab so every later
// step runs against the new tab.
package tabs

import (
	"context"
	"fmt"
	"strings"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// OpenHandler opens a new tab and makes it the active one.
type OpenHandler struct{}

func (h *OpenHandler) Validate(params map[string]any) error {
	if url, _ := params["url"].(string); url == "" {
		return models.NewStepError(models.CodeValidationError, "openTab action requires a 'url' parameter")
	}

	return nil
}

func (h *OpenHandler) Describe(params map[string]any) string {
	url, _ := params["url"].(string)

	return fmt.Sprintf("open tab %s", url)
}

func (h *OpenHandler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	url, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "rendering url: %v", err)), nil
	}

	info, err := ec.Driver.OpenTab(ctx, url)
	if err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeNavigationFailed)), nil
	}

	ec.TabID = info.ID
	ec.FrameID = ""

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, info.ID)
	}

	return models.SuccessResult(map[string]any{"tabId": info.ID}), nil
}

// SwitchHandler activates an existing tab by id or by URL substring.
type SwitchHandler struct{}

func (h *SwitchHandler) Validate(params map[string]any) error {
	tabID, _ := params["tabId"].(string)
	urlContains, _ := params["urlContains"].(string)

	if tabID == "" && urlContains == "" {
		return models.NewStepError(models.CodeValidationError, "switchTab action requires 'tabId' or 'urlContains'")
	}

	return nil
}

func (h *SwitchHandler) Describe(params map[string]any) string {
	return "switch tab"
}

func (h *SwitchHandler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	tabID, err := ec.RenderString(action.StringParam("tabId", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "rendering tabId: %v", err)), nil
	}

	if tabID == "" {
		urlContains := action.StringParam("urlContains", "")

		tabID, err = findTabByURL(ctx, ec.Driver, urlContains)
		if err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}
	}

	if err := ec.Driver.SwitchTab(ctx, tabID); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTabNotFound)), nil
	}

	ec.TabID = tabID
	ec.FrameID = ""

	return models.SuccessResult(map[string]any{"tabId": tabID}), nil
}

// CloseHandler closes a tab; without a tabId it closes the active one and
// the orchestrator is expected to have another tab to continue on.
type CloseHandler struct{}

func (h *CloseHandler) Validate(params map[string]any) error {
	return nil
}

func (h *CloseHandler) Describe(params map[string]any) string {
	return "close tab"
}

func (h *CloseHandler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	tabID := action.StringParam("tabId", "")
	if tabID == "" {
		tabID = ec.TabID
	}

	if err := ec.Driver.CloseTab(ctx, tabID); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTabNotFound)), nil
	}

	if switchTo := action.StringParam("switchTo", ""); switchTo != "" && tabID == ec.TabID {
		if err := ec.Driver.SwitchTab(ctx, switchTo); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTabNotFound)), nil
		}

		ec.TabID = switchTo
		ec.FrameID = ""
	}

	return models.SuccessResult(nil), nil
}

func findTabByURL(ctx context.Context, drv browser.Driver, fragment string) (string, error) {
	infos, err := drv.Tabs(ctx)
	if err != nil {
		return "", protocol.ClassifyBrowserError(err, models.CodeTabNotFound)
	}

	for _, info := range infos {
		if strings.Contains(info.URL, fragment) {
			return info.ID, nil
		}
	}

	return "", models.NewStepError(models.CodeTabNotFound, "no tab matches url fragment %q", fragment)
}
