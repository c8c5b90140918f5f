// Package dispatch provides the step-executor tiers: the legacy direct
// dispatch table, the strict registry-based executor, and the hybrid
// executor bridging the two during migration.
package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// LegacyExecutor is the original single-switch dispatch table. It predates
// the handler registry and still carries the action types that were never
// migrated: triggerEvent, setAttribute, loopElements and executeFlow run
// only here.
type LegacyExecutor struct {
	log    *logrus.Logger
	client *http.Client
}

func NewLegacyExecutor(log *logrus.Logger) *LegacyExecutor {
	if log == nil {
		log = logrus.New()
	}

	return &LegacyExecutor{log: log, client: &http.Client{}}
}

func (e *LegacyExecutor) Name() string { return "legacy" }

func (e *LegacyExecutor) Supports(t models.ActionType) bool {
	return t.Known() && !t.IsTrigger()
}

func (e *LegacyExecutor) Execute(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	e.log.WithFields(logrus.Fields{
		"step": action.ID,
		"type": action.Type,
	}).Debug("legacy dispatch")

	switch action.Type {
	case models.ActionNavigate:
		return e.navigate(ctx, ec, action)
	case models.ActionClick, models.ActionDblClick:
		return e.click(ctx, ec, action)
	case models.ActionFill:
		return e.fill(ctx, ec, action)
	case models.ActionKey:
		return e.key(ctx, ec, action)
	case models.ActionScroll:
		return e.scroll(ctx, ec, action)
	case models.ActionDrag:
		return e.drag(ctx, ec, action)
	case models.ActionWait:
		return e.wait(ctx, ec, action)
	case models.ActionAssert:
		return e.assert(ctx, ec, action)
	case models.ActionExtract:
		return e.extract(ctx, ec, action)
	case models.ActionScript:
		return e.script(ctx, ec, action)
	case models.ActionHTTP:
		return e.http(ctx, ec, action)
	case models.ActionScreenshot:
		return e.screenshot(ctx, ec, action)
	case models.ActionOpenTab:
		return e.openTab(ctx, ec, action)
	case models.ActionSwitchTab:
		return e.switchTab(ctx, ec, action)
	case models.ActionCloseTab:
		return e.closeTab(ctx, ec, action)
	case models.ActionHandleDownload:
		return e.download(ctx, ec, action)
	case models.ActionSwitchFrame:
		return e.switchFrame(ctx, ec, action)
	case models.ActionTriggerEvent:
		return e.triggerEvent(ctx, ec, action)
	case models.ActionSetAttribute:
		return e.setAttribute(ctx, ec, action)
	case models.ActionIf, models.ActionForeach, models.ActionWhile,
		models.ActionLoopElements, models.ActionExecuteFlow:
		return e.control(action)
	default:
		return nil, protocol.ErrUnsupportedType
	}
}

func (e *LegacyExecutor) navigate(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	url, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad url: %v", err)), nil
	}

	if err := ec.Driver.Navigate(ctx, ec.TabID, url); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeNavigationFailed)), nil
	}

	if !ec.Flags.SkipSettleWait {
		if err := ec.Driver.WaitForNavigation(ctx, ec.TabID, "", 15*time.Second); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTimeout)), nil
		}
	}

	return models.SuccessResult(map[string]any{"url": url}), nil
}

func (e *LegacyExecutor) click(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if !res.Element.Visible {
		return models.FailedResult(models.NewStepError(models.CodeElementNotVisible, "element is not visible")), nil
	}

	opts := browser.ClickOptions{Count: 1, Button: action.StringParam("button", "")}
	if action.Type == models.ActionDblClick {
		opts.Count = 2
	}

	if err := ec.Driver.Click(ctx, ec.TabID, ec.FrameID, res.Element.Ref, opts); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(map[string]any{"resolvedBy": res.ResolvedBy}), nil
}

func (e *LegacyExecutor) fill(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	value, err := ec.RenderString(action.StringParam("value", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad value: %v", err)), nil
	}

	clear := action.BoolParam("clear", true)
	if err := ec.Driver.TypeText(ctx, ec.TabID, ec.FrameID, res.Element.Ref, value, clear); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) key(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if err := ec.Driver.PressKey(ctx, ec.TabID, ec.FrameID, action.StringParam("key", "")); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) scroll(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	var ref browser.Ref

	if !action.Target.Empty() {
		res, err := ec.Locate(ctx, action.ID, action.Target)
		if err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}

		ref = res.Element.Ref
	}

	dx := action.IntParam("deltaX", 0)
	dy := action.IntParam("deltaY", 0)

	if err := ec.Driver.Scroll(ctx, ec.TabID, ec.FrameID, ref, dx, dy); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) drag(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	src, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	raw, _ := json.Marshal(action.Params["to"])
	dest := &models.ElementTarget{}

	if err := json.Unmarshal(raw, dest); err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad 'to' target: %v", err)), nil
	}

	dst, err := ec.Locate(ctx, action.ID, dest)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if err := ec.Driver.Drag(ctx, ec.TabID, ec.FrameID, src.Element.Ref, dst.Element.Ref); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) wait(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if ms := action.IntParam("ms", 0); ms > 0 {
		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "wait interrupted")), nil
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return models.SuccessResult(nil), nil
		}
	}

	timeout := 15 * time.Second
	if ms := action.IntParam("timeoutMs", 0); ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}

	if action.BoolParam("networkIdle", false) {
		if err := ec.Driver.WaitForNetworkIdle(ctx, ec.TabID, 500*time.Millisecond, timeout); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTimeout)), nil
		}

		return models.SuccessResult(nil), nil
	}

	deadline := time.Now().Add(timeout)
	for {
		res, err := ec.Locate(ctx, action.ID, action.Target)
		if err == nil && res.Element.Visible {
			return models.SuccessResult(nil), nil
		}

		if time.Now().After(deadline) {
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "element did not appear")), nil
		}

		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "wait interrupted")), nil
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func (e *LegacyExecutor) assert(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if condition := action.StringParam("condition", ""); condition != "" {
		ok, err := ec.JS.EvaluateBool(ctx, condition, ec.Vars.Snapshot(false))
		if err != nil {
			return models.FailedResult(models.AsStepError(err)), nil
		}

		if ok {
			return models.SuccessResult(map[string]any{"passed": true}), nil
		}

		if action.StringParam("failStrategy", "stop") == "warn" {
			e.log.WithField("step", action.ID).Warn("assertion failed, continuing")

			return models.SuccessResult(map[string]any{"passed": false}), nil
		}

		return models.FailedResult(models.NewStepError(models.CodeAssertionFailed, "condition %q evaluated false", condition)), nil
	}

	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		if action.StringParam("mode", "exists") == "notExists" {
			return models.SuccessResult(map[string]any{"passed": true}), nil
		}

		if action.StringParam("failStrategy", "stop") == "warn" {
			return models.SuccessResult(map[string]any{"passed": false}), nil
		}

		return models.FailedResult(models.NewStepError(models.CodeAssertionFailed, "element not found")), nil
	}

	passed := true
	if action.StringParam("mode", "exists") == "notExists" {
		passed = false
	} else if expected := action.StringParam("value", ""); expected != "" {
		passed = strings.Contains(res.Element.Text, expected)
	}

	if passed {
		return models.SuccessResult(map[string]any{"passed": true}), nil
	}

	if action.StringParam("failStrategy", "stop") == "warn" {
		return models.SuccessResult(map[string]any{"passed": false}), nil
	}

	return models.FailedResult(models.NewStepError(models.CodeAssertionFailed, "assertion failed")), nil
}

func (e *LegacyExecutor) extract(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	value := res.Element.Text
	if attr := action.StringParam("attribute", ""); attr != "" {
		value = res.Element.Attr(attr)
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, value)
	}

	if path := action.StringParam("assignPath", ""); path != "" {
		if err := ec.Vars.AssignPath(path, value); err != nil {
			return models.FailedResult(models.NewStepError(models.CodeValidationError, "assign %s: %v", path, err)), nil
		}
	}

	return models.SuccessResult(map[string]any{"value": value}), nil
}

func (e *LegacyExecutor) script(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
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

	return models.SuccessResult(map[string]any{"result": value}), nil
}

func (e *LegacyExecutor) http(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	url, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad url: %v", err)), nil
	}

	method := strings.ToUpper(action.StringParam("method", http.MethodGet))

	var body io.Reader
	if raw, ok := action.Params["body"].(string); ok && raw != "" {
		rendered, err := ec.RenderString(raw)
		if err != nil {
			return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad body: %v", err)), nil
		}

		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "%v", err)), nil
	}

	if headers, ok := action.Params["headers"].(map[string]any); ok {
		for key, raw := range headers {
			if value, ok := raw.(string); ok {
				req.Header.Set(key, value)
			}
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeNetworkRequestFailed, "%v", err)), nil
	}

	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeNetworkRequestFailed, "%v", err)), nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = string(raw)
	}

	output := map[string]any{"statusCode": resp.StatusCode, "body": decoded}

	if resp.StatusCode >= 400 {
		return models.FailedResult(models.NewStepError(models.CodeNetworkRequestFailed, "status %d", resp.StatusCode)), nil
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, output)
	}

	return models.SuccessResult(output), nil
}

func (e *LegacyExecutor) screenshot(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	image, err := ec.Driver.Screenshot(ctx, ec.TabID)
	if err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	ec.Log(models.RunLogEntry{
		StepID:           action.ID,
		Status:           "screenshot",
		ScreenshotBase64: encodeImage(image),
	})

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) openTab(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	url, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad url: %v", err)), nil
	}

	info, err := ec.Driver.OpenTab(ctx, url)
	if err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeNavigationFailed)), nil
	}

	ec.TabID = info.ID
	ec.FrameID = ""

	return models.SuccessResult(map[string]any{"tabId": info.ID}), nil
}

func (e *LegacyExecutor) switchTab(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	tabID := action.StringParam("tabId", "")

	if err := ec.Driver.SwitchTab(ctx, tabID); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTabNotFound)), nil
	}

	ec.TabID = tabID
	ec.FrameID = ""

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) closeTab(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	tabID := action.StringParam("tabId", "")
	if tabID == "" {
		tabID = ec.TabID
	}

	if err := ec.Driver.CloseTab(ctx, tabID); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeTabNotFound)), nil
	}

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) download(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	timeout := 30 * time.Second
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

func (e *LegacyExecutor) switchFrame(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	frameID := action.StringParam("frameId", "")
	if frameID == "top" {
		frameID = ""
	}

	if frameID != "" {
		if _, err := ec.Driver.ReadPage(ctx, ec.TabID, frameID); err != nil {
			return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeFrameNotFound)), nil
		}
	}

	ec.FrameID = frameID

	return models.SuccessResult(nil), nil
}

func (e *LegacyExecutor) triggerEvent(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	event := action.StringParam("event", "")
	if event == "" {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "triggerEvent requires an 'event' parameter")), nil
	}

	res, err := ec.Locate(ctx, action.ID, action.Target)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if err := ec.Driver.DispatchEvent(ctx, ec.TabID, ec.FrameID, res.Element.Ref, event); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(map[string]any{"event": event}), nil
}

func (e *LegacyExecutor) setAttribute(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	name := action.StringParam("name", "")
	if name == "" {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "setAttribute requires a 'name' parameter")), nil
	}

	value, err := ec.RenderString(action.StringParam("value", ""))
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "bad value: %v", err)), nil
	}

	res, locErr := ec.Locate(ctx, action.ID, action.Target)
	if locErr != nil {
		return models.FailedResult(models.AsStepError(locErr)), nil
	}

	if err := ec.Driver.SetAttribute(ctx, ec.TabID, ec.FrameID, res.Element.Ref, name, value); err != nil {
		return models.FailedResult(protocol.ClassifyBrowserError(err, models.CodeUnknown)), nil
	}

	return models.SuccessResult(nil), nil
}

// control re-emits the step as a control directive; the control-flow runner
// interprets it exactly as it does for registry-dispatched steps.
func (e *LegacyExecutor) control(action *models.Action) (*models.ExecutionResult, error) {
	directive, stepErr := decodeControl(action)
	if stepErr != nil {
		return models.FailedResult(stepErr), nil
	}

	result := models.SuccessResult(nil)
	result.Control = directive

	return result, nil
}
