// Package httprequest implements the http action.
package httprequest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Handler performs an HTTP request from inside the flow. Retries and
// timeouts are the policy layer's job, so the handler does a single
// attempt against the step context it is given.
type Handler struct {
	client *http.Client
}

func (h *Handler) Validate(params map[string]any) error {
	if rawURL, _ := params["url"].(string); rawURL == "" {
		return models.NewStepError(models.CodeValidationError, "http action requires a 'url' parameter")
	}

	method, _ := params["method"].(string)
	switch strings.ToUpper(method) {
	case "", http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodHead:
	default:
		return models.NewStepError(models.CodeValidationError, "unsupported http method %q", method)
	}

	return nil
}

func (h *Handler) Describe(params map[string]any) string {
	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodGet
	}

	rawURL, _ := params["url"].(string)

	return fmt.Sprintf("%s %s", strings.ToUpper(method), rawURL)
}

func (h *Handler) Run(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	req, err := h.buildRequest(ctx, ec, action)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return models.FailedResult(models.NewStepError(models.CodeNetworkRequestFailed, "http request failed: %v", err)), nil
	}

	output, err := h.processResponse(resp)
	if err != nil {
		return models.FailedResult(models.AsStepError(err)), nil
	}

	if status, _ := output["statusCode"].(int); status >= 400 && !action.BoolParam("allowErrorStatus", false) {
		return models.FailedResult(models.NewStepError(models.CodeNetworkRequestFailed, "http request returned status %d", status)), nil
	}

	if saveAs := action.StringParam("saveAs", ""); saveAs != "" {
		ec.Vars.Set(saveAs, output)
	}

	if assignPath := action.StringParam("assignPath", ""); assignPath != "" {
		if err := ec.Vars.AssignPath(assignPath, output["body"]); err != nil {
			return models.FailedResult(models.NewStepError(models.CodeValidationError, "assigning %s: %v", assignPath, err)), nil
		}
	}

	return models.SuccessResult(output), nil
}

func (h *Handler) buildRequest(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*http.Request, error) {
	rawURL, err := ec.RenderString(action.StringParam("url", ""))
	if err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "rendering url: %v", err)
	}

	method := strings.ToUpper(action.StringParam("method", http.MethodGet))

	bodyReader, err := h.buildBody(ec, action)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, bodyReader)
	if err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "building http request: %v", err)
	}

	if headers, ok := action.Params["headers"].(map[string]any); ok {
		for key, raw := range headers {
			value, ok := raw.(string)
			if !ok {
				continue
			}

			rendered, err := ec.RenderString(value)
			if err != nil {
				return nil, models.NewStepError(models.CodeValidationError, "rendering header %q: %v", key, err)
			}

			req.Header.Set(key, rendered)
		}
	}

	return req, nil
}

func (h *Handler) buildBody(ec *protocol.ExecContext, action *models.Action) (io.Reader, error) {
	raw, ok := action.Params["body"]
	if !ok || raw == nil {
		return strings.NewReader(""), nil
	}

	if str, ok := raw.(string); ok {
		rendered, err := ec.Render(str)
		if err != nil {
			return nil, models.NewStepError(models.CodeValidationError, "rendering body: %v", err)
		}

		if renderedStr, ok := rendered.(string); ok {
			return strings.NewReader(renderedStr), nil
		}

		raw = rendered
	}

	buf, err := json.Marshal(raw)
	if err != nil {
		return nil, models.NewStepError(models.CodeValidationError, "encoding body: %v", err)
	}

	return strings.NewReader(string(buf)), nil
}

func (h *Handler) processResponse(resp *http.Response) (map[string]any, error) {
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewStepError(models.CodeNetworkRequestFailed, "reading response body: %v", err)
	}

	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		body = string(raw)
	}

	return map[string]any{
		"statusCode": resp.StatusCode,
		"body":       body,
		"headers":    resp.Header,
	}, nil
}

// Factory creates http handlers.
type Factory struct{}

func NewFactory() *Factory { return &Factory{} }

func (f *Factory) ID() string          { return "http" }
func (f *Factory) Name() string        { return "HTTP Request" }
func (f *Factory) Description() string { return "Performs an HTTP request and stores the response" }

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"url"},
		"properties": map[string]any{
			"url":    map[string]any{"type": "string"},
			"method": map[string]any{"type": "string"},
			"headers": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any{"type": "string"},
			},
			"body":             map[string]any{},
			"allowErrorStatus": map[string]any{"type": "boolean"},
			"saveAs":           map[string]any{"type": "string"},
			"assignPath":       map[string]any{"type": "string"},
		},
	}
}

func (f *Factory) Create() (protocol.Handler, error) {
	return &Handler{client: &http.Client{}}, nil
}
