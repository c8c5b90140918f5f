package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/orchestrator"
	"github.com/retrace-dev/retrace/pkg/persistence/file"
	"github.com/retrace-dev/retrace/pkg/registry"
	"github.com/retrace-dev/retrace/pkg/runstate"
	"github.com/retrace-dev/retrace/pkg/testutil"
	"github.com/retrace-dev/retrace/pkg/web"
)

type stubRunner struct {
	lastOpts orchestrator.RunOptions
	result   *models.RunResult
	err      error
}

func (r *stubRunner) Run(_ context.Context, flow *models.Flow, opts orchestrator.RunOptions) (*models.RunResult, error) {
	r.lastOpts = opts

	if r.err != nil {
		return nil, r.err
	}

	if r.result != nil {
		return r.result, nil
	}

	return &models.RunResult{RunID: "run-1", FlowID: flow.ID, Success: true}, nil
}

type testAPI struct {
	app    *fiber.App
	store  *file.Persistence
	runner *stubRunner
	states *runstate.MemoryRegistry
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	runner := &stubRunner{}
	states := runstate.NewMemoryRegistry()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaults()

	handlers := web.NewAPIHandlers(store, runner, states,
		validator.New(validator.WithRequiredStructEnabled()), reg, slog.Default())

	app := fiber.New()
	app.Get("/flows", handlers.GetFlows)
	app.Post("/flows", handlers.CreateFlow)
	app.Get("/flows/:id", handlers.GetFlow)
	app.Patch("/flows/:id", handlers.UpdateFlow)
	app.Delete("/flows/:id", handlers.DeleteFlow)
	app.Post("/flows/:id/run", handlers.RunFlow)
	app.Get("/flows/:id/runs", handlers.GetFlowRuns)
	app.Get("/runs/active", handlers.GetActiveRuns)
	app.Get("/runs/:id", handlers.GetRun)
	app.Get("/health", handlers.HealthCheck)

	return &testAPI{app: app, store: store, runner: runner, states: states}
}

func (a *testAPI) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader io.Reader

	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()

	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(into))
}

func TestCreateAndGetFlow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	created := &models.Flow{}
	decodeBody(t, resp, created)
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.Metadata.CreatedAt.IsZero())

	resp = api.request(t, http.MethodGet, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	listResp := api.request(t, http.MethodGet, "/flows", nil)

	var list struct {
		TotalCount int `json:"total_count"`
	}
	decodeBody(t, listResp, &list)
	assert.Equal(t, 1, list.TotalCount)
}

func TestCreateFlowConflict(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/flows", flow)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateFlowRejectsInvalidGraph(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow(testutil.WithEdges(testutil.Edge("e1", "nav", "ghost")))

	resp := api.request(t, http.MethodPost, "/flows", flow)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetFlowNotFound(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/flows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateFlowBumpsVersion(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPatch, "/flows/"+flow.ID, map[string]any{"name": "Renamed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated := &models.Flow{}
	decodeBody(t, resp, updated)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 2, updated.Version)
}

func TestDeleteFlow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodDelete, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.request(t, http.MethodDelete, "/flows/"+flow.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunFlow(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/flows/"+flow.ID+"/run", map[string]any{
		"args":      map[string]any{"city": "Berlin"},
		"startUrl":  "https://example.test/",
		"timeoutMs": 5000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result := &models.RunResult{}
	decodeBody(t, resp, result)
	assert.True(t, result.Success)

	assert.Equal(t, "https://example.test/", api.runner.lastOpts.StartURL)
	assert.Equal(t, map[string]any{"city": "Berlin"}, api.runner.lastOpts.Args)
	assert.False(t, api.runner.lastOpts.Deadline.IsZero())
}

func TestRunFlowWithoutBody(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	flow := testutil.CreateTestFlow()

	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/flows/"+flow.ID+"/run", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunFlowBindingErrorIsBadRequest(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)
	api.runner.err = orchestrator.ErrDomainBinding

	flow := testutil.CreateTestFlow()
	resp := api.request(t, http.MethodPost, "/flows", flow)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = api.request(t, http.MethodPost, "/flows/"+flow.ID+"/run", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetFlowRunsLimit(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/flows/flow-1/runs?limit=nope", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = api.request(t, http.MethodGet, "/flows/flow-1/runs?limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &body)
	assert.Zero(t, body.Count)
}

func TestGetActiveRuns(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	require.NoError(t, api.states.Put(context.Background(),
		&runstate.State{RunID: "run-1", FlowID: "flow-1", Status: models.RunStatusRunning}))

	resp := api.request(t, http.MethodGet, "/runs/active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count int `json:"count"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, 1, body.Count)
}

func TestGetRunNotFound(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/runs/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "healthy", body.Status)
}
