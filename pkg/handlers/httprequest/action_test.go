package httprequest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/httprequest"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))

			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "ord-1", "coupon": payload["coupon"]})

			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"total": 19.9}`))
	})
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-42" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		_, _ = w.Write([]byte(`{"ok": true}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server
}

func newContext(t *testing.T) *protocol.ExecContext {
	t.Helper()

	ec, _ := testutil.NewExecContext(t, memdriver.New(), "https://shop.test/")

	return ec
}

func TestHTTPGetDecodesJSONAndSaves(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	ec := newContext(t)

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionHTTP),
		testutil.WithParams(map[string]any{"url": server.URL + "/orders", "saveAs": "resp"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, output["statusCode"])
	assert.Equal(t, map[string]any{"total": 19.9}, output["body"])

	saved, ok := ec.Vars.Get("resp")
	require.True(t, ok)
	assert.Equal(t, result.Output, saved)
}

func TestHTTPPostRendersTemplatedBody(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	ec := newContext(t)
	ec.Vars.Set("coupon", "SAVE10")

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionHTTP),
		testutil.WithParams(map[string]any{
			"url":    server.URL + "/orders",
			"method": "POST",
			"body":   `{"coupon": "{{ .vars.coupon }}"}`,
		}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	body, ok := output["body"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "SAVE10", body["coupon"])
}

func TestHTTPRendersHeaders(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	ec := newContext(t)
	ec.Vars.Set("token", "tok-42")

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionHTTP),
		testutil.WithParams(map[string]any{
			"url":     server.URL + "/auth",
			"headers": map[string]any{"Authorization": "Bearer {{ .vars.token }}"},
		}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestHTTPErrorStatusFailsUnlessAllowed(t *testing.T) {
	t.Parallel()

	server := newServer(t)
	ec := newContext(t)

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionHTTP),
		testutil.WithParams(map[string]any{"url": server.URL + "/broken"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeNetworkRequestFailed, result.Error.Code)

	action.Params["allowErrorStatus"] = true

	result, err = handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, http.StatusInternalServerError, output["statusCode"])
}

func TestHTTPUnreachableHostFails(t *testing.T) {
	t.Parallel()

	ec := newContext(t)

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionHTTP),
		testutil.WithParams(map[string]any{"url": "http://127.0.0.1:1/nothing"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeNetworkRequestFailed, result.Error.Code)
}

func TestHTTPValidate(t *testing.T) {
	t.Parallel()

	handler, err := httprequest.NewFactory().Create()
	require.NoError(t, err)

	assert.NoError(t, handler.Validate(map[string]any{"url": "https://api.test"}))
	assert.NoError(t, handler.Validate(map[string]any{"url": "https://api.test", "method": "post"}))
	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(map[string]any{"url": "https://api.test", "method": "TRACE"}))
}
