package assertion_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/assertion"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const pageURL = "https://shop.test/done"

func setup(t *testing.T) (*protocol.ExecContext, *testutil.LogSink) {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(pageURL,
		browser.Element{Ref: "banner", Tag: "div", Text: "Order confirmed", Visible: true,
			Attrs: map[string]string{"id": "banner"}},
	)

	return testutil.NewExecContext(t, drv, pageURL)
}

func bannerTarget() *models.ElementTarget {
	return &models.ElementTarget{
		Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#banner"}},
	}
}

func run(t *testing.T, ec *protocol.ExecContext, action *models.Action) *models.ExecutionResult {
	t.Helper()

	handler, err := assertion.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)

	return result
}

func TestAssertCondition(t *testing.T) {
	t.Parallel()

	ec, _ := setup(t)
	ec.Vars.Set("total", 3)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionAssert),
		testutil.WithParams(map[string]any{"condition": "vars.total > 1"}),
	)
	action.Target = nil

	result := run(t, ec, action)
	require.True(t, result.Succeeded())

	action.Params["condition"] = "vars.total > 10"
	result = run(t, ec, action)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeAssertionFailed, result.Error.Code)
}

func TestAssertElementModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		params map[string]any
		target *models.ElementTarget
		passed bool
	}{
		{"exists", map[string]any{"mode": "exists"}, bannerTarget(), true},
		{"exists missing", map[string]any{"mode": "exists"},
			&models.ElementTarget{Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#nope"}}}, false},
		{"notExists missing", map[string]any{"mode": "notExists"},
			&models.ElementTarget{Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#nope"}}}, true},
		{"notExists present", map[string]any{"mode": "notExists"}, bannerTarget(), false},
		{"visible", map[string]any{"mode": "visible"}, bannerTarget(), true},
		{"textEquals", map[string]any{"mode": "textEquals", "value": "Order confirmed"}, bannerTarget(), true},
		{"textEquals mismatch", map[string]any{"mode": "textEquals", "value": "Order failed"}, bannerTarget(), false},
		{"textContains", map[string]any{"mode": "textContains", "value": "confirmed"}, bannerTarget(), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ec, _ := setup(t)
			action := testutil.CreateTestAction(
				testutil.WithType(models.ActionAssert),
				testutil.WithParams(tc.params),
				testutil.WithTarget(tc.target),
			)

			result := run(t, ec, action)
			assert.Equal(t, tc.passed, result.Succeeded())
		})
	}
}

func TestAssertWarnStrategyLogsAndSucceeds(t *testing.T) {
	t.Parallel()

	ec, sink := setup(t)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionAssert),
		testutil.WithParams(map[string]any{
			"mode":         "textEquals",
			"value":        "Order failed",
			"failStrategy": assertion.FailWarn,
		}),
		testutil.WithTarget(bannerTarget()),
	)

	result := run(t, ec, action)
	require.True(t, result.Succeeded())

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, output["passed"])
	assert.Len(t, sink.ByStatus("warn"), 1)
}

func TestAssertValidate(t *testing.T) {
	t.Parallel()

	handler, err := assertion.NewFactory().Create()
	require.NoError(t, err)

	assert.NoError(t, handler.Validate(map[string]any{"condition": "true"}))
	assert.NoError(t, handler.Validate(map[string]any{"mode": "exists"}))
	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(map[string]any{"condition": "true", "failStrategy": "explode"}))
}
