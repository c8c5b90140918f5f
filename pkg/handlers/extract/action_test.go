package extract_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/extract"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const pageURL = "https://shop.test/order/42"

func setup(t *testing.T) *protocol.ExecContext {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(pageURL,
		browser.Element{Ref: "total", Tag: "span", Text: "19.90", Visible: true,
			Attrs: map[string]string{"id": "total", "data-currency": "EUR"}},
	)

	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	return ec
}

func totalAction(params map[string]any) *models.Action {
	return testutil.CreateTestAction(
		testutil.WithType(models.ActionExtract),
		testutil.WithParams(params),
		testutil.WithTarget(&models.ElementTarget{
			Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#total"}},
		}),
	)
}

func TestExtractTextIntoVariable(t *testing.T) {
	t.Parallel()

	ec := setup(t)

	handler, err := extract.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, totalAction(map[string]any{"saveAs": "total"}))
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	value, ok := ec.Vars.Get("total")
	require.True(t, ok)
	assert.Equal(t, "19.90", value)
}

func TestExtractAttribute(t *testing.T) {
	t.Parallel()

	ec := setup(t)

	handler, err := extract.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec,
		totalAction(map[string]any{"saveAs": "currency", "attribute": "data-currency"}))
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	value, ok := ec.Vars.Get("currency")
	require.True(t, ok)
	assert.Equal(t, "EUR", value)
}

func TestExtractAssignPath(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("order", map[string]any{"id": "42"})

	handler, err := extract.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec,
		totalAction(map[string]any{"assignPath": "order.total"}))
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	order, ok := ec.Vars.Get("order")
	require.True(t, ok)
	assert.Equal(t, map[string]any{"id": "42", "total": "19.90"}, order)
}

func TestExtractMissingElementFails(t *testing.T) {
	t.Parallel()

	ec := setup(t)

	action := totalAction(map[string]any{"saveAs": "total"})
	action.Target = &models.ElementTarget{
		Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#missing"}},
	}

	handler, err := extract.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeTargetNotFound, result.Error.Code)
}

func TestExtractValidate(t *testing.T) {
	t.Parallel()

	handler, err := extract.NewFactory().Create()
	require.NoError(t, err)

	assert.NoError(t, handler.Validate(map[string]any{"saveAs": "x"}))
	assert.NoError(t, handler.Validate(map[string]any{"assignPath": "a.b"}))
	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(map[string]any{"saveAs": "x", "assignPath": "a.b"}))
}
