package fill_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/fill"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const pageURL = "https://shop.test/signup"

func setup(t *testing.T) (*memdriver.Driver, *models.Action) {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(pageURL,
		browser.Element{Ref: "email", Tag: "input", Visible: true,
			Attrs: map[string]string{"id": "email", "value": "old@example.test"}},
	)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionFill),
		testutil.WithTarget(&models.ElementTarget{
			Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#email"}},
		}),
		testutil.WithParams(map[string]any{"value": "jane@example.test"}),
	)

	return drv, action
}

func fieldValue(t *testing.T, drv *memdriver.Driver, tabID string) string {
	t.Helper()

	page, err := drv.ReadPage(context.Background(), tabID, "")
	require.NoError(t, err)

	matches, err := page.QueryCSS("#email")
	require.NoError(t, err)
	require.Len(t, matches, 1)

	return matches[0].Attrs["value"]
}

func TestFillClearsByDefault(t *testing.T) {
	t.Parallel()

	drv, action := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	handler, err := fill.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Equal(t, "jane@example.test", fieldValue(t, drv, ec.TabID))
}

func TestFillAppendsWhenClearDisabled(t *testing.T) {
	t.Parallel()

	drv, action := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	action.Params["value"] = "+tag"
	action.Params["clear"] = false

	handler, err := fill.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Equal(t, "old@example.test+tag", fieldValue(t, drv, ec.TabID))
}

func TestFillRendersTemplateValue(t *testing.T) {
	t.Parallel()

	drv, action := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)
	ec.Vars.Set("email", "rendered@example.test")

	action.Params["value"] = "{{ .vars.email }}"

	handler, err := fill.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.Equal(t, "rendered@example.test", fieldValue(t, drv, ec.TabID))
}

func TestFillInvalidTemplateFails(t *testing.T) {
	t.Parallel()

	drv, action := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	action.Params["value"] = "{{ .vars.email"

	handler, err := fill.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeValidationError, result.Error.Code)
}

func TestValidateRequiresValue(t *testing.T) {
	t.Parallel()

	handler, err := fill.NewFactory().Create()
	require.NoError(t, err)

	assert.NoError(t, handler.Validate(map[string]any{"value": "x"}))
	assert.Error(t, handler.Validate(map[string]any{}))
	assert.Error(t, handler.Validate(map[string]any{"value": 7}))
}
