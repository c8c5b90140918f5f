package tabs_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/tabs"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const (
	shopURL    = "https://shop.test/"
	invoiceURL = "https://billing.test/invoice/7"
)

func setup(t *testing.T) (*memdriver.Driver, *protocol.ExecContext) {
	t.Helper()

	drv := memdriver.New()
	ec, _ := testutil.NewExecContext(t, drv, shopURL)

	return drv, ec
}

func TestOpenTabBecomesActive(t *testing.T) {
	t.Parallel()

	drv, ec := setup(t)
	before := ec.TabID

	handler := &tabs.OpenHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionOpenTab),
		testutil.WithParams(map[string]any{"url": invoiceURL, "saveAs": "invoiceTab"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	assert.NotEqual(t, before, ec.TabID)
	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, output["tabId"], ec.TabID)

	saved, ok := ec.Vars.Get("invoiceTab")
	require.True(t, ok)
	assert.Equal(t, ec.TabID, saved)

	info, err := drv.Tab(context.Background(), ec.TabID)
	require.NoError(t, err)
	assert.Equal(t, invoiceURL, info.URL)
}

func TestOpenTabRendersURL(t *testing.T) {
	t.Parallel()

	drv, ec := setup(t)
	ec.Vars.Set("invoiceId", "7")

	handler := &tabs.OpenHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionOpenTab),
		testutil.WithParams(map[string]any{"url": "https://billing.test/invoice/{{ .vars.invoiceId }}"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	info, err := drv.Tab(context.Background(), ec.TabID)
	require.NoError(t, err)
	assert.Equal(t, invoiceURL, info.URL)
}

func TestSwitchTabByID(t *testing.T) {
	t.Parallel()

	drv, ec := setup(t)
	first := ec.TabID

	second, err := drv.OpenTab(context.Background(), invoiceURL)
	require.NoError(t, err)
	ec.TabID = second.ID

	handler := &tabs.SwitchHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionSwitchTab),
		testutil.WithParams(map[string]any{"tabId": first}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, first, ec.TabID)
}

func TestSwitchTabByURLFragment(t *testing.T) {
	t.Parallel()

	drv, ec := setup(t)

	_, err := drv.OpenTab(context.Background(), invoiceURL)
	require.NoError(t, err)

	handler := &tabs.SwitchHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionSwitchTab),
		testutil.WithParams(map[string]any{"urlContains": "billing.test"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	info, err := drv.Tab(context.Background(), ec.TabID)
	require.NoError(t, err)
	assert.Equal(t, invoiceURL, info.URL)
}

func TestSwitchTabNoMatchFails(t *testing.T) {
	t.Parallel()

	_, ec := setup(t)

	handler := &tabs.SwitchHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionSwitchTab),
		testutil.WithParams(map[string]any{"urlContains": "nowhere.test"}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeTabNotFound, result.Error.Code)
}

func TestCloseTabSwitchesToRequestedTab(t *testing.T) {
	t.Parallel()

	drv, ec := setup(t)
	first := ec.TabID

	second, err := drv.OpenTab(context.Background(), invoiceURL)
	require.NoError(t, err)
	ec.TabID = second.ID

	handler := &tabs.CloseHandler{}
	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionCloseTab),
		testutil.WithParams(map[string]any{"switchTo": first}),
	)

	result, err := handler.Run(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())
	assert.Equal(t, first, ec.TabID)

	_, err = drv.Tab(context.Background(), second.ID)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	open := &tabs.OpenHandler{}
	assert.NoError(t, open.Validate(map[string]any{"url": shopURL}))
	assert.Error(t, open.Validate(map[string]any{}))

	sw := &tabs.SwitchHandler{}
	assert.NoError(t, sw.Validate(map[string]any{"tabId": "tab-1"}))
	assert.NoError(t, sw.Validate(map[string]any{"urlContains": "shop"}))
	assert.Error(t, sw.Validate(map[string]any{}))

	assert.NoError(t, (&tabs.CloseHandler{}).Validate(map[string]any{}))
}
