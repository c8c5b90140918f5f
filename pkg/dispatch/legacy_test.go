package dispatch_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/dispatch"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const legacyPageURL = "https://shop.test/form"

func legacySetup(t *testing.T) (*dispatch.LegacyExecutor, *memdriver.Driver, *protocol.ExecContext) {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(legacyPageURL,
		browser.Element{Ref: "field", Tag: "input", Visible: true,
			Attrs: map[string]string{"id": "field"}},
	)

	ec, _ := testutil.NewExecContext(t, drv, legacyPageURL)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	return dispatch.NewLegacyExecutor(logger), drv, ec
}

func fieldTarget() *models.ElementTarget {
	return &models.ElementTarget{
		Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: "#field"}},
	}
}

func TestLegacyTriggerEvent(t *testing.T) {
	t.Parallel()

	exec, drv, ec := legacySetup(t)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionTriggerEvent),
		testutil.WithTarget(fieldTarget()),
		testutil.WithParams(map[string]any{"event": "change"}),
	)

	result, err := exec.Execute(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	events := drv.DispatchedEvents(ec.TabID)
	require.Len(t, events, 1)
	assert.Contains(t, events[0], ":change")
}

func TestLegacyTriggerEventRequiresName(t *testing.T) {
	t.Parallel()

	exec, _, ec := legacySetup(t)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionTriggerEvent),
		testutil.WithTarget(fieldTarget()),
	)

	result, err := exec.Execute(context.Background(), ec, action)
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeValidationError, result.Error.Code)
}

func TestLegacySetAttribute(t *testing.T) {
	t.Parallel()

	exec, drv, ec := legacySetup(t)

	action := testutil.CreateTestAction(
		testutil.WithType(models.ActionSetAttribute),
		testutil.WithTarget(fieldTarget()),
		testutil.WithParams(map[string]any{"name": "disabled", "value": "true"}),
	)

	result, err := exec.Execute(context.Background(), ec, action)
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	page, err := drv.ReadPage(context.Background(), ec.TabID, "")
	require.NoError(t, err)

	matches, err := page.QueryCSS("#field")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "true", matches[0].Attrs["disabled"])
}

func TestLegacySupportsKnownTypesOnly(t *testing.T) {
	t.Parallel()

	exec, _, _ := legacySetup(t)

	assert.True(t, exec.Supports(models.ActionTriggerEvent))
	assert.True(t, exec.Supports(models.ActionClick))
	assert.False(t, exec.Supports(models.ActionType("teleport")))
}

func TestLegacyUnknownTypeErrors(t *testing.T) {
	t.Parallel()

	exec, _, ec := legacySetup(t)

	action := testutil.CreateTestAction(testutil.WithType(models.ActionType("teleport")))

	_, err := exec.Execute(context.Background(), ec, action)
	require.ErrorIs(t, err, protocol.ErrUnsupportedType)
}
