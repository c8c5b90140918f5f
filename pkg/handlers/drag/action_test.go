package drag_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/handlers/drag"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const pageURL = "https://board.test/kanban"

func setup(t *testing.T) *memdriver.Driver {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(pageURL,
		browser.Element{Ref: "card", Tag: "div", Visible: true,
			Attrs: map[string]string{"id": "card"}},
		browser.Element{Ref: "done", Tag: "div", Visible: true,
			Attrs: map[string]string{"id": "done"}},
	)

	return drv
}

func dragAction(source, dest string) *models.Action {
	return testutil.CreateTestAction(
		testutil.WithType(models.ActionDrag),
		testutil.WithTarget(&models.ElementTarget{
			Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: source}},
		}),
		testutil.WithParams(map[string]any{
			"to": map[string]any{
				"candidates": []any{map[string]any{"strategy": "css", "value": dest}},
			},
		}),
	)
}

func TestDragResolvesBothEnds(t *testing.T) {
	t.Parallel()

	drv := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	handler, err := drag.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, dragAction("#card", "#done"))
	require.NoError(t, err)
	require.True(t, result.Succeeded())

	output, ok := result.Output.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "css", output["sourceResolvedBy"])
	assert.Equal(t, "css", output["destResolvedBy"])
}

func TestDragMissingSourceFails(t *testing.T) {
	t.Parallel()

	drv := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	handler, err := drag.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, dragAction("#ghost", "#done"))
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeTargetNotFound, result.Error.Code)
}

func TestDragMissingDestinationFails(t *testing.T) {
	t.Parallel()

	drv := setup(t)
	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	handler, err := drag.NewFactory().Create()
	require.NoError(t, err)

	result, err := handler.Run(context.Background(), ec, dragAction("#card", "#ghost"))
	require.NoError(t, err)
	require.False(t, result.Succeeded())
	assert.Equal(t, models.CodeTargetNotFound, result.Error.Code)
}

func TestDragValidateRequiresTo(t *testing.T) {
	t.Parallel()

	handler, err := drag.NewFactory().Create()
	require.NoError(t, err)

	assert.Error(t, handler.Validate(map[string]any{}))
	assert.NoError(t, handler.Validate(map[string]any{"to": map[string]any{}}))
}
