package controlflow_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/controlflow"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

const pageURL = "https://shop.test/list"

// recorder captures every subflow invocation with the variables the
// iteration bound.
type recorder struct {
	mu    sync.Mutex
	calls []call
	fail  error
}

type call struct {
	subflowID string
	item      any
	index     any
}

func (r *recorder) RunSubflow(_ context.Context, ec *protocol.ExecContext, subflowID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := call{subflowID: subflowID}
	c.item, _ = ec.Vars.Get("item")
	c.index, _ = ec.Vars.Get("itemIndex")
	r.calls = append(r.calls, c)

	return r.fail
}

func setup(t *testing.T) *protocol.ExecContext {
	t.Helper()

	drv := memdriver.New()
	drv.DefinePage(pageURL,
		browser.Element{Ref: "r1", Tag: "tr", Text: "Row one", Visible: true,
			Attrs: map[string]string{"class": "row"}},
		browser.Element{Ref: "r2", Tag: "tr", Text: "Row two", Visible: true,
			Attrs: map[string]string{"class": "row"}},
	)

	ec, _ := testutil.NewExecContext(t, drv, pageURL)

	return ec
}

func TestIfBinaryLabels(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("count", 3)
	runner := controlflow.NewRunner(nil)

	label, err := runner.Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlIf,
		If:   &models.IfDirective{Condition: "vars.count > 1"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.EdgeLabelTrue, label)

	label, err = runner.Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlIf,
		If:   &models.IfDirective{Condition: "vars.count > 10", FalseLabel: "empty"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, "empty", label)
}

func TestIfBranchesFirstTrueWins(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("total", 50)
	runner := controlflow.NewRunner(nil)

	directive := &models.ControlDirective{
		Kind: models.ControlIf,
		If: &models.IfDirective{
			Branches: []models.IfBranch{
				{Condition: "vars.total > 100", Label: "large"},
				{Condition: "vars.total > 10", Label: "medium"},
				{Condition: "vars.total > 0", Label: "small"},
			},
			ElseLabel: "none",
		},
	}

	label, err := runner.Apply(context.Background(), ec, directive, nil)
	require.NoError(t, err)
	assert.Equal(t, "medium", label)

	ec.Vars.Set("total", -1)
	label, err = runner.Apply(context.Background(), ec, directive, nil)
	require.NoError(t, err)
	assert.Equal(t, "none", label)
}

func TestForeachIteratesWithScopedVars(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("items", []any{"a", "b", "c"})
	rec := &recorder{}
	runner := controlflow.NewRunner(nil)

	_, err := runner.Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlForeach,
		Foreach: &models.ForeachDirective{
			ListVar:   "items",
			ItemVar:   "item",
			SubflowID: "per-item",
		},
	}, rec)
	require.NoError(t, err)
	require.Len(t, rec.calls, 3)

	// Sequential with concurrency 1, so order follows the list.
	assert.Equal(t, "a", rec.calls[0].item)
	assert.Equal(t, 0, rec.calls[0].index)
	assert.Equal(t, "c", rec.calls[2].item)

	// Iteration variables stay scoped to the branch.
	_, ok := ec.Vars.Get("item")
	assert.False(t, ok)
}

func TestForeachTypedSlice(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("items", []string{"x", "y"})
	rec := &recorder{}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlForeach,
		Foreach: &models.ForeachDirective{
			ListVar:   "items",
			ItemVar:   "item",
			SubflowID: "per-item",
		},
	}, rec)
	require.NoError(t, err)
	assert.Len(t, rec.calls, 2)
}

func TestForeachConcurrent(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("items", []any{1, 2, 3, 4})
	rec := &recorder{}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlForeach,
		Foreach: &models.ForeachDirective{
			ListVar:     "items",
			ItemVar:     "item",
			SubflowID:   "per-item",
			Concurrency: 2,
		},
	}, rec)
	require.NoError(t, err)
	assert.Len(t, rec.calls, 4)
}

func TestForeachMissingListVarFails(t *testing.T) {
	t.Parallel()

	ec := setup(t)

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlForeach,
		Foreach: &models.ForeachDirective{
			ListVar:   "missing",
			ItemVar:   "item",
			SubflowID: "per-item",
		},
	}, &recorder{})
	require.Error(t, err)
	assert.Equal(t, models.CodeValidationError, models.CodeOf(err))
}

func TestWhileRunsUntilConditionFalse(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("remaining", 3)

	rec := &countdown{ec: ec}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlWhile,
		While: &models.WhileDirective{
			Condition: "vars.remaining > 0",
			SubflowID: "drain",
		},
	}, rec)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.runs)
}

// countdown decrements the loop variable each iteration so the while
// condition eventually turns false.
type countdown struct {
	ec   *protocol.ExecContext
	runs int
}

func (c *countdown) RunSubflow(context.Context, *protocol.ExecContext, string) error {
	c.runs++

	value, _ := c.ec.Vars.Get("remaining")
	c.ec.Vars.Set("remaining", value.(int)-1)

	return nil
}

func TestWhileHitsIterationCap(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	ec.Vars.Set("flag", true)
	rec := &recorder{}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlWhile,
		While: &models.WhileDirective{
			Condition:     "vars.flag",
			SubflowID:     "spin",
			MaxIterations: 5,
		},
	}, rec)
	require.NoError(t, err)
	assert.Len(t, rec.calls, 5)
}

func TestLoopElementsBindsDescriptors(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	rec := &recorder{}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlLoopElements,
		LoopElements: &models.LoopElementsDirective{
			Target: &models.ElementTarget{
				Candidates: []models.SelectorCandidate{{Strategy: models.StrategyCSS, Value: ".row"}},
			},
			ItemVar:   "item",
			SubflowID: "per-row",
		},
	}, rec)
	require.NoError(t, err)
	require.Len(t, rec.calls, 2)

	first, ok := rec.calls[0].item.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Row one", first["text"])
	assert.Equal(t, 0, first["index"])
	assert.NotEmpty(t, first["ref"])
}

func TestExecuteFlowSeedsArgs(t *testing.T) {
	t.Parallel()

	ec := setup(t)
	rec := &recorder{}

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec, &models.ControlDirective{
		Kind: models.ControlExecuteFlow,
		ExecuteFlow: &models.ExecuteFlowDirective{
			SubflowID: "checkout",
			Args:      map[string]any{"coupon": "SAVE10"},
		},
	}, rec)
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, "checkout", rec.calls[0].subflowID)

	value, ok := ec.Vars.Get("coupon")
	require.True(t, ok)
	assert.Equal(t, "SAVE10", value)
}

func TestUnknownDirectiveKind(t *testing.T) {
	t.Parallel()

	ec := setup(t)

	_, err := controlflow.NewRunner(nil).Apply(context.Background(), ec,
		&models.ControlDirective{Kind: models.ControlKind("teleport")}, nil)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidationError, models.CodeOf(err))
}
