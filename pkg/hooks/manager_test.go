package hooks_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/hooks"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

// labelHook answers ChooseNextLabel with a fixed label and records the
// transitions it sees.
type labelHook struct {
	protocol.BaseHook

	label    string
	retries  []int
	afterIDs []string
}

func (h *labelHook) AfterStep(_ context.Context, _ *protocol.ExecContext, action *models.Action, _ *models.ExecutionResult) {
	h.afterIDs = append(h.afterIDs, action.ID)
}

func (h *labelHook) OnRetry(_ context.Context, _ *protocol.ExecContext, _ *models.Action, attempt int, _ *models.StepError) {
	h.retries = append(h.retries, attempt)
}

func (h *labelHook) ChooseNextLabel(context.Context, *protocol.ExecContext, *models.Action, *models.ExecutionResult) string {
	return h.label
}

func TestBreakpointPausesMatchingNode(t *testing.T) {
	t.Parallel()

	hook := hooks.NewBreakpointHook("step-2")
	manager := hooks.NewManager(nil, hook)
	action := testutil.CreateTestAction(testutil.WithID("step-2"))

	decision, err := manager.BeforeStep(context.Background(), nil, action)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.True(t, decision.Pause)

	hook.ClearBreakpoint("step-2")

	decision, err = manager.BeforeStep(context.Background(), nil, action)
	require.NoError(t, err)
	assert.Nil(t, decision)
}

func TestBreakpointArmedLater(t *testing.T) {
	t.Parallel()

	hook := hooks.NewBreakpointHook()
	action := testutil.CreateTestAction(testutil.WithID("step-9"))

	decision, err := hook.BeforeStep(context.Background(), nil, action)
	require.NoError(t, err)
	assert.Nil(t, decision)

	hook.SetBreakpoint("step-9")

	decision, err = hook.BeforeStep(context.Background(), nil, action)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.True(t, decision.Pause)
}

func TestChooseNextLabelFirstNonEmptyWins(t *testing.T) {
	t.Parallel()

	manager := hooks.NewManager(nil,
		&labelHook{},
		&labelHook{label: "detour"},
		&labelHook{label: "ignored"},
	)

	label := manager.ChooseNextLabel(context.Background(), nil, testutil.CreateTestAction(), nil)
	assert.Equal(t, "detour", label)
}

func TestManagerFansOutNotifications(t *testing.T) {
	t.Parallel()

	first := &labelHook{}
	second := &labelHook{}
	manager := hooks.NewManager(nil, first, second)
	action := testutil.CreateTestAction(testutil.WithID("s1"))

	manager.AfterStep(context.Background(), nil, action, models.SuccessResult(nil))
	manager.OnRetry(context.Background(), nil, action, 1, models.NewStepError(models.CodeTimeout, "slow"))

	assert.Equal(t, []string{"s1"}, first.afterIDs)
	assert.Equal(t, []string{"s1"}, second.afterIDs)
	assert.Equal(t, []int{1}, first.retries)
	assert.Equal(t, []int{1}, second.retries)
}
