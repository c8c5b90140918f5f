package runstate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/runstate"
)

func TestMemoryPutGet(t *testing.T) {
	t.Parallel()

	reg := runstate.NewMemoryRegistry()
	ctx := context.Background()

	state := &runstate.State{
		RunID:       "run-1",
		FlowID:      "flow-1",
		Status:      models.RunStatusRunning,
		CurrentNode: "click",
	}
	require.NoError(t, reg.Put(ctx, state))

	got, err := reg.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	assert.Equal(t, "click", got.CurrentNode)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestMemoryGetReturnsCopies(t *testing.T) {
	t.Parallel()

	reg := runstate.NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, &runstate.State{RunID: "run-1", Status: models.RunStatusRunning}))

	first, err := reg.Get(ctx, "run-1")
	require.NoError(t, err)
	first.Status = models.RunStatusFailed

	second, err := reg.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, second.Status)
}

func TestMemoryDelete(t *testing.T) {
	t.Parallel()

	reg := runstate.NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, &runstate.State{RunID: "run-1"}))
	require.NoError(t, reg.Delete(ctx, "run-1"))

	_, err := reg.Get(ctx, "run-1")
	assert.ErrorIs(t, err, runstate.ErrStateNotFound)

	// Deleting an unknown run is not an error.
	assert.NoError(t, reg.Delete(ctx, "run-1"))
}

func TestMemoryActive(t *testing.T) {
	t.Parallel()

	reg := runstate.NewMemoryRegistry()
	ctx := context.Background()

	require.NoError(t, reg.Put(ctx, &runstate.State{RunID: "run-1", Status: models.RunStatusRunning}))
	require.NoError(t, reg.Put(ctx, &runstate.State{RunID: "run-2", Status: models.RunStatusPaused}))

	states, err := reg.Active(ctx)
	require.NoError(t, err)
	assert.Len(t, states, 2)
}
