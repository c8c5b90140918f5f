package dispatch_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/dispatch"
	"github.com/retrace-dev/retrace/pkg/mocks"
	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/testutil"
)

func hybridWith(t *testing.T, policy dispatch.HybridPolicy) (*dispatch.HybridExecutor, *mocks.MockStepExecutor, *mocks.MockStepExecutor) {
	t.Helper()

	registryTier := &mocks.MockStepExecutor{}
	legacyTier := &mocks.MockStepExecutor{}

	return dispatch.NewHybridExecutor(registryTier, legacyTier, policy, slog.Default()), registryTier, legacyTier
}

func TestHybridPrefersRegistryTier(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t, dispatch.HybridPolicy{})
	action := testutil.CreateTestAction()

	registryTier.On("Supports", models.ActionClick).Return(true)
	registryTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(models.SuccessResult(nil), nil)

	result, err := exec.Execute(context.Background(), nil, action)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	legacyTier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridFallsBackWhenUnregistered(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t, dispatch.HybridPolicy{})
	action := testutil.CreateTestAction(testutil.WithType(models.ActionTriggerEvent))

	registryTier.On("Supports", models.ActionTriggerEvent).Return(false)
	legacyTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(models.SuccessResult(nil), nil)

	result, err := exec.Execute(context.Background(), nil, action)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	registryTier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridFallsBackOnUnsupportedError(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t, dispatch.HybridPolicy{})
	action := testutil.CreateTestAction()

	registryTier.On("Supports", models.ActionClick).Return(true)
	registryTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(nil, protocol.ErrUnsupportedType)
	legacyTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(models.SuccessResult(nil), nil)

	result, err := exec.Execute(context.Background(), nil, action)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
}

func TestHybridDenyRoutesStraightToLegacy(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t,
		dispatch.HybridPolicy{Deny: []models.ActionType{models.ActionClick}})
	action := testutil.CreateTestAction()

	legacyTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(models.SuccessResult(nil), nil)

	result, err := exec.Execute(context.Background(), nil, action)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())

	registryTier.AssertNotCalled(t, "Supports", mock.Anything)
	registryTier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridAllowListExcludesOthers(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t,
		dispatch.HybridPolicy{Allow: []models.ActionType{models.ActionNavigate}})
	action := testutil.CreateTestAction()

	legacyTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(models.SuccessResult(nil), nil)

	_, err := exec.Execute(context.Background(), nil, action)
	require.NoError(t, err)

	registryTier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridPropagatesRegistryErrors(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t, dispatch.HybridPolicy{})
	action := testutil.CreateTestAction()

	registryTier.On("Supports", models.ActionClick).Return(true)
	registryTier.On("Execute", mock.Anything, mock.Anything, action).
		Return(nil, assert.AnError)

	_, err := exec.Execute(context.Background(), nil, action)
	require.ErrorIs(t, err, assert.AnError)

	legacyTier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything, mock.Anything)
}

func TestHybridSupportsEitherTier(t *testing.T) {
	t.Parallel()

	exec, registryTier, legacyTier := hybridWith(t, dispatch.HybridPolicy{})

	registryTier.On("Supports", models.ActionClick).Return(true)
	registryTier.On("Supports", models.ActionTriggerEvent).Return(false)
	legacyTier.On("Supports", models.ActionTriggerEvent).Return(true)
	registryTier.On("Supports", models.ActionType("teleport")).Return(false)
	legacyTier.On("Supports", models.ActionType("teleport")).Return(false)

	assert.True(t, exec.Supports(models.ActionClick))
	assert.True(t, exec.Supports(models.ActionTriggerEvent))
	assert.False(t, exec.Supports(models.ActionType("teleport")))
}
