package policy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/policy"
)

func failWith(code models.ErrorCode) *models.ExecutionResult {
	return models.FailedResult(models.NewStepError(code, "boom"))
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	p := &models.RetryPolicy{Retries: 3, IntervalMs: 1}

	attempts := 0
	result := policy.Execute(context.Background(), p, nil, func(_ context.Context, attempt int) *models.ExecutionResult {
		attempts++
		if attempt < 3 {
			return failWith(models.CodeTargetNotFound)
		}

		return models.SuccessResult(nil)
	})

	assert.True(t, result.Succeeded())
	assert.Equal(t, 3, attempts)
}

func TestExecuteExhaustsAttemptBudget(t *testing.T) {
	t.Parallel()

	p := &models.RetryPolicy{Retries: 2, IntervalMs: 1}

	retried := make([]int, 0, 2)
	notify := func(attempt int, err *models.StepError, _ time.Duration) {
		retried = append(retried, attempt)
		assert.Equal(t, models.CodeTimeout, err.Code)
	}

	attempts := 0
	result := policy.Execute(context.Background(), p, notify, func(context.Context, int) *models.ExecutionResult {
		attempts++

		return failWith(models.CodeTimeout)
	})

	assert.False(t, result.Succeeded())
	assert.Equal(t, 3, attempts)

	// The last attempt is not retried, so notify fires twice.
	assert.Equal(t, []int{1, 2}, retried)
}

func TestExecuteStopsOnNonRetryableCode(t *testing.T) {
	t.Parallel()

	p := &models.RetryPolicy{
		Retries:    5,
		IntervalMs: 1,
		RetryOn:    []models.ErrorCode{models.CodeTargetNotFound},
	}

	attempts := 0
	result := policy.Execute(context.Background(), p, nil, func(context.Context, int) *models.ExecutionResult {
		attempts++

		return failWith(models.CodeAssertionFailed)
	})

	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, attempts)
	assert.Equal(t, models.CodeAssertionFailed, result.Error.Code)
}

func TestExecuteNilPolicyRunsOnce(t *testing.T) {
	t.Parallel()

	attempts := 0
	result := policy.Execute(context.Background(), nil, nil, func(context.Context, int) *models.ExecutionResult {
		attempts++

		return failWith(models.CodeUnknown)
	})

	assert.False(t, result.Succeeded())
	assert.Equal(t, 1, attempts)
}

func TestExecuteExpiredContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := policy.Execute(ctx, &models.RetryPolicy{Retries: 2}, nil, func(context.Context, int) *models.ExecutionResult {
		t.Fatal("op must not run under an expired context")

		return nil
	})

	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeTimeout, result.Error.Code)
}

func TestNewBackOffLinear(t *testing.T) {
	t.Parallel()

	b := policy.NewBackOff(&models.RetryPolicy{
		Backoff:       models.BackoffLinear,
		IntervalMs:    100,
		MaxIntervalMs: 250,
	})

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())

	// Capped at the max interval from here on.
	assert.Equal(t, 250*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 250*time.Millisecond, b.NextBackOff())
}

func TestNewBackOffConstant(t *testing.T) {
	t.Parallel()

	b := policy.NewBackOff(&models.RetryPolicy{IntervalMs: 40})

	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 40*time.Millisecond, b.NextBackOff())
}

func TestClampTimeout(t *testing.T) {
	t.Parallel()

	assert.Equal(t, policy.DefaultTimeout, policy.ClampTimeout(0))
	assert.Equal(t, policy.MinTimeout, policy.ClampTimeout(1))
	assert.Equal(t, policy.MaxTimeout, policy.ClampTimeout(int((24 * time.Hour).Milliseconds())))
	assert.Equal(t, 5*time.Second, policy.ClampTimeout(5000))
}

func TestResolveOnError(t *testing.T) {
	t.Parallel()

	resolved := policy.ResolveOnError(nil)
	assert.Equal(t, models.OnErrorStop, resolved.Strategy)

	resolved = policy.ResolveOnError(&models.OnErrorPolicy{Strategy: models.OnErrorGoto, Label: "cleanup"})
	assert.Equal(t, models.OnErrorGoto, resolved.Strategy)
	assert.Equal(t, "cleanup", resolved.Label)
}
