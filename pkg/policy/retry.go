// Package policy implements the per-step policy layer: retry with backoff,
// timeout clamping, error routing and post-action settle waits. Retry is
// applied exactly once, by the dispatch layer, never inside a handler.
package policy

import (
	"context"
	"math/rand"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/retrace-dev/retrace/pkg/models"
)

const (
	defaultRetryInterval = 500 * time.Millisecond
	defaultMaxInterval   = 30 * time.Second
)

// linearBackOff grows the interval by the base amount each attempt, capped at
// max, with optional proportional jitter. It satisfies backoff.BackOff so the
// retry loop treats every kind uniformly.
type linearBackOff struct {
	base    time.Duration
	max     time.Duration
	jitter  bool
	attempt int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.attempt++

	interval := time.Duration(b.attempt) * b.base
	if b.max > 0 && interval > b.max {
		interval = b.max
	}

	if b.jitter {
		interval += time.Duration(rand.Int63n(int64(b.base)/2 + 1)) //nolint:gosec // timing jitter
	}

	return interval
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// NewBackOff builds the interval source for a retry policy.
func NewBackOff(p *models.RetryPolicy) backoff.BackOff {
	interval := defaultRetryInterval
	if p != nil && p.IntervalMs > 0 {
		interval = time.Duration(p.IntervalMs) * time.Millisecond
	}

	maxInterval := defaultMaxInterval
	if p != nil && p.MaxIntervalMs > 0 {
		maxInterval = time.Duration(p.MaxIntervalMs) * time.Millisecond
	}

	kind := models.BackoffNone
	if p != nil && p.Backoff != "" {
		kind = p.Backoff
	}

	switch kind {
	case models.BackoffLinear:
		return &linearBackOff{base: interval, max: maxInterval, jitter: p != nil && p.Jitter}
	case models.BackoffExp:
		exp := backoff.NewExponentialBackOff()
		exp.InitialInterval = interval
		exp.MaxInterval = maxInterval
		exp.MaxElapsedTime = 0 // attempts are bounded by count, not elapsed time

		exp.RandomizationFactor = 0
		if p != nil && p.Jitter {
			exp.RandomizationFactor = backoff.DefaultRandomizationFactor
		}

		exp.Reset()

		return exp
	default:
		return backoff.NewConstantBackOff(interval)
	}
}

// RetryNotify observes each failed attempt that will be retried.
type RetryNotify func(attempt int, err *models.StepError, nextDelay time.Duration)

// Execute runs op under the retry policy: at most Retries+1 attempts, backing
// off between them, stopping early on success, a non-retryable error code, or
// context expiry. The last attempt's result is returned; a context expiry
// surfaces as a TIMEOUT failure.
func Execute(
	ctx context.Context,
	p *models.RetryPolicy,
	notify RetryNotify,
	op func(ctx context.Context, attempt int) *models.ExecutionResult,
) *models.ExecutionResult {
	maxAttempts := p.MaxAttempts()
	intervals := NewBackOff(p)

	var result *models.ExecutionResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "deadline exceeded before attempt %d", attempt))
		}

		result = op(ctx, attempt)
		if result.Succeeded() || result.Status == models.StepStatusSkipped || result.Status == models.StepStatusPaused {
			return result
		}

		if attempt == maxAttempts {
			break
		}

		if result.Error != nil && !p.ShouldRetry(result.Error.Code) {
			break
		}

		delay := intervals.NextBackOff()
		if notify != nil {
			notify(attempt, result.Error, delay)
		}

		select {
		case <-ctx.Done():
			return models.FailedResult(models.NewStepError(models.CodeTimeout, "deadline exceeded during retry backoff"))
		case <-time.After(delay):
		}
	}

	return result
}
