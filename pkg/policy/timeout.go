package policy

import (
	"context"
	"time"

	"github.com/retrace-dev/retrace/pkg/models"
)

// Timeout clamp bounds. A step can neither spin-fail instantly nor hang a run
// past the maximum regardless of what the flow declares.
const (
	MinTimeout     = 100 * time.Millisecond
	MaxTimeout     = 10 * time.Minute
	DefaultTimeout = 30 * time.Second
)

// ClampTimeout converts a millisecond setting to a bounded duration. Zero or
// negative selects the default.
func ClampTimeout(ms int) time.Duration {
	if ms <= 0 {
		return DefaultTimeout
	}

	d := time.Duration(ms) * time.Millisecond
	if d < MinTimeout {
		return MinTimeout
	}

	if d > MaxTimeout {
		return MaxTimeout
	}

	return d
}

// AttemptContext derives the context for one attempt. An attempt-scoped
// timeout applies per call; an action-scoped timeout is applied once by
// ActionContext and attempts run under it unchanged.
func AttemptContext(ctx context.Context, p *models.TimeoutPolicy) (context.Context, context.CancelFunc) {
	if p == nil || p.Scope == models.TimeoutScopeAction {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, ClampTimeout(p.Ms))
}

// ActionContext derives the context for the whole action including retries.
func ActionContext(ctx context.Context, p *models.TimeoutPolicy) (context.Context, context.CancelFunc) {
	if p == nil || p.Scope != models.TimeoutScopeAction {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, ClampTimeout(p.Ms))
}

// ResolveOnError returns the effective error-routing policy, defaulting to
// stop.
func ResolveOnError(p *models.OnErrorPolicy) models.OnErrorPolicy {
	if p == nil {
		return models.OnErrorPolicy{Strategy: models.OnErrorStop}
	}

	return *p
}
