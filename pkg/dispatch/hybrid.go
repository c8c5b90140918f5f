package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// HybridPolicy tunes per-type routing during the migration window. Allow
// pins a type to the registry tier even when denied elsewhere; Deny forces
// a type straight to legacy without trying the registry first.
type HybridPolicy struct {
	Allow []models.ActionType
	Deny  []models.ActionType
}

func (p HybridPolicy) allowed(t models.ActionType) bool {
	for _, denied := range p.Deny {
		if denied == t {
			return false
		}
	}

	if len(p.Allow) == 0 {
		return true
	}

	for _, allowed := range p.Allow {
		if allowed == t {
			return true
		}
	}

	return false
}

// HybridExecutor bridges the migration: it tries the registry tier first
// and falls back to legacy when the type is unsupported or denied, logging
// every fallback with its reason.
type HybridExecutor struct {
	registry protocol.StepExecutor
	legacy   protocol.StepExecutor
	policy   HybridPolicy
	logger   *slog.Logger
}

func NewHybridExecutor(registryTier, legacyTier protocol.StepExecutor, policy HybridPolicy, logger *slog.Logger) *HybridExecutor {
	return &HybridExecutor{
		registry: registryTier,
		legacy:   legacyTier,
		policy:   policy,
		logger:   logger,
	}
}

func (e *HybridExecutor) Name() string { return "hybrid" }

func (e *HybridExecutor) Supports(t models.ActionType) bool {
	return e.registry.Supports(t) || e.legacy.Supports(t)
}

func (e *HybridExecutor) Execute(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	if !e.policy.allowed(action.Type) {
		e.logFallback(ctx, action, "type denied by hybrid policy")

		return e.legacy.Execute(ctx, ec, action)
	}

	if !e.registry.Supports(action.Type) {
		e.logFallback(ctx, action, "type not registered")

		return e.legacy.Execute(ctx, ec, action)
	}

	result, err := e.registry.Execute(ctx, ec, action)
	if err != nil {
		if errors.Is(err, protocol.ErrUnsupportedType) {
			e.logFallback(ctx, action, "registry reported unsupported")

			return e.legacy.Execute(ctx, ec, action)
		}

		return nil, err
	}

	return result, nil
}

func (e *HybridExecutor) logFallback(ctx context.Context, action *models.Action, reason string) {
	e.logger.InfoContext(ctx, "falling back to legacy dispatch",
		"step", action.ID,
		"type", action.Type,
		"reason", reason)
}
