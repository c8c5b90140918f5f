// Package hooks composes plugin hooks that observe and steer run execution.
package hooks

import (
	"context"
	"log/slog"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// Manager fans every transition out to its registered hooks. For decisions
// the first hook asking to pause or skip wins; for next-label overrides the
// first non-empty answer wins.
type Manager struct {
	hooks  []protocol.Hook
	logger *slog.Logger
}

func NewManager(logger *slog.Logger, hooks ...protocol.Hook) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{hooks: hooks, logger: logger.With("module", "hooks")}
}

// Add appends a hook.
func (m *Manager) Add(hook protocol.Hook) {
	m.hooks = append(m.hooks, hook)
}

func (m *Manager) BeforeStep(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*protocol.HookDecision, error) {
	for _, hook := range m.hooks {
		decision, err := hook.BeforeStep(ctx, ec, action)
		if err != nil {
			return nil, err
		}

		if decision != nil && (decision.Pause || decision.Skip) {
			return decision, nil
		}
	}

	return nil, nil
}

func (m *Manager) AfterStep(ctx context.Context, ec *protocol.ExecContext, action *models.Action, result *models.ExecutionResult) {
	for _, hook := range m.hooks {
		hook.AfterStep(ctx, ec, action, result)
	}
}

func (m *Manager) OnRetry(ctx context.Context, ec *protocol.ExecContext, action *models.Action, attempt int, err *models.StepError) {
	for _, hook := range m.hooks {
		hook.OnRetry(ctx, ec, action, attempt, err)
	}
}

func (m *Manager) OnError(ctx context.Context, ec *protocol.ExecContext, action *models.Action, err *models.StepError) {
	for _, hook := range m.hooks {
		hook.OnError(ctx, ec, action, err)
	}
}

func (m *Manager) ChooseNextLabel(ctx context.Context, ec *protocol.ExecContext, action *models.Action, result *models.ExecutionResult) string {
	for _, hook := range m.hooks {
		if label := hook.ChooseNextLabel(ctx, ec, action, result); label != "" {
			return label
		}
	}

	return ""
}
