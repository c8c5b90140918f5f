package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/registry"
)

// RegistryExecutor dispatches strictly through the handler registry. Action
// types without a registered factory fail with ErrUnsupportedType so the
// hybrid tier can fall back.
type RegistryExecutor struct {
	registry *registry.Registry
	logger   *slog.Logger
}

func NewRegistryExecutor(reg *registry.Registry, logger *slog.Logger) *RegistryExecutor {
	return &RegistryExecutor{registry: reg, logger: logger}
}

func (e *RegistryExecutor) Name() string { return "registry" }

func (e *RegistryExecutor) Supports(t models.ActionType) bool {
	return e.registry.Supports(t)
}

func (e *RegistryExecutor) Execute(ctx context.Context, ec *protocol.ExecContext, action *models.Action) (*models.ExecutionResult, error) {
	handler, err := e.registry.Create(action.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", protocol.ErrUnsupportedType, action.Type)
	}

	if err := handler.Validate(action.Params); err != nil {
		return models.FailedResult(models.NewStepError(models.CodeValidationError, "%v", err)), nil
	}

	e.logger.DebugContext(ctx, "registry dispatch",
		"step", action.ID,
		"type", action.Type,
		"describe", handler.Describe(action.Params))

	return handler.Run(ctx, ec, action)
}
