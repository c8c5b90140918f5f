// Package protocol defines the contracts between the orchestrator, the
// dispatch tiers, the action handlers and the plugin hooks.
package protocol

import (
	"context"

	"github.com/retrace-dev/retrace/pkg/models"
)

// Handler implements one action type for the registry dispatch tier.
type Handler interface {
	// Validate checks type-specific parameters before execution.
	Validate(params map[string]any) error
	// Describe renders a short human-readable summary of the configured
	// action for logs and reports.
	Describe(params map[string]any) string
	// Run executes the action. Policy (retry/timeout) is applied by the
	// dispatch layer, never in here.
	Run(ctx context.Context, ec *ExecContext, action *models.Action) (*models.ExecutionResult, error)
}

// HandlerFactory creates handler instances and describes the action type for
// schema validation and discovery.
type HandlerFactory interface {
	// ID returns the action type this factory serves.
	ID() string
	// Name returns the human-readable name of the action type.
	Name() string
	// Description explains what the action does.
	Description() string
	// Schema returns the JSON schema for the action's parameters.
	Schema() map[string]any
	// Create builds a handler instance.
	Create() (Handler, error)
}
