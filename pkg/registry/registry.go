// Package registry holds the catalog of action handler factories and
// creates handler instances by action type.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/retrace-dev/retrace/pkg/models"
	"github.com/retrace-dev/retrace/pkg/protocol"
)

// ErrHandlerNotRegistered is returned when an action type has no factory.
var ErrHandlerNotRegistered = errors.New("handler not registered")

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.HandlerFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger,
		factories: make(map[string]protocol.HandlerFactory),
	}
}

// Register adds a factory, replacing any previous one for the same id.
func (r *Registry) Register(factory protocol.HandlerFactory) {
	r.factories[factory.ID()] = factory
}

// Supports reports whether an action type has a registered factory.
func (r *Registry) Supports(actionType models.ActionType) bool {
	_, ok := r.factories[string(actionType)]

	return ok
}

// Create instantiates a handler for the action type.
func (r *Registry) Create(actionType models.ActionType) (protocol.Handler, error) {
	factory, ok := r.factories[string(actionType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotRegistered, actionType)
	}

	return factory.Create()
}

// Factory returns the registered factory for the action type.
func (r *Registry) Factory(actionType models.ActionType) (protocol.HandlerFactory, bool) {
	factory, ok := r.factories[string(actionType)]

	return factory, ok
}

// ActionTypes returns the registered action types, sorted.
func (r *Registry) ActionTypes() []string {
	types := make([]string, 0, len(r.factories))
	for id := range r.factories {
		types = append(types, id)
	}

	sort.Strings(types)

	return types
}
