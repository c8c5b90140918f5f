// Package cmd provides common initialization helpers for the command-line
// entrypoints.
package cmd

import (
	"log/slog"

	"github.com/retrace-dev/retrace/pkg/registry"
)

// NewRegistry builds a handler registry with every built-in action handler
// registered.
func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaults()

	return reg
}
