package cmd

import (
	"fmt"
	"log/slog"

	"github.com/sirupsen/logrus"

	"github.com/retrace-dev/retrace/pkg/dispatch"
	"github.com/retrace-dev/retrace/pkg/protocol"
	"github.com/retrace-dev/retrace/pkg/registry"
)

// NewExecutor builds a step executor for the given dispatch mode: "legacy",
// "registry", or "hybrid".
func NewExecutor(mode string, reg *registry.Registry, logger *slog.Logger) (protocol.StepExecutor, error) {
	switch mode {
	case "legacy":
		return dispatch.NewLegacyExecutor(logrus.StandardLogger()), nil
	case "registry":
		return dispatch.NewRegistryExecutor(reg, logger), nil
	case "", "hybrid":
		return dispatch.NewHybridExecutor(
			dispatch.NewRegistryExecutor(reg, logger),
			dispatch.NewLegacyExecutor(logrus.StandardLogger()),
			dispatch.HybridPolicy{},
			logger,
		), nil
	default:
		return nil, fmt.Errorf("unknown dispatch mode %q", mode)
	}
}
