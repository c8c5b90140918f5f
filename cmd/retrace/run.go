package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/cmd"
	"github.com/retrace-dev/retrace/pkg/jsengine"
	"github.com/retrace-dev/retrace/pkg/log"
	"github.com/retrace-dev/retrace/pkg/orchestrator"
	"github.com/retrace-dev/retrace/pkg/persistence"
	"github.com/retrace-dev/retrace/pkg/resolve"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Replay a flow from a file",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:     "flow",
				Aliases:  []string{"f"},
				Usage:    "Path to the flow definition (JSON or YAML)",
				Required: true,
			},
			&cli.StringSliceFlag{
				Name:    "arg",
				Aliases: []string{"a"},
				Usage:   "Call-time variable as name=value (repeatable)",
			},
			&cli.StringFlag{
				Name:  "start-url",
				Usage: "Navigate here before the first step instead of checking the domain binding",
			},
			&cli.IntFlag{
				Name:  "timeout-ms",
				Usage: "Global run deadline in milliseconds (0 means unbounded)",
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("cli")

			flow, err := cmd.LoadFlow(command.String("flow"))
			if err != nil {
				return err
			}

			args, err := parseArgs(command.StringSlice("arg"))
			if err != nil {
				return err
			}

			runner, store, closeAll, err := buildRunner(command)
			if err != nil {
				return err
			}
			defer closeAll(ctx)

			if err := store.FlowRepository().SaveFlow(ctx, flow); err != nil {
				logger.WarnContext(ctx, "persisting flow", "error", err)
			}

			opts := orchestrator.RunOptions{
				Args:     args,
				StartURL: command.String("start-url"),
			}
			if ms := command.Int("timeout-ms"); ms > 0 {
				opts.Deadline = time.Now().Add(time.Duration(ms) * time.Millisecond)
			}

			result, err := runner.Run(ctx, flow, opts)
			if err != nil {
				return err
			}

			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}

			fmt.Fprintln(os.Stdout, string(encoded))

			if !result.Success {
				return cli.Exit("run failed", 1)
			}

			return nil
		},
	}
}

func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Persistence URL (file path or file:// URL)",
			Value:   "./data",
			Sources: cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "dispatch-mode",
			Usage:   "Step dispatch mode (legacy, registry, hybrid)",
			Value:   "hybrid",
			Sources: cli.EnvVars("DISPATCH_MODE"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus provider (memory, kafka)",
			Value:   "memory",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "Redis URL for the run state registry (empty selects in-memory)",
			Sources: cli.EnvVars("REDIS_URL"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// buildRunner assembles the orchestrator with the in-memory browser driver
// and the configured persistence, event bus, and run state registry.
func buildRunner(command *cli.Command) (*orchestrator.Orchestrator, persistence.Persistence, func(context.Context), error) {
	logger := log.WithModule("orchestrator")

	store := cmd.NewPersistence(command.String("database-url"))
	bus := cmd.NewEventBus(command.String("event-bus"), logger)

	states, err := cmd.NewRunStateRegistry(command.String("redis-url"))
	if err != nil {
		return nil, nil, nil, err
	}

	reg := cmd.NewRegistry(logger)

	executor, err := cmd.NewExecutor(command.String("dispatch-mode"), reg, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	runner := orchestrator.New(orchestrator.Config{
		Executor:  executor,
		Driver:    memdriver.New(),
		Resolver:  resolve.NewEngine(logger, 0),
		JS:        jsengine.New(logger),
		Publisher: bus,
		Runs:      store.RunRepository(),
		States:    states,
		Logger:    logger,
	})

	closeAll := func(ctx context.Context) {
		if err := bus.Close(); err != nil {
			logger.ErrorContext(ctx, "closing event bus", "error", err)
		}

		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "closing persistence", "error", err)
		}
	}

	return runner, store, closeAll, nil
}

func parseArgs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	args := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, value, found := strings.Cut(pair, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("invalid argument %q, expected name=value", pair)
		}

		args[name] = value
	}

	return args, nil
}
