package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/retrace-dev/retrace/pkg/browser/memdriver"
	"github.com/retrace-dev/retrace/pkg/cmd"
	"github.com/retrace-dev/retrace/pkg/jsengine"
	"github.com/retrace-dev/retrace/pkg/log"
	"github.com/retrace-dev/retrace/pkg/orchestrator"
	"github.com/retrace-dev/retrace/pkg/resolve"
)

const defaultPort = 9191

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "retrace-api",
		Usage:                 "Manage and replay flows over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
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
				Value:   "json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger.InfoContext(ctx, "Initializing Retrace API")

			store := cmd.NewPersistence(command.String("database-url"))
			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			bus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				if err := bus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			states, err := cmd.NewRunStateRegistry(command.String("redis-url"))
			if err != nil {
				return err
			}

			registry := cmd.NewRegistry(logger)

			executor, err := cmd.NewExecutor(command.String("dispatch-mode"), registry, logger)
			if err != nil {
				return err
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

			api := NewAPI(logger, store, runner, states, registry)

			return api.Start(command.Int("port"))
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
