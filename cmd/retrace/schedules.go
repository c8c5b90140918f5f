package main

import (
	"context"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/retrace-dev/retrace/pkg/log"
	"github.com/retrace-dev/retrace/pkg/scheduler"
)

func schedulerCommand() *cli.Command {
	return &cli.Command{
		Name:    "scheduler",
		Aliases: []string{"s"},
		Usage:   "Fire recurring replays from registered schedules",
		Flags:   commonFlags(),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))
			logger := log.WithModule("scheduler")

			runner, store, closeAll, err := buildRunner(command)
			if err != nil {
				return err
			}
			defer closeAll(ctx)

			sched := scheduler.New(store, runner, logger)
			if err := sched.Start(ctx); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			<-ctx.Done()

			logger.Info("shutting down scheduler")
			sched.Stop()

			return nil
		},
	}
}
