package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/retrace-dev/retrace/pkg/cmd"
	"github.com/retrace-dev/retrace/pkg/log"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "Check a flow definition without running it",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "flow",
				Aliases:  []string{"f"},
				Usage:    "Path to the flow definition (JSON or YAML)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), "text")

			flow, err := cmd.LoadFlow(command.String("flow"))
			if err != nil {
				return err
			}

			if err := flow.Validate(); err != nil {
				return cli.Exit(fmt.Sprintf("flow %s is invalid: %v", flow.ID, err), 1)
			}

			fmt.Fprintf(os.Stdout, "flow %s is valid: %d nodes, %d edges\n",
				flow.ID, len(flow.Nodes), len(flow.Edges))

			return nil
		},
	}
}
