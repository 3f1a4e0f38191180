package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/cmd"
)

const (
	version = "0.1.0"
)

func main() {
	app := &cli.App{
		Name:    "agentmarket",
		Usage:   "Multi-round buyer/seller price negotiation with LLM agents",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Load configuration from `FILE`",
				Value:   "agentmarket.toml",
			},
		},
		Commands: []*cli.Command{
			cmd.APICommand(),
			cmd.NegotiateCommand(),
			cmd.SimulateCommand(),
			cmd.ConfigCommand(),
			cmd.DBCommand(),
			cmd.EnvCommand(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
