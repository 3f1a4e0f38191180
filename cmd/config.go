package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/config"
)

// ConfigCommand returns the config command
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize a new configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
						Value:   "agentmarket.toml",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:   "validate",
				Usage:  "Validate the configuration file",
				Action: runConfigValidate,
			},
			{
				Name:   "show",
				Usage:  "Print the effective configuration with secrets masked",
				Action: runConfigShow,
			},
		},
	}
}

func runConfigInit(c *cli.Context) error {
	outputPath := c.String("output")

	if err := config.InitConfig(outputPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Created configuration file at %s\n", outputPath)
	return nil
}

func runConfigValidate(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	fmt.Println("Configuration is valid")
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	fmt.Printf("general.log_level          = %s\n", cfg.General.LogLevel)
	fmt.Printf("general.log_format         = %s\n", cfg.General.LogFormat)
	fmt.Printf("llm.provider               = %s\n", cfg.LLM.Provider)
	fmt.Printf("llm.model                  = %s\n", cfg.LLM.Model)
	fmt.Printf("llm.api_key                = %s\n", maskSecret(cfg.LLM.APIKey))
	fmt.Printf("llm.timeout                = %s\n", cfg.LLM.Timeout)
	fmt.Printf("llm.max_retries            = %d\n", cfg.LLM.MaxRetries)
	fmt.Printf("market.max_rounds          = %d\n", cfg.Market.MaxRoundsPerNegotiation)
	fmt.Printf("market.allow_switching     = %t\n", cfg.Market.AllowSwitching)
	fmt.Printf("api.port                   = %d\n", cfg.API.Port)
	fmt.Printf("api.jwt_secret             = %s\n", maskSecret(cfg.API.JWTSecret))
	fmt.Printf("database.storage           = %s\n", cfg.Database.Storage)
	fmt.Printf("database.url               = %s\n", maskSecret(cfg.Database.URL))
	fmt.Printf("queue.max_workers          = %d\n", cfg.Queue.MaxWorkers)
	return nil
}
