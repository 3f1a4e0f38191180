package cmd

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/api/auth"
	"github.com/agentmarket/internal/config"
)

// ConfigCheckResult holds the result of environment validation
type ConfigCheckResult struct {
	Missing  []string          // Required variables that are missing
	Present  map[string]string // Variables that are set (masked values)
	Warnings []string          // Non-fatal warnings
}

// EnvCommand returns the command that inspects AGENTMARKET_* environment overrides
func EnvCommand() *cli.Command {
	return &cli.Command{
		Name:  "env",
		Usage: "Inspect environment configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Report which AGENTMARKET_* variables are set",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "env-file", Usage: "Load variables from `FILE` before checking"},
					&cli.BoolFlag{Name: "postgres", Usage: "Require database settings"},
				},
				Action: runEnvCheck,
			},
			{
				Name:  "token",
				Usage: "Issue an API bearer token signed with api.jwt_secret",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "subject", Usage: "Token subject", Value: "cli"},
					&cli.DurationFlag{Name: "ttl", Usage: "Token lifetime", Value: 24 * time.Hour},
				},
				Action: runEnvToken,
			},
		},
	}
}

func runEnvCheck(c *cli.Context) error {
	if path := c.String("env-file"); path != "" {
		if err := LoadEnvFile(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	result := CheckRequiredConfig(c.Bool("postgres"))
	PrintConfigCheck(result)
	if len(result.Missing) > 0 {
		return fmt.Errorf("%d required variable(s) missing", len(result.Missing))
	}
	return nil
}

func runEnvToken(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.API.JWTSecret == "" {
		return fmt.Errorf("api.jwt_secret is not set")
	}
	token, err := auth.IssueToken([]byte(cfg.API.JWTSecret), c.String("subject"), c.Duration("ttl"))
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// CheckRequiredConfig validates that the variables needed for a deployment are set
func CheckRequiredConfig(postgres bool) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	var required []string
	if postgres {
		required = append(required, config.EnvPrefix+"DATABASE__URL")
	}
	for _, v := range required {
		val := os.Getenv(v)
		if val == "" {
			result.Missing = append(result.Missing, v)
		} else {
			result.Present[v] = maskSecret(val)
		}
	}

	for _, kv := range os.Environ() {
		key, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, config.EnvPrefix) || val == "" {
			continue
		}
		result.Present[key] = maskSecret(val)
	}

	if os.Getenv(config.EnvPrefix+"LLM__API_KEY") == "" {
		result.Warnings = append(result.Warnings, "no LLM api key set; only --oracle rules will work unless the config file has one")
	}
	if os.Getenv(config.EnvPrefix+"API__JWT_SECRET") == "" {
		result.Warnings = append(result.Warnings, "no JWT secret set; the API will accept unauthenticated requests")
	}

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(result *ConfigCheckResult) {
	fmt.Println("=== Environment Check ===")
	fmt.Println("")

	if len(result.Missing) > 0 {
		fmt.Println("Missing required variables:")
		for _, v := range result.Missing {
			fmt.Printf("   - %s\n", v)
		}
		fmt.Println("")
	}

	if len(result.Present) > 0 {
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Println("Configured variables:")
		for _, k := range keys {
			fmt.Printf("   - %s = %s\n", k, result.Present[k])
		}
		fmt.Println("")
	}

	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}

	if len(result.Missing) == 0 {
		fmt.Println("All required configuration is present")
	}

	fmt.Println("=========================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.TrimSpace(value)

		if len(value) >= 2 && (value[0] == '"' || value[0] == '\'') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("failed to set env var %s: %w", key, err)
		}
	}

	return scanner.Err()
}
