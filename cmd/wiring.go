package cmd

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/config"
	"github.com/agentmarket/internal/llm"
	"github.com/agentmarket/internal/logging"
	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/oracle"
	"github.com/agentmarket/internal/retry"
	"github.com/agentmarket/internal/storage"
)

// Oracle kinds selectable with --oracle
const (
	oracleLLM   = "llm"
	oracleRules = "rules"
)

var oracleFlag = &cli.StringFlag{
	Name:  "oracle",
	Usage: "Offer oracle for automated parties: llm or rules",
	Value: oracleLLM,
}

// loadConfig reads the global --config file and configures logging from it
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := logging.Setup(cfg.General.LogLevel, cfg.General.LogFormat); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLLMOracle connects to the configured model and wraps it in the resilient offer oracle
func newLLMOracle(ctx context.Context, cfg config.LLMConfig) (*oracle.LLM, error) {
	if err := cfg.RequireLLMCredentials(); err != nil {
		return nil, err
	}
	conn, err := llm.NewConnector(ctx, llm.ConnectorOptions{
		Provider:          llm.Provider(cfg.Provider),
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		MaxTokens:         cfg.MaxTokens,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, err
	}

	retryCfg := retry.OracleConfig()
	retryCfg.MaxRetries = cfg.MaxRetries
	client := llm.NewResilientClient(conn, retryCfg, llm.LogSink{Logger: log.Logger})

	log.Info().Str("provider", string(conn.Provider())).Str("model", conn.Model()).Msg("LLM offer oracle ready")
	return oracle.NewLLM(client, nil, cfg.Timeout), nil
}

// newProposer returns one proposer shared by every automated party
func newProposer(ctx context.Context, kind string, cfg config.LLMConfig) (negotiation.Proposer, error) {
	switch kind {
	case oracleLLM:
		o, err := newLLMOracle(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return o, nil
	case oracleRules:
		return oracle.NewConceder(), nil
	default:
		return nil, fmt.Errorf("unknown oracle %q (want %s or %s)", kind, oracleLLM, oracleRules)
	}
}

// newRepository opens the configured session store. The returned pool is nil for memory storage.
func newRepository(ctx context.Context, cfg config.DatabaseConfig) (market.Repository, *pgxpool.Pool, error) {
	if cfg.Storage != "postgres" {
		return storage.NewMemory(), nil, nil
	}
	pool, err := storage.NewPool(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return storage.NewPostgres(pool), pool, nil
}

func marketOptions(cfg config.MarketConfig, listings market.ListingStore) market.Options {
	return market.Options{
		Listings:                listings,
		MaxRoundsPerNegotiation: cfg.MaxRoundsPerNegotiation,
		AllowSwitching:          cfg.AllowSwitching,
	}
}
