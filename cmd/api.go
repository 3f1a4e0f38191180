package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/api"
	"github.com/agentmarket/internal/jobqueue"
	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/oracle"
	"github.com/agentmarket/internal/storage"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the negotiation API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides api.port)",
			},
			oracleFlag,
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ctx := context.Background()

	proposer, err := newProposer(ctx, c.String("oracle"), cfg.LLM)
	if err != nil {
		return err
	}

	repo, pool, err := newRepository(ctx, cfg.Database)
	if err != nil {
		return err
	}

	var listings market.ListingStore = storage.NewStaticListings(storage.SampleListings)
	if pool != nil {
		defer pool.Close()
		db, err := storage.NewDB(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()
		listings = storage.NewSQLListings(db)
	}

	manager := market.NewManager(repo, oracle.Shared(proposer), marketOptions(cfg.Market, listings))
	deps := api.Deps{
		Engine:    negotiation.NewEngine(proposer, proposer),
		Manager:   manager,
		JWTSecret: cfg.API.JWTSecret,
	}

	if pool != nil {
		qcfg := jobqueue.DefaultQueueConfig()
		qcfg.MaxWorkers = cfg.Queue.MaxWorkers
		queue, err := jobqueue.NewJobQueue(pool, manager, qcfg)
		if err != nil {
			return err
		}
		if err := queue.Start(ctx); err != nil {
			return fmt.Errorf("failed to start job queue: %w", err)
		}
		defer func() {
			if err := queue.Stop(context.Background()); err != nil {
				log.Warn().Err(err).Msg("Job queue did not stop cleanly")
			}
		}()
		deps.Queue = queue
	}

	port := cfg.API.Port
	if c.IsSet("port") {
		port = c.Int("port")
	}
	fmt.Printf("Starting agentmarket API server on port %d...\n", port)

	server := api.NewServer(port, deps)
	return server.Start()
}
