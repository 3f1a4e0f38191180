package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/storage"
)

// DBCommand returns the database maintenance command
func DBCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Manage the Postgres database",
		Subcommands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "Apply schema and job queue migrations",
				Action: runDBMigrate,
			},
			{
				Name:   "seed",
				Usage:  "Insert the sample listing catalog",
				Action: runDBSeed,
			},
		},
	}
}

func databaseURL(c *cli.Context) (string, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return "", err
	}
	if cfg.Database.URL == "" {
		return "", fmt.Errorf("database.url is not set")
	}
	return cfg.Database.URL, nil
}

func runDBMigrate(c *cli.Context) error {
	url, err := databaseURL(c)
	if err != nil {
		return err
	}
	pool, err := storage.NewPool(c.Context, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := storage.Migrate(c.Context, pool); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("Database migrated")
	return nil
}

func runDBSeed(c *cli.Context) error {
	url, err := databaseURL(c)
	if err != nil {
		return err
	}
	db, err := storage.NewDB(url)
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := storage.NewSQLListings(db).Seed(c.Context, storage.SampleListings)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	fmt.Printf("Seeded %d listings\n", n)
	return nil
}
