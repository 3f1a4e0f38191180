package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/simulation"
	"github.com/agentmarket/internal/storage"
)

// SimulateCommand returns the batch simulation command
func SimulateCommand() *cli.Command {
	return &cli.Command{
		Name:      "simulate",
		Usage:     "Run the negotiations described in a TOML scenario file",
		ArgsUsage: "SCENARIO",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "concurrency", Usage: "Negotiations in flight at once (overrides the scenario)"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the report as JSON to `FILE`"},
		},
		Action: runSimulate,
	}
}

func runSimulate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one scenario file")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	sc, err := simulation.LoadScenario(c.Args().First())
	if err != nil {
		return err
	}
	if c.IsSet("concurrency") {
		sc.Concurrency = c.Int("concurrency")
	}

	listings := storage.NewStaticListings(storage.SampleListings)
	runner := &simulation.Runner{
		Listings: listings,
		Market:   marketOptions(cfg.Market, listings),
		OnResult: printCaseResult,
	}
	if sc.UsesLLM() {
		o, err := newLLMOracle(c.Context, cfg.LLM)
		if err != nil {
			return err
		}
		runner.Oracles.LLM = o
	}

	report, err := runner.Run(c.Context, sc)
	if err != nil {
		return err
	}

	fmt.Printf("\n%d agreed, %d deadlocked, %d failed", report.Agreed, report.Deadlocked, report.Failed)
	if report.AveragePrice != nil {
		fmt.Printf(", average price $%s", negotiation.FormatPrice(*report.AveragePrice))
	}
	fmt.Println()

	if s := report.Session; s != nil {
		fmt.Printf("Session %s: %d deals, %d deadlocks, %d switches, %d rounds\n",
			s.SessionID, len(s.Deals), len(s.Deadlocks), len(s.Switches), s.TotalRounds)
		for _, d := range s.Deals {
			fmt.Printf("  deal %s <- %s at $%s\n", d.BuyerID, d.SellerID, negotiation.FormatPrice(d.FinalPrice))
		}
		for _, d := range s.Deadlocks {
			fmt.Printf("  no deal %s / %s: %s\n", d.BuyerID, d.SellerID, d.Reason)
		}
	}

	return writeJSON(c.String("output"), report)
}

func printCaseResult(r simulation.CaseResult) {
	switch {
	case r.Result == nil:
		fmt.Printf("%s #%d: error: %s\n", r.Name, r.Run, r.Error)
	case r.Result.Agreed:
		fmt.Printf("%s #%d: agreed at $%s in %d turns\n", r.Name, r.Run, negotiation.FormatPrice(*r.Result.FinalPrice), len(r.Result.Turns))
	default:
		fmt.Printf("%s #%d: %s\n", r.Name, r.Run, *r.Result.Reason)
	}
}
