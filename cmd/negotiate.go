package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/oracle"
	"github.com/agentmarket/internal/storage"
)

// Transcript is the JSON document saved after an interactive negotiation
type Transcript struct {
	Request   negotiation.Request `json:"request"`
	HumanRole negotiation.Role    `json:"human_role"`
	Result    *negotiation.Result `json:"result"`
	SavedAt   time.Time           `json:"saved_at"`
}

// NegotiateCommand returns the interactive human-vs-agent negotiation command
func NegotiateCommand() *cli.Command {
	return &cli.Command{
		Name:  "negotiate",
		Usage: "Negotiate interactively against an automated counterpart",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "role", Usage: "Role you play: buyer or seller", Value: string(negotiation.RoleBuyer)},
			&cli.StringFlag{Name: "listing", Usage: "Catalog listing id from the sample catalog", Value: storage.SampleListings[0].ID},
			&cli.Float64Flag{Name: "seller-min", Usage: "Seller's private minimum price", Value: 1000},
			&cli.Float64Flag{Name: "buyer-max", Usage: "Buyer's private maximum price", Value: 1150},
			&cli.IntFlag{Name: "sellers", Usage: "Competing sellers in the market", Value: 1},
			&cli.IntFlag{Name: "buyers", Usage: "Interested buyers in the market", Value: 1},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write the transcript as JSON to `FILE`", Value: "negotiation.json"},
			oracleFlag,
		},
		Action: runNegotiate,
	}
}

func runNegotiate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	role := negotiation.Role(c.String("role"))
	if role != negotiation.RoleBuyer && role != negotiation.RoleSeller {
		return fmt.Errorf("role must be buyer or seller, got %q", role)
	}

	product, err := storage.NewStaticListings(storage.SampleListings).GetListing(c.Context, c.String("listing"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	agent, err := newProposer(ctx, c.String("oracle"), cfg.LLM)
	if err != nil {
		return err
	}

	human := oracle.NewHuman(os.Stdin, os.Stdout)
	// end the session on EOF instead of letting the protocol treat it as a failed offer
	player := negotiation.ProposerFunc(func(ctx context.Context, rc negotiation.RoleContext) (negotiation.Proposal, error) {
		p, err := human.Propose(ctx, rc)
		if errors.Is(err, io.EOF) {
			cancel()
		}
		return p, err
	})

	req := negotiation.Request{
		Product:                 product,
		SellerMinPrice:          c.Float64("seller-min"),
		BuyerMaxPrice:           c.Float64("buyer-max"),
		ActiveCompetitorSellers: c.Int("sellers"),
		ActiveInterestedBuyers:  c.Int("buyers"),
	}

	fmt.Printf("Negotiating for %s (listed at $%s). You are the %s.\n",
		product.Name, negotiation.FormatPrice(product.ListingPrice), role)
	if role == negotiation.RoleBuyer {
		fmt.Printf("Your maximum: $%s\n", negotiation.FormatPrice(req.BuyerMaxPrice))
	} else {
		fmt.Printf("Your minimum: $%s\n", negotiation.FormatPrice(req.SellerMinPrice))
	}

	engine := negotiation.NewEngine(agent, agent).WithHuman(role, player)
	engine.OnTurn = func(t negotiation.Turn) {
		fmt.Printf("  #%d %-6s $%s  %s\n", t.Round, t.Agent, negotiation.FormatPrice(t.Offer), t.Message)
	}

	res, err := engine.Negotiate(ctx, req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("negotiation aborted")
		}
		return err
	}

	if res.Agreed {
		fmt.Printf("\nDeal reached at $%s after %d turns.\n", negotiation.FormatPrice(*res.FinalPrice), len(res.Turns))
	} else {
		fmt.Printf("\nNo deal: %s\n", *res.Reason)
	}

	return writeJSON(c.String("output"), Transcript{
		Request:   req,
		HumanRole: role,
		Result:    res,
		SavedAt:   time.Now().UTC(),
	})
}

func writeJSON(path string, v any) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Printf("Saved to %s\n", path)
	return nil
}
