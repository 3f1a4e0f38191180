package simulation

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/oracle"
	"github.com/agentmarket/internal/storage"
)

// Oracles builds proposers for the oracle kinds a scenario names
type Oracles struct {
	// LLM is shared by every party that uses the llm kind; nil when not configured
	LLM negotiation.Proposer
}

// Build returns a fresh proposer. Scripted proposers are stateful and never shared.
func (o Oracles) Build(kind string, offers []float64) (negotiation.Proposer, error) {
	switch kind {
	case OracleScripted:
		if len(offers) == 0 {
			return nil, fmt.Errorf("scripted oracle needs at least one offer")
		}
		return oracle.NewScripted(offers...), nil
	case OracleRules:
		return oracle.NewConceder(), nil
	case OracleLLM:
		if o.LLM == nil {
			return nil, fmt.Errorf("llm oracle is not configured")
		}
		return o.LLM, nil
	default:
		return nil, fmt.Errorf("unknown oracle %q", kind)
	}
}

// party builds a session party's proposer. A build failure yields a proposer that reports it on
// every turn, so the protocol's oracle failure handling applies instead of a nil proposer.
func (o Oracles) party(kind string, role negotiation.Role, partyID string) negotiation.Proposer {
	p, err := o.Build(kind, nil)
	if err == nil {
		return p
	}
	log.Error().Err(err).
		Str("role", string(role)).
		Str("party_id", partyID).
		Msg("Could not build session proposer")
	return negotiation.ProposerFunc(func(context.Context, negotiation.RoleContext) (negotiation.Proposal, error) {
		return negotiation.Proposal{}, err
	})
}

// CaseResult is the outcome of one run of one case
type CaseResult struct {
	Name   string              `json:"name"`
	Run    int                 `json:"run"`
	Result *negotiation.Result `json:"result,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// Report summarizes a scenario run
type Report struct {
	Results      []CaseResult             `json:"results"`
	Agreed       int                      `json:"agreed"`
	Deadlocked   int                      `json:"deadlocked"`
	Failed       int                      `json:"failed"`
	AveragePrice *float64                 `json:"average_price,omitempty"`
	Session      *market.AutomationResult `json:"session,omitempty"`
}

// Runner executes scenarios
type Runner struct {
	Oracles  Oracles
	Listings market.ListingStore
	Market   market.Options

	// OnResult, when set, observes each case result as it completes. It may be called concurrently.
	OnResult func(CaseResult)
}

type job struct {
	index int
	c     Case
	run   int
}

// Run executes every case of sc with at most sc.Concurrency negotiations in flight, then the session if any.
// Invalid cases are reported per result; only context cancellation aborts the run.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	var jobs []job
	for _, c := range sc.Negotiations {
		for run := 1; run <= c.Repeat; run++ {
			jobs = append(jobs, job{index: len(jobs), c: c, run: run})
		}
	}

	results := make([]CaseResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(sc.Concurrency, 1))

	for _, j := range jobs {
		g.Go(func() error {
			res := CaseResult{Name: j.c.Name, Run: j.run}
			out, err := r.runCase(gctx, j.c)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("case", j.c.Name).Int("run", j.run).Msg("Simulation case failed")
				res.Error = err.Error()
			}
			res.Result = out
			results[j.index] = res
			if r.OnResult != nil {
				r.OnResult(res)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := summarize(results)

	if sc.Session != nil {
		auto, err := r.runSession(ctx, sc.Session)
		if err != nil {
			return report, fmt.Errorf("session run failed: %w", err)
		}
		report.Session = auto
	}
	return report, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) (*negotiation.Result, error) {
	req := c.Request
	if c.Listing != "" && req.Product.ListingPrice == 0 {
		if r.Listings == nil {
			return nil, fmt.Errorf("listing %q given but no catalog is available", c.Listing)
		}
		p, err := r.Listings.GetListing(ctx, c.Listing)
		if err != nil {
			return nil, err
		}
		req.Product = p
	}

	buyer, err := r.Oracles.Build(c.BuyerOracle, c.BuyerOffers)
	if err != nil {
		return nil, fmt.Errorf("buyer: %w", err)
	}
	seller, err := r.Oracles.Build(c.SellerOracle, c.SellerOffers)
	if err != nil {
		return nil, fmt.Errorf("seller: %w", err)
	}

	return negotiation.NewEngine(buyer, seller).Negotiate(ctx, req)
}

func (r *Runner) runSession(ctx context.Context, s *Session) (*market.AutomationResult, error) {
	if _, err := r.Oracles.Build(s.Oracle, nil); err != nil {
		return nil, err
	}
	proposers := oracle.NewFactory(func(role negotiation.Role, partyID string) negotiation.Proposer {
		return r.Oracles.party(s.Oracle, role, partyID)
	})

	opts := r.Market
	if opts.Listings == nil {
		opts.Listings = r.Listings
	}
	manager := market.NewManager(storage.NewMemory(), proposers, opts)

	session, err := manager.CreateSession(ctx, s.CreateSessionRequest)
	if err != nil {
		return nil, err
	}
	return manager.ExecuteAutomatedSession(ctx, session.ID)
}

func summarize(results []CaseResult) *Report {
	report := &Report{Results: results}
	sum := decimal.Zero
	for _, res := range results {
		switch {
		case res.Result == nil:
			report.Failed++
		case res.Result.Agreed && res.Result.FinalPrice != nil:
			report.Agreed++
			sum = sum.Add(decimal.NewFromFloat(*res.Result.FinalPrice))
		default:
			report.Deadlocked++
		}
	}
	if report.Agreed > 0 {
		avg, _ := sum.Div(decimal.NewFromInt(int64(report.Agreed))).Round(2).Float64()
		report.AveragePrice = &avg
	}
	return report
}
