package negotiation

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Setup converts the request into construction input for Open
func (r Request) Setup(id string) Setup {
	return Setup{
		ID:             id,
		Product:        r.Product,
		BuyerMaxPrice:  r.BuyerMaxPrice,
		SellerMinPrice: r.SellerMinPrice,
		Market: MarketContext{
			ActiveCompetitorSellers: r.ActiveCompetitorSellers,
			ActiveInterestedBuyers:  r.ActiveInterestedBuyers,
		},
		OpeningOffer:   r.InitialSellerOffer,
		BuyerAnchor:    r.InitialBuyerOffer,
		BuyerPatience:  r.BuyerPatience,
		SellerPatience: r.SellerPatience,
	}
}

// Engine runs complete two-party negotiations to a terminal state
type Engine struct {
	Buyer  Proposer
	Seller Proposer

	// OnTurn, when set, observes every finalized turn in order
	OnTurn func(Turn)
}

// NewEngine creates an engine with the given proposers
func NewEngine(buyer, seller Proposer) *Engine {
	return &Engine{Buyer: buyer, Seller: seller}
}

// WithHuman returns a copy of the engine where role is answered by human
func (e *Engine) WithHuman(role Role, human Proposer) *Engine {
	c := *e
	if role == RoleBuyer {
		c.Buyer = human
	} else {
		c.Seller = human
	}
	return &c
}

// Negotiate runs a negotiation until it agrees or deadlocks.
// It only fails on invalid input or when ctx is cancelled by the caller.
func (e *Engine) Negotiate(ctx context.Context, req Request) (*Result, error) {
	state, err := Open(req.Setup(uuid.NewString()))
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("negotiation_id", state.ID).
		Str("product", req.Product.Name).
		Str("buyer_leverage", string(state.BuyerLeverage)).
		Str("seller_leverage", string(state.SellerLeverage)).
		Int("buyer_patience", state.BuyerPatience).
		Int("seller_patience", state.SellerPatience).
		Msg("Starting negotiation")

	proto := &Protocol{Buyer: e.Buyer, Seller: e.Seller}
	for !state.Status.Terminal() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		turns, err := proto.Step(ctx, state)
		if err != nil {
			return nil, err
		}
		if e.OnTurn != nil {
			for _, t := range turns {
				e.OnTurn(t)
			}
		}
	}

	log.Info().
		Str("negotiation_id", state.ID).
		Str("status", string(state.Status)).
		Int("turns", len(state.Turns)).
		Str("reason", state.Reason).
		Msg("Negotiation finished")

	return state.Result(), nil
}
