package negotiation

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"
)

// Reasons recorded on terminal states
const (
	ReasonPatienceExhausted = "Negotiation ended without agreement: patience exhausted."
	ReasonNonOverlapping    = "Negotiation ended without agreement: non-overlapping constraints."
	ReasonForcedMidpoint    = "Stall resolved by forced midpoint."
	ReasonBuyerAccepted     = "Buyer accepted the seller's offer."
	ReasonSellerAccepted    = "Seller accepted the buyer's offer."

	oracleFailureMessage = "Could not parse response."
	overrideMessage      = "I can't do that, but I can meet you here."
)

// stallLimit is the number of consecutive unchanged offers per role that triggers a stall-break
const stallLimit = 2

// RoleContext is everything a proposer may see when it is asked to move
type RoleContext struct {
	NegotiationID        string
	Role                 Role
	PartyID              string
	Product              Product
	Bound                float64
	CounterpartLastOffer float64
	OwnOffers            []float64
	CounterpartOffers    []float64
	Transcript           []Turn
	RoundsLeft           int
	Leverage             Leverage
	Market               MarketContext
	MarketSummary        string
	AnchorOffer          float64
}

// Proposer produces a raw, untrusted proposal for one role
type Proposer interface {
	Propose(ctx context.Context, rc RoleContext) (Proposal, error)
}

// ProposerFunc adapts a function to the Proposer interface
type ProposerFunc func(ctx context.Context, rc RoleContext) (Proposal, error)

// Propose calls f
func (f ProposerFunc) Propose(ctx context.Context, rc RoleContext) (Proposal, error) {
	return f(ctx, rc)
}

// Setup holds the construction input of a negotiation
type Setup struct {
	ID             string
	BuyerID        string
	SellerID       string
	Product        Product
	BuyerMaxPrice  float64
	SellerMinPrice float64
	Market         MarketContext
	OpeningOffer   *float64
	BuyerAnchor    *float64
	BuyerPatience  *int
	SellerPatience *int
}

// Open validates a setup and returns the initial state.
// Leverage, patience and the seller target are computed once here and never recomputed.
func Open(setup Setup) (*State, error) {
	if err := setup.validate(); err != nil {
		return nil, err
	}

	buyerLev := CalculateLeverage(RoleBuyer, setup.Market.ActiveCompetitorSellers, setup.Market.ActiveInterestedBuyers)
	sellerLev := CalculateLeverage(RoleSeller, setup.Market.ActiveCompetitorSellers, setup.Market.ActiveInterestedBuyers)

	s := &State{
		ID:             setup.ID,
		BuyerID:        setup.BuyerID,
		SellerID:       setup.SellerID,
		Product:        setup.Product,
		Market:         setup.Market,
		BuyerMaxPrice:  setup.BuyerMaxPrice,
		SellerMinPrice: setup.SellerMinPrice,
		OpeningOffer:   setup.Product.ListingPrice,
		BuyerLeverage:  buyerLev,
		SellerLeverage: sellerLev,
		SellerTarget:   SellerTarget(setup.SellerMinPrice, setup.Product.ListingPrice, sellerLev),
		BuyerPatience:  InitialPatience(buyerLev),
		SellerPatience: InitialPatience(sellerLev),
		Turns:          []Turn{},
		Status:         StatusActive,
	}
	if setup.OpeningOffer != nil {
		s.OpeningOffer = *setup.OpeningOffer
	}
	if setup.BuyerAnchor != nil {
		s.BuyerAnchor = *setup.BuyerAnchor
	}
	if setup.BuyerPatience != nil {
		s.BuyerPatience = *setup.BuyerPatience
	}
	if setup.SellerPatience != nil {
		s.SellerPatience = *setup.SellerPatience
	}
	return s, nil
}

func (setup Setup) validate() error {
	var problems []string
	if !positive(setup.Product.ListingPrice) {
		problems = append(problems, "listing_price must be > 0")
	}
	if !positive(setup.SellerMinPrice) {
		problems = append(problems, "seller_min_price must be > 0")
	}
	if !positive(setup.BuyerMaxPrice) {
		problems = append(problems, "buyer_max_price must be > 0")
	}
	if setup.Market.ActiveCompetitorSellers < 0 || setup.Market.ActiveInterestedBuyers < 0 {
		problems = append(problems, "market counts must be >= 0")
	}
	if setup.OpeningOffer != nil && !positive(*setup.OpeningOffer) {
		problems = append(problems, "initial_seller_offer must be > 0")
	}
	if setup.BuyerAnchor != nil && !positive(*setup.BuyerAnchor) {
		problems = append(problems, "initial_buyer_offer must be > 0")
	}
	if setup.BuyerPatience != nil && *setup.BuyerPatience <= 0 {
		problems = append(problems, "buyer_patience must be > 0")
	}
	if setup.SellerPatience != nil && *setup.SellerPatience <= 0 {
		problems = append(problems, "seller_patience must be > 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(problems, "; "))
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Protocol drives turns for one negotiation at a time.
// It holds no per-negotiation state; callers own the State and must not step it concurrently.
type Protocol struct {
	Buyer  Proposer
	Seller Proposer

	// MarketSummary optionally describes live market conditions to the acting role
	MarketSummary func(role Role) string
}

// Step executes exactly one turn on s and returns the turns appended by it.
// A step that ends the negotiation by patience exhaustion may append nothing.
// If ctx is done when the proposer returns, s is left untouched and ctx.Err() is returned.
func (p *Protocol) Step(ctx context.Context, s *State) ([]Turn, error) {
	if s.Status.Terminal() {
		return nil, ErrNotActive
	}
	if s.BuyerPatience <= 0 || s.SellerPatience <= 0 {
		s.terminate(StatusDeadlocked, nil, ReasonPatienceExhausted)
		return nil, nil
	}

	role := s.NextRole()
	last := s.LastOffer()
	prev, hasPrev := s.lastOwnOffer(role)
	start := len(s.Turns)

	proposer := p.Seller
	if role == RoleBuyer {
		proposer = p.Buyer
	}

	raw, err := proposer.Propose(ctx, p.roleContext(s, role))
	if ctx.Err() != nil {
		// the caller gave up on this turn; nothing is recorded
		return nil, ctx.Err()
	}
	if err == nil && !raw.Accept && !positive(raw.Offer) {
		err = fmt.Errorf("non-positive offer %v", raw.Offer)
	}
	if err != nil {
		log.Warn().Err(err).
			Str("negotiation_id", s.ID).
			Str("role", string(role)).
			Msg("Offer oracle failed, falling back to counterpart offer")
		raw = Proposal{Offer: last, Message: oracleFailureMessage}
	}

	final := p.sanitize(s, role, raw, prev, hasPrev, last)
	s.Turns = append(s.Turns, Turn{
		Round:   len(s.Turns) + 1,
		Agent:   role,
		Offer:   final.Offer,
		Message: final.Message,
	})

	if samePrice(final.Offer, last) {
		if role == RoleSeller && !raw.Accept && last < s.SellerTarget {
			counter := math.Max(s.SellerTarget, last+1)
			ceiling := s.OpeningOffer
			if hasPrev {
				ceiling = prev
			}
			if counter > ceiling {
				counter = ceiling
			}
			counter = roundCents(counter)
			turn := &s.Turns[len(s.Turns)-1]
			turn.Offer = counter
			turn.Message = overrideMessage
			final.Offer = counter

			log.Debug().
				Str("negotiation_id", s.ID).
				Float64("buyer_offer", last).
				Float64("counter", counter).
				Msg("Seller acceptance below target overridden")
		} else {
			reason := ReasonBuyerAccepted
			if role == RoleSeller {
				reason = ReasonSellerAccepted
			}
			s.Turns[len(s.Turns)-1].Message = acceptMessage(final.Offer)
			price := final.Offer
			s.terminate(StatusAgreed, &price, reason)
			return s.Turns[start:], nil
		}
	}

	s.trackStall(role, final.Offer, prev, hasPrev)
	if s.BuyerStall >= stallLimit && s.SellerStall >= stallLimit {
		s.breakStall()
		return s.Turns[start:], nil
	}

	if role == RoleBuyer {
		s.BuyerPatience--
	} else {
		s.SellerPatience--
	}
	if s.BuyerPatience <= 0 || s.SellerPatience <= 0 {
		s.terminate(StatusDeadlocked, nil, ReasonPatienceExhausted)
	}

	return s.Turns[start:], nil
}

// sanitize paces and clamps a raw proposal. Explicit human acceptances bypass both.
func (p *Protocol) sanitize(s *State, role Role, raw Proposal, prev float64, hasPrev bool, last float64) Proposal {
	if raw.Accept {
		return Proposal{Offer: last, Message: acceptMessage(last), Accept: true}
	}

	paced := Proposal{Offer: roundCents(raw.Offer), Message: raw.Message}
	var prevPtr *float64
	if hasPrev {
		step := MaxConcessionStep(s.Product.ListingPrice, s.Leverage(role), s.Patience(role))
		paced.Offer = roundCents(LimitConcession(role, paced.Offer, prev, last, step))
		prevPtr = &prev
	}
	return ClampOffer(role, s.Bound(role), paced, prevPtr, last)
}

func (p *Protocol) roleContext(s *State, role Role) RoleContext {
	rc := RoleContext{
		NegotiationID:        s.ID,
		Role:                 role,
		PartyID:              s.SellerID,
		Product:              s.Product,
		Bound:                s.Bound(role),
		CounterpartLastOffer: s.LastOffer(),
		OwnOffers:            s.Offers(role),
		CounterpartOffers:    s.Offers(role.Counterpart()),
		Transcript:           append([]Turn(nil), s.Turns...),
		RoundsLeft:           s.Patience(role),
		Leverage:             s.Leverage(role),
		Market:               s.Market,
	}
	if role == RoleBuyer {
		rc.PartyID = s.BuyerID
		rc.AnchorOffer = s.BuyerAnchor
	}
	if p.MarketSummary != nil {
		rc.MarketSummary = p.MarketSummary(role)
	}
	return rc
}

func (s *State) trackStall(role Role, offer, prev float64, hasPrev bool) {
	stalled := hasPrev && samePrice(offer, prev)
	counter := &s.SellerStall
	if role == RoleBuyer {
		counter = &s.BuyerStall
	}
	if stalled {
		*counter++
	} else {
		*counter = 0
	}
}

// terminate freezes the state. Status never reverts once terminal.
func (s *State) terminate(status Status, price *float64, reason string) {
	if s.Status.Terminal() {
		return
	}
	s.Status = status
	s.Agreed = status == StatusAgreed && price != nil
	s.FinalPrice = nil
	if s.Agreed {
		s.FinalPrice = price
	}
	s.Reason = reason
}

// MarkSwitched ends an active negotiation because the buyer moved to another seller
func (s *State) MarkSwitched(reason string) {
	s.terminate(StatusSwitched, nil, reason)
}

// Abandon ends an active negotiation without agreement for a reason outside the protocol
func (s *State) Abandon(reason string) {
	s.terminate(StatusDeadlocked, nil, reason)
}
