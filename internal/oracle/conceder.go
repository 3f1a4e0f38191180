package oracle

import (
	"context"
	"fmt"

	"github.com/agentmarket/internal/negotiation"
)

// Conceder is a deterministic rule-based negotiator used for offline simulations.
// It opens away from the listing price and closes a fixed share of the gap each turn.
type Conceder struct {
	// Opening is the buyer's first offer as a fraction of the listing price
	Opening float64
	// Rate is the share of the remaining gap conceded per turn
	Rate float64
}

// NewConceder returns a conceder with moderate defaults
func NewConceder() *Conceder {
	return &Conceder{Opening: 0.7, Rate: 0.3}
}

// Propose implements negotiation.Proposer
func (c *Conceder) Propose(ctx context.Context, rc negotiation.RoleContext) (negotiation.Proposal, error) {
	counter := rc.CounterpartLastOffer
	listing := rc.Product.ListingPrice

	if len(rc.OwnOffers) == 0 {
		open := listing
		if rc.Role == negotiation.RoleBuyer {
			open = listing * c.Opening
			if rc.AnchorOffer > 0 {
				open = rc.AnchorOffer
			}
		}
		return proposal(open), nil
	}

	own := rc.OwnOffers[len(rc.OwnOffers)-1]
	gap := counter - own
	if abs(gap) <= listing*0.01 && c.acceptable(rc) {
		return negotiation.Proposal{Offer: counter, Message: "That works for me."}, nil
	}
	return proposal(own + gap*c.Rate), nil
}

func (c *Conceder) acceptable(rc negotiation.RoleContext) bool {
	if rc.Role == negotiation.RoleBuyer {
		return rc.CounterpartLastOffer <= rc.Bound
	}
	return rc.CounterpartLastOffer >= rc.Bound
}

func proposal(offer float64) negotiation.Proposal {
	return negotiation.Proposal{
		Offer:   offer,
		Message: fmt.Sprintf("I can do $%s.", negotiation.FormatPrice(offer)),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
