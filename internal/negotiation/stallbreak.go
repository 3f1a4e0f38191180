package negotiation

import "fmt"

// breakStall forces closure once both roles have plateaued.
// Overlapping constraints settle at the clamped midpoint of both last offers; otherwise the
// negotiation ends in an impasse. Either way a system turn records the outcome.
func (s *State) breakStall() {
	buyerLast, _ := s.lastOwnOffer(RoleBuyer)
	sellerLast, _ := s.lastOwnOffer(RoleSeller)

	if s.SellerMinPrice <= s.BuyerMaxPrice {
		price := roundCents((buyerLast + sellerLast) / 2)
		if price < s.SellerMinPrice {
			price = s.SellerMinPrice
		}
		if price > s.BuyerMaxPrice {
			price = s.BuyerMaxPrice
		}
		s.Turns = append(s.Turns, Turn{
			Round:   len(s.Turns) + 1,
			Agent:   RoleSystem,
			Offer:   price,
			Message: fmt.Sprintf("Both parties have settled into their positions. Final offer to conclude the negotiation: $%s.", FormatPrice(price)),
		})
		s.terminate(StatusAgreed, &price, ReasonForcedMidpoint)
		return
	}

	s.Turns = append(s.Turns, Turn{
		Round:   len(s.Turns) + 1,
		Agent:   RoleSystem,
		Offer:   s.LastOffer(),
		Message: "Both parties have stopped moving and their positions cannot be reconciled. Ending the negotiation.",
	})
	s.terminate(StatusDeadlocked, nil, ReasonNonOverlapping)
}
