package negotiation

import "math"

// Role identifies who authored a turn
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleSystem Role = "system"
)

// Counterpart returns the opposing negotiating role
func (r Role) Counterpart() Role {
	if r == RoleBuyer {
		return RoleSeller
	}
	return RoleBuyer
}

// Leverage is the qualitative negotiating strength of a party
type Leverage string

const (
	LeverageHigh   Leverage = "high"
	LeverageMedium Leverage = "medium"
	LeverageLow    Leverage = "low"
)

// Status is the lifecycle state of a negotiation
type Status string

const (
	StatusActive     Status = "active"
	StatusAgreed     Status = "agreed"
	StatusDeadlocked Status = "deadlocked"
	StatusSwitched   Status = "switched"
)

// Terminal reports whether no further turns may be taken
func (s Status) Terminal() bool {
	return s != StatusActive
}

// priceTolerance is the epsilon used for every price equality check.
// Offers are cent-rounded, so two prices one cent apart must never compare equal.
const priceTolerance = 0.01

func samePrice(a, b float64) bool {
	return math.Abs(a-b) < priceTolerance-1e-9
}

// Product is the item under negotiation
type Product struct {
	Name         string  `json:"name"`
	Description  string  `json:"description,omitempty"`
	ListingPrice float64 `json:"listing_price"`
}

// MarketContext carries the supply/demand counts that drive leverage
type MarketContext struct {
	ActiveCompetitorSellers int `json:"active_competitor_sellers"`
	ActiveInterestedBuyers  int `json:"active_interested_buyers"`
}

// Turn is one finalized move in the transcript
type Turn struct {
	Round   int     `json:"round"`
	Agent   Role    `json:"agent"`
	Offer   float64 `json:"offer"`
	Message string  `json:"message"`
}

// State is the full mutable state of one two-party negotiation.
// The transcript is the only history; per-role offer history is derived from it.
type State struct {
	ID       string        `json:"id"`
	BuyerID  string        `json:"buyer_id,omitempty"`
	SellerID string        `json:"seller_id,omitempty"`
	Product  Product       `json:"product"`
	Market   MarketContext `json:"market"`

	BuyerMaxPrice  float64 `json:"buyer_max_price"`
	SellerMinPrice float64 `json:"seller_min_price"`
	OpeningOffer   float64 `json:"opening_offer"`
	BuyerAnchor    float64 `json:"buyer_anchor,omitempty"`

	BuyerLeverage  Leverage `json:"buyer_leverage"`
	SellerLeverage Leverage `json:"seller_leverage"`
	SellerTarget   float64  `json:"seller_target"`

	BuyerPatience  int `json:"buyer_patience"`
	SellerPatience int `json:"seller_patience"`
	BuyerStall     int `json:"buyer_stall_count"`
	SellerStall    int `json:"seller_stall_count"`

	Turns []Turn `json:"turns"`

	Status     Status   `json:"status"`
	Agreed     bool     `json:"agreed"`
	FinalPrice *float64 `json:"final_price,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// NextRole returns the role that acts on the next step
func (s *State) NextRole() Role {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Agent != RoleSystem {
			return s.Turns[i].Agent.Counterpart()
		}
	}
	return RoleBuyer
}

// LastOffer returns the most recent offer on the table, or the seller's opening offer
func (s *State) LastOffer() float64 {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Agent != RoleSystem {
			return s.Turns[i].Offer
		}
	}
	return s.OpeningOffer
}

// Offers returns the ordered offer history of one role
func (s *State) Offers(role Role) []float64 {
	var offers []float64
	for _, t := range s.Turns {
		if t.Agent == role {
			offers = append(offers, t.Offer)
		}
	}
	return offers
}

// lastOwnOffer returns the role's own previous offer if it has made one
func (s *State) lastOwnOffer(role Role) (float64, bool) {
	for i := len(s.Turns) - 1; i >= 0; i-- {
		if s.Turns[i].Agent == role {
			return s.Turns[i].Offer, true
		}
	}
	return 0, false
}

// Patience returns the remaining round budget for a role
func (s *State) Patience(role Role) int {
	if role == RoleBuyer {
		return s.BuyerPatience
	}
	return s.SellerPatience
}

// Leverage returns the leverage the role was assigned at start
func (s *State) Leverage(role Role) Leverage {
	if role == RoleBuyer {
		return s.BuyerLeverage
	}
	return s.SellerLeverage
}

// Bound returns the private hard constraint of a role
func (s *State) Bound(role Role) float64 {
	if role == RoleBuyer {
		return s.BuyerMaxPrice
	}
	return s.SellerMinPrice
}

// Clone returns a deep copy that shares no mutable memory with s
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	if s.FinalPrice != nil {
		fp := *s.FinalPrice
		c.FinalPrice = &fp
	}
	return &c
}

// Result converts a state into the public negotiation result
func (s *State) Result() *Result {
	res := &Result{
		Agreed: s.Agreed,
		Turns:  append([]Turn{}, s.Turns...),
	}
	if s.FinalPrice != nil {
		fp := *s.FinalPrice
		res.FinalPrice = &fp
	}
	if s.Reason != "" {
		reason := s.Reason
		res.Reason = &reason
	}
	return res
}

// Request is the inbound single-negotiation request
type Request struct {
	Product                 Product  `json:"product"`
	SellerMinPrice          float64  `json:"seller_min_price"`
	BuyerMaxPrice           float64  `json:"buyer_max_price"`
	ActiveCompetitorSellers int      `json:"active_competitor_sellers"`
	ActiveInterestedBuyers  int      `json:"active_interested_buyers"`
	InitialSellerOffer      *float64 `json:"initial_seller_offer,omitempty"`
	InitialBuyerOffer       *float64 `json:"initial_buyer_offer,omitempty"`
	SellerPatience          *int     `json:"seller_patience,omitempty"`
	BuyerPatience           *int     `json:"buyer_patience,omitempty"`
}

// Result is the outcome of a negotiation
type Result struct {
	Agreed     bool     `json:"agreed"`
	FinalPrice *float64 `json:"final_price"`
	Turns      []Turn   `json:"turns"`
	Reason     *string  `json:"reason"`
}
