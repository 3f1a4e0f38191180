package market

import (
	"slices"
	"time"

	"github.com/agentmarket/internal/negotiation"
)

// BuyerConfig is one buyer taking part in a session
type BuyerConfig struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name,omitempty"`
	MaxPrice            float64  `json:"max_price"`
	InterestedSellerIDs []string `json:"interested_seller_ids"`
	Patience            *int     `json:"patience,omitempty"`
	Active              bool     `json:"active"`
}

// SellerConfig is one seller and the item it lists
type SellerConfig struct {
	ID           string              `json:"id"`
	Name         string              `json:"name,omitempty"`
	ListingID    string              `json:"listing_id,omitempty"`
	Product      negotiation.Product `json:"product"`
	MinPrice     float64             `json:"min_price"`
	OpeningOffer *float64            `json:"opening_offer,omitempty"`
	Patience     *int                `json:"patience,omitempty"`
	Active       bool                `json:"active"`
}

// MarketplaceContext is the live supply and demand picture shared by a session's negotiations
type MarketplaceContext struct {
	TotalActiveBuyers     int       `json:"total_active_buyers"`
	TotalActiveSellers    int       `json:"total_active_sellers"`
	ActiveNegotiations    int       `json:"active_negotiations_count"`
	RecentCompletedPrices []float64 `json:"recent_completed_prices"`
}

// Session owns a set of buyers and sellers and every negotiation between them
type Session struct {
	ID                    string                        `json:"session_id"`
	Buyers                map[string]BuyerConfig        `json:"buyers"`
	Sellers               map[string]SellerConfig       `json:"sellers"`
	ActiveNegotiations    map[string]*negotiation.State `json:"active_negotiations"`
	CompletedNegotiations []*negotiation.State          `json:"completed_negotiations"`
	Market                MarketplaceContext            `json:"marketplace_context"`
	CreatedAt             time.Time                     `json:"created_at"`
	UpdatedAt             time.Time                     `json:"updated_at"`

	// Version is bumped by every successful repository update
	Version int64 `json:"version"`
}

// CreateSessionRequest registers the parties of a new session
type CreateSessionRequest struct {
	Buyers  []BuyerConfig  `json:"buyers"`
	Sellers []SellerConfig `json:"sellers"`
}

// TurnResult is the outcome of one ExecuteTurn call
type TurnResult struct {
	Negotiation *negotiation.State `json:"negotiation"`
	Turns       []negotiation.Turn `json:"turns"`
}

// Clone returns a deep copy of the session
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s

	c.Buyers = make(map[string]BuyerConfig, len(s.Buyers))
	for id, b := range s.Buyers {
		b.InterestedSellerIDs = slices.Clone(b.InterestedSellerIDs)
		b.Patience = clonePtr(b.Patience)
		c.Buyers[id] = b
	}

	c.Sellers = make(map[string]SellerConfig, len(s.Sellers))
	for id, sl := range s.Sellers {
		sl.OpeningOffer = clonePtr(sl.OpeningOffer)
		sl.Patience = clonePtr(sl.Patience)
		c.Sellers[id] = sl
	}

	c.ActiveNegotiations = make(map[string]*negotiation.State, len(s.ActiveNegotiations))
	for id, st := range s.ActiveNegotiations {
		c.ActiveNegotiations[id] = st.Clone()
	}

	c.CompletedNegotiations = make([]*negotiation.State, len(s.CompletedNegotiations))
	for i, st := range s.CompletedNegotiations {
		c.CompletedNegotiations[i] = st.Clone()
	}

	c.Market.RecentCompletedPrices = slices.Clone(s.Market.RecentCompletedPrices)
	return &c
}

// Completed returns a completed negotiation by id
func (s *Session) Completed(id string) (*negotiation.State, bool) {
	for _, st := range s.CompletedNegotiations {
		if st.ID == id {
			return st, true
		}
	}
	return nil, false
}

// recompute refreshes the derived market counts after parties or negotiations change
func (s *Session) recompute() {
	s.Market.TotalActiveBuyers = 0
	for _, b := range s.Buyers {
		if b.Active {
			s.Market.TotalActiveBuyers++
		}
	}
	s.Market.TotalActiveSellers = 0
	for _, sl := range s.Sellers {
		if sl.Active {
			s.Market.TotalActiveSellers++
		}
	}
	s.Market.ActiveNegotiations = len(s.ActiveNegotiations)
}

func (s *Session) activeBetween(buyerID, sellerID string) (*negotiation.State, bool) {
	for _, st := range s.ActiveNegotiations {
		if st.BuyerID == buyerID && st.SellerID == sellerID {
			return st, true
		}
	}
	return nil, false
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
