package market

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/negotiation"
)

// Deal is an agreed negotiation in an automated run
type Deal struct {
	BuyerID       string  `json:"buyer_id"`
	SellerID      string  `json:"seller_id"`
	NegotiationID string  `json:"negotiation_id"`
	FinalPrice    float64 `json:"final_price"`
	Rounds        int     `json:"rounds"`
}

// Deadlock is a negotiation that ended without agreement in an automated run
type Deadlock struct {
	BuyerID       string `json:"buyer_id"`
	SellerID      string `json:"seller_id"`
	NegotiationID string `json:"negotiation_id,omitempty"`
	Rounds        int    `json:"rounds"`
	Reason        string `json:"reason"`
}

// Switch records a buyer moving to another seller
type Switch struct {
	BuyerID            string `json:"buyer_id"`
	FromSeller         string `json:"from_seller"`
	ToSeller           string `json:"to_seller"`
	RoundsBeforeSwitch int    `json:"rounds_before_switch"`
}

// AutomationResult summarizes an automated session run
type AutomationResult struct {
	SessionID   string     `json:"session_id"`
	Deals       []Deal     `json:"deals_made"`
	Deadlocks   []Deadlock `json:"deadlocks"`
	Switches    []Switch   `json:"switches"`
	TotalRounds int        `json:"total_rounds"`
}

// ExecuteAutomatedSession negotiates on behalf of every active buyer with declared interests.
// Buyers run one after another; a failure for one buyer is recorded as a deadlock and the run continues.
func (m *Manager) ExecuteAutomatedSession(ctx context.Context, sessionID string) (*AutomationResult, error) {
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := &AutomationResult{
		SessionID: sessionID,
		Deals:     []Deal{},
		Deadlocks: []Deadlock{},
		Switches:  []Switch{},
	}

	buyerIDs := make([]string, 0, len(s.Buyers))
	for id := range s.Buyers {
		buyerIDs = append(buyerIDs, id)
	}
	slices.Sort(buyerIDs)

	for _, buyerID := range buyerIDs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := m.runBuyer(ctx, sessionID, buyerID, res); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			log.Warn().Err(err).
				Str("session_id", sessionID).
				Str("buyer_id", buyerID).
				Msg("Automated negotiation failed for buyer")
			res.Deadlocks = append(res.Deadlocks, Deadlock{
				BuyerID: buyerID,
				Reason:  fmt.Sprintf("Negotiation ended without agreement: error: %v", err),
			})
		}
	}

	log.Info().
		Str("session_id", sessionID).
		Int("deals", len(res.Deals)).
		Int("deadlocks", len(res.Deadlocks)).
		Int("switches", len(res.Switches)).
		Int("total_rounds", res.TotalRounds).
		Msg("Automated session finished")

	return res, nil
}

func (m *Manager) runBuyer(ctx context.Context, sessionID, buyerID string, res *AutomationResult) error {
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	b := s.Buyers[buyerID]
	if !b.Active || len(b.InterestedSellerIDs) == 0 {
		return nil
	}

	tried := map[string]bool{}
	sellerID, ok := nextSeller(s, b, tried, "")
	if !ok {
		return nil
	}
	tried[sellerID] = true

	st, err := m.StartNegotiation(ctx, sessionID, buyerID, sellerID)
	if err != nil {
		return err
	}

	for {
		if len(st.Turns) >= m.opts.MaxRoundsPerNegotiation {
			closed, err := m.abandon(ctx, sessionID, st.ID, ReasonMaxRoundsExceeded)
			if err != nil {
				return err
			}
			res.record(closed)
			return nil
		}

		tr, err := m.ExecuteTurn(ctx, sessionID, st.ID)
		if err != nil {
			return err
		}
		res.TotalRounds++
		st = tr.Negotiation

		if st.Status.Terminal() {
			res.record(st)
			return nil
		}

		if !m.opts.AllowSwitching || !actedLast(tr.Turns, negotiation.RoleBuyer) {
			continue
		}

		s, err := m.repo.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		alt, hasAlt := nextSeller(s, s.Buyers[buyerID], tried, st.SellerID)
		sig := SwitchSignal{
			BuyerOffers:     st.Offers(negotiation.RoleBuyer),
			SellerOffers:    st.Offers(negotiation.RoleSeller),
			StallCount:      st.BuyerStall,
			RoundsLeft:      st.BuyerPatience,
			BuyerMaxPrice:   st.BuyerMaxPrice,
			HasAlternatives: hasAlt,
		}
		if !ShouldSwitchSeller(sig) {
			continue
		}

		next, err := m.SwitchSeller(ctx, sessionID, buyerID, st.SellerID, alt)
		if errors.Is(err, ErrPartyInactive) {
			tried[alt] = true
			continue
		}
		if err != nil {
			return err
		}
		res.Switches = append(res.Switches, Switch{
			BuyerID:            buyerID,
			FromSeller:         st.SellerID,
			ToSeller:           alt,
			RoundsBeforeSwitch: len(st.Turns),
		})
		tried[alt] = true
		st = next
	}
}

// nextSeller picks the first active interested seller the buyer has not tried yet
func nextSeller(s *Session, b BuyerConfig, tried map[string]bool, current string) (string, bool) {
	for _, id := range b.InterestedSellerIDs {
		if id == current || tried[id] {
			continue
		}
		if sl, ok := s.Sellers[id]; ok && sl.Active {
			return id, true
		}
	}
	return "", false
}

func actedLast(turns []negotiation.Turn, role negotiation.Role) bool {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Agent != negotiation.RoleSystem {
			return turns[i].Agent == role
		}
	}
	return false
}

func (r *AutomationResult) record(st *negotiation.State) {
	if st.Agreed {
		r.Deals = append(r.Deals, Deal{
			BuyerID:       st.BuyerID,
			SellerID:      st.SellerID,
			NegotiationID: st.ID,
			FinalPrice:    *st.FinalPrice,
			Rounds:        len(st.Turns),
		})
		return
	}
	r.Deadlocks = append(r.Deadlocks, Deadlock{
		BuyerID:       st.BuyerID,
		SellerID:      st.SellerID,
		NegotiationID: st.ID,
		Rounds:        len(st.Turns),
		Reason:        st.Reason,
	})
}
