package market_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/oracle"
)

func TestExecuteAutomatedSession(t *testing.T) {
	ctx := context.Background()

	t.Run("reaches a deal after a seller target override", func(t *testing.T) {
		m := newManager(t, parties{
			"b1": oracle.NewScripted(900, 920),
			"s1": oracle.NewScripted(900),
		}, market.DefaultOptions())
		idle := buyer("b0", 900)
		gone := buyer("b2", 900, "s1")
		gone.Active = false
		s := createSession(t, m,
			[]market.BuyerConfig{idle, buyer("b1", 1000, "s1"), gone},
			[]market.SellerConfig{seller("s1", 1000, 800)},
		)

		res, err := m.ExecuteAutomatedSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, res.SessionID)
		require.Len(t, res.Deals, 1)
		assert.Equal(t, "b1", res.Deals[0].BuyerID)
		assert.Equal(t, "s1", res.Deals[0].SellerID)
		assert.Equal(t, 920.0, res.Deals[0].FinalPrice)
		assert.Equal(t, 3, res.Deals[0].Rounds)
		assert.Empty(t, res.Deadlocks)
		assert.Empty(t, res.Switches)
		assert.Equal(t, 3, res.TotalRounds)

		got, err := m.GetSession(ctx, s.ID)
		require.NoError(t, err)
		deal, ok := got.Completed(res.Deals[0].NegotiationID)
		require.True(t, ok)
		assert.Equal(t, "I can't do that, but I can meet you here.", deal.Turns[1].Message)
		assert.Equal(t, 920.0, deal.Turns[1].Offer)
	})

	t.Run("closes negotiations that exceed max rounds", func(t *testing.T) {
		m := newManager(t, parties{
			"b1": oracle.NewScripted(700, 710, 720, 730),
			"s1": oracle.NewScripted(990, 980, 970, 960),
		}, market.Options{MaxRoundsPerNegotiation: 4})
		s := createSession(t, m,
			[]market.BuyerConfig{buyer("b1", 900, "s1")},
			[]market.SellerConfig{seller("s1", 1000, 800)},
		)

		res, err := m.ExecuteAutomatedSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, res.Deals)
		require.Len(t, res.Deadlocks, 1)
		assert.Equal(t, market.Deadlock{
			BuyerID:       "b1",
			SellerID:      "s1",
			NegotiationID: res.Deadlocks[0].NegotiationID,
			Rounds:        4,
			Reason:        market.ReasonMaxRoundsExceeded,
		}, res.Deadlocks[0])
		assert.Equal(t, 4, res.TotalRounds)

		got, err := m.GetSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Empty(t, got.ActiveNegotiations)
		assert.True(t, got.Buyers["b1"].Active, "a deadlock leaves the buyer active")
	})

	t.Run("switches away from an overpriced seller", func(t *testing.T) {
		m := newManager(t, parties{
			"b1": oracle.NewScripted(700, 710, 720, 730),
			"s1": oracle.NewScripted(1000),
			"s2": oracle.NewScripted(730),
		}, market.DefaultOptions())
		b := buyer("b1", 800, "s1", "s2")
		patience := 4
		b.Patience = &patience
		s := createSession(t, m,
			[]market.BuyerConfig{b},
			[]market.SellerConfig{seller("s1", 1000, 950), seller("s2", 800, 700)},
		)

		res, err := m.ExecuteAutomatedSession(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, []market.Switch{{BuyerID: "b1", FromSeller: "s1", ToSeller: "s2", RoundsBeforeSwitch: 3}}, res.Switches)
		require.Len(t, res.Deals, 1)
		assert.Equal(t, "s2", res.Deals[0].SellerID)
		assert.Equal(t, 730.0, res.Deals[0].FinalPrice)
		assert.Equal(t, 6, res.TotalRounds)

		got, err := m.GetSession(ctx, s.ID)
		require.NoError(t, err)
		var switched int
		for _, st := range got.CompletedNegotiations {
			if st.Status == negotiation.StatusSwitched {
				switched++
				assert.Equal(t, "s1", st.SellerID)
			}
		}
		assert.Equal(t, 1, switched)
	})

	t.Run("unknown session", func(t *testing.T) {
		m := newManager(t, nil, market.DefaultOptions())
		_, err := m.ExecuteAutomatedSession(ctx, "missing")
		assert.ErrorIs(t, err, market.ErrSessionNotFound)
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		m := newManager(t, nil, market.DefaultOptions())
		s := createSession(t, m,
			[]market.BuyerConfig{buyer("b1", 900, "s1")},
			[]market.SellerConfig{seller("s1", 1000, 800)},
		)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		_, err := m.ExecuteAutomatedSession(cctx, s.ID)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
