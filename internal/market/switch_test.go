package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmarket/internal/negotiation"
)

func TestShouldSwitchSeller(t *testing.T) {
	tests := []struct {
		name string
		sig  SwitchSignal
		want bool
	}{
		{
			name: "no alternatives never switches",
			sig:  SwitchSignal{StallCount: 5, HasAlternatives: false},
			want: false,
		},
		{
			name: "stalled seller",
			sig:  SwitchSignal{StallCount: 3, HasAlternatives: true},
			want: true,
		},
		{
			name: "overpriced late in the negotiation",
			sig: SwitchSignal{
				SellerOffers:    []float64{1000},
				RoundsLeft:      3,
				BuyerMaxPrice:   800,
				HasAlternatives: true,
			},
			want: true,
		},
		{
			name: "overpriced but plenty of rounds left",
			sig: SwitchSignal{
				SellerOffers:    []float64{1000},
				RoundsLeft:      8,
				BuyerMaxPrice:   800,
				HasAlternatives: true,
			},
			want: false,
		},
		{
			name: "seller barely moves while buyer keeps conceding",
			sig: SwitchSignal{
				BuyerOffers:     []float64{600, 650, 700, 750},
				SellerOffers:    []float64{1000, 995, 990},
				RoundsLeft:      8,
				BuyerMaxPrice:   900,
				HasAlternatives: true,
			},
			want: true,
		},
		{
			name: "seller reciprocates",
			sig: SwitchSignal{
				BuyerOffers:     []float64{600, 650, 700, 750},
				SellerOffers:    []float64{1000, 950, 900},
				RoundsLeft:      8,
				BuyerMaxPrice:   900,
				HasAlternatives: true,
			},
			want: false,
		},
		{
			name: "too few buyer concessions",
			sig: SwitchSignal{
				BuyerOffers:     []float64{600, 700},
				SellerOffers:    []float64{1000, 1000},
				RoundsLeft:      8,
				BuyerMaxPrice:   900,
				HasAlternatives: true,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldSwitchSeller(tt.sig))
		})
	}
}

func TestMarketSummary(t *testing.T) {
	s := &Session{Market: MarketplaceContext{
		TotalActiveBuyers:     4,
		TotalActiveSellers:    2,
		ActiveNegotiations:    3,
		RecentCompletedPrices: []float64{950, 1020.5},
	}}

	assert.Equal(t,
		"Market: 2 sellers available, 4 buyers competing. Active negotiations: 3. Recent sale prices: $950, $1020.5.",
		marketSummary(s, negotiation.RoleBuyer))

	s.Market.RecentCompletedPrices = nil
	assert.Equal(t,
		"Market: 4 buyers interested, 2 sellers competing. Active negotiations: 3.",
		marketSummary(s, negotiation.RoleSeller))
}

func TestSessionClone(t *testing.T) {
	p := 4
	s := &Session{
		Buyers:             map[string]BuyerConfig{"b": {ID: "b", InterestedSellerIDs: []string{"s"}, Patience: &p}},
		Sellers:            map[string]SellerConfig{},
		ActiveNegotiations: map[string]*negotiation.State{"n": {ID: "n", Turns: []negotiation.Turn{{Offer: 1}}}},
	}
	c := s.Clone()
	*c.Buyers["b"].Patience = 9
	c.Buyers["b"].InterestedSellerIDs[0] = "x"
	c.ActiveNegotiations["n"].Turns[0].Offer = 2

	assert.Equal(t, 4, *s.Buyers["b"].Patience)
	assert.Equal(t, "s", s.Buyers["b"].InterestedSellerIDs[0])
	assert.Equal(t, 1.0, s.ActiveNegotiations["n"].Turns[0].Offer)
}
