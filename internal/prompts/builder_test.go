package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentmarket/internal/negotiation"
)

func baseContext(role negotiation.Role) negotiation.RoleContext {
	return negotiation.RoleContext{
		NegotiationID:        "n1",
		Role:                 role,
		Product:              negotiation.Product{Name: "Road Bike", Description: "Carbon frame", ListingPrice: 1500},
		Bound:                1200,
		CounterpartLastOffer: 1500,
		RoundsLeft:           10,
		Leverage:             negotiation.LeverageHigh,
		Market:               negotiation.MarketContext{ActiveCompetitorSellers: 4, ActiveInterestedBuyers: 1},
	}
}

func TestBuildOfferPromptBuyer(t *testing.T) {
	rc := baseContext(negotiation.RoleBuyer)
	rc.AnchorOffer = 1000

	got := NewBuilder().BuildOfferPrompt(rc)

	assert.Contains(t, got, BuyerRole)
	assert.Contains(t, got, "Road Bike")
	assert.Contains(t, got, "Carbon frame")
	assert.Contains(t, got, "maximum budget is $1200")
	assert.Contains(t, got, "HIGH leverage")
	assert.Contains(t, got, "No offers have been made yet.")
	assert.Contains(t, got, "The seller's current offer is $1500.")
	assert.Contains(t, got, "Consider opening around $1000.")
	assert.Contains(t, got, JSONStructure)
	assert.NotContains(t, got, UrgencyNotice)
}

func TestBuildOfferPromptSeller(t *testing.T) {
	rc := baseContext(negotiation.RoleSeller)
	rc.Bound = 900
	rc.CounterpartLastOffer = 1000
	rc.RoundsLeft = 2
	rc.Leverage = negotiation.LeverageLow
	rc.MarketSummary = "Recent sale prices: $1100"
	rc.Transcript = []negotiation.Turn{
		{Round: 1, Agent: negotiation.RoleBuyer, Offer: 1000, Message: "Would you take 1000?"},
	}

	got := NewBuilder().BuildOfferPrompt(rc)

	assert.Contains(t, got, SellerRole)
	assert.Contains(t, got, "minimum acceptable price is $900")
	assert.Contains(t, got, "LOW leverage")
	assert.Contains(t, got, `Round 1 - buyer: $1000 ("Would you take 1000?")`)
	assert.Contains(t, got, "The buyer's current offer is $1000.")
	assert.Contains(t, got, "Recent sale prices: $1100")
	assert.Contains(t, got, UrgencyNotice)
	assert.NotContains(t, got, "Consider opening")
}

func TestHistoryLimit(t *testing.T) {
	b := &Builder{HistoryLimit: 1}
	got := b.history([]negotiation.Turn{
		{Round: 1, Agent: negotiation.RoleBuyer, Offer: 800},
		{Round: 2, Agent: negotiation.RoleSeller, Offer: 1400},
	})
	assert.Equal(t, "Round 2 - seller: $1400\n", got)
}
