package negotiation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineNegotiate(t *testing.T) {
	req := Request{
		Product:        Product{Name: "Phone", ListingPrice: 950},
		SellerMinPrice: 900,
		BuyerMaxPrice:  1000,
	}

	var observed []Turn
	e := NewEngine(script(950), script(940))
	e.OnTurn = func(turn Turn) { observed = append(observed, turn) }

	res, err := e.Negotiate(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, res.Agreed)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, 950.0, *res.FinalPrice)
	assert.Equal(t, res.Turns, observed)
	require.NotNil(t, res.Reason)
}

func TestEngineRejectsInvalidRequest(t *testing.T) {
	e := NewEngine(script(1), script(1))
	_, err := e.Negotiate(context.Background(), Request{Product: Product{Name: "x"}})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestEngineCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewEngine(script(500), script(1500))
	_, err := e.Negotiate(ctx, Request{
		Product:        Product{Name: "Bike", ListingPrice: 1500},
		SellerMinPrice: 1200,
		BuyerMaxPrice:  800,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineCancelledDuringTurn(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a human who closes the input mid-turn
	quitter := ProposerFunc(func(ctx context.Context, rc RoleContext) (Proposal, error) {
		cancel()
		return Proposal{}, context.Canceled
	})
	var observed []Turn
	e := NewEngine(quitter, script(1000))
	e.OnTurn = func(turn Turn) { observed = append(observed, turn) }

	res, err := e.Negotiate(ctx, Request{
		Product:        Product{Name: "Bike", ListingPrice: 1000},
		SellerMinPrice: 800,
		BuyerMaxPrice:  1100,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
	assert.Empty(t, observed)
}

func TestEngineWithHuman(t *testing.T) {
	human := ProposerFunc(func(ctx context.Context, rc RoleContext) (Proposal, error) {
		return Proposal{Accept: true}, nil
	})
	e := NewEngine(script(700), script(990))
	withHuman := e.WithHuman(RoleSeller, human)

	res, err := withHuman.Negotiate(context.Background(), Request{
		Product:                Product{Name: "Guitar", ListingPrice: 1000},
		SellerMinPrice:         600,
		BuyerMaxPrice:          900,
		ActiveInterestedBuyers: 5,
	})
	require.NoError(t, err)
	assert.True(t, res.Agreed)
	require.NotNil(t, res.FinalPrice)
	assert.Equal(t, 700.0, *res.FinalPrice)

	res, err = e.Negotiate(context.Background(), Request{
		Product:                Product{Name: "Guitar", ListingPrice: 1000},
		SellerMinPrice:         600,
		BuyerMaxPrice:          900,
		ActiveInterestedBuyers: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, RoleSeller, res.Turns[1].Agent)
	assert.Equal(t, 990.0, res.Turns[1].Offer)
}

func TestRequestSetupCarriesOverrides(t *testing.T) {
	opening := 1100.0
	anchor := 700.0
	req := Request{
		Product:                 Product{Name: "Desk", ListingPrice: 1000},
		SellerMinPrice:          800,
		BuyerMaxPrice:           950,
		ActiveCompetitorSellers: 2,
		ActiveInterestedBuyers:  4,
		InitialSellerOffer:      &opening,
		InitialBuyerOffer:       &anchor,
		BuyerPatience:           intPtr(3),
	}

	s, err := Open(req.Setup("abc"))
	require.NoError(t, err)
	assert.Equal(t, "abc", s.ID)
	assert.Equal(t, 1100.0, s.OpeningOffer)
	assert.Equal(t, 700.0, s.BuyerAnchor)
	assert.Equal(t, 3, s.BuyerPatience)
	assert.Equal(t, InitialPatience(LeverageHigh), s.SellerPatience)
	assert.Equal(t, MarketContext{ActiveCompetitorSellers: 2, ActiveInterestedBuyers: 4}, s.Market)
}
