package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
)

func sampleSession(id string, created time.Time) *market.Session {
	return &market.Session{
		ID: id,
		Buyers: map[string]market.BuyerConfig{
			"b1": {ID: "b1", MaxPrice: 900, InterestedSellerIDs: []string{"s1"}, Active: true},
		},
		Sellers: map[string]market.SellerConfig{
			"s1": {ID: "s1", Product: negotiation.Product{Name: "Bike", ListingPrice: 1000}, MinPrice: 800, Active: true},
		},
		ActiveNegotiations: map[string]*negotiation.State{
			"n1": {ID: "n1", BuyerID: "b1", SellerID: "s1", Status: negotiation.StatusActive,
				Turns: []negotiation.Turn{{Round: 1, Agent: negotiation.RoleBuyer, Offer: 700, Message: "hi"}}},
		},
		Market:    market.MarketplaceContext{TotalActiveBuyers: 1, TotalActiveSellers: 1, RecentCompletedPrices: []float64{850}},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestMemoryIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	s := sampleSession("a", time.Now())
	require.NoError(t, repo.CreateSession(ctx, s))

	// mutating the caller's value after create must not leak into storage
	s.Buyers["b1"] = market.BuyerConfig{ID: "b1", MaxPrice: 1}
	s.ActiveNegotiations["n1"].Turns[0].Offer = 1

	got, err := repo.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.Buyers["b1"].MaxPrice)
	assert.Equal(t, 700.0, got.ActiveNegotiations["n1"].Turns[0].Offer)

	// nor may mutating a loaded copy
	got.Buyers["b1"].InterestedSellerIDs[0] = "zzz"
	got.Market.RecentCompletedPrices[0] = 1
	again, err := repo.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, again.Buyers["b1"].InterestedSellerIDs)
	assert.Equal(t, []float64{850}, again.Market.RecentCompletedPrices)
}

func TestMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.CreateSession(ctx, sampleSession("second", base.Add(time.Minute))))
	require.NoError(t, repo.CreateSession(ctx, sampleSession("first", base)))
	assert.Error(t, repo.CreateSession(ctx, sampleSession("first", base)))

	list, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].ID)
	assert.Equal(t, "second", list[1].ID)

	s := sampleSession("first", base)
	s.Market.TotalActiveBuyers = 0
	require.NoError(t, repo.UpdateSession(ctx, s))
	got, err := repo.GetSession(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Market.TotalActiveBuyers)

	require.NoError(t, repo.DeleteSession(ctx, "first"))
	_, err = repo.GetSession(ctx, "first")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, market.ErrSessionNotFound)
	assert.ErrorIs(t, repo.DeleteSession(ctx, "first"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateSession(ctx, sampleSession("missing", base)), ErrNotFound)
}

func TestMemoryRejectsStaleUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	require.NoError(t, repo.CreateSession(ctx, sampleSession("a", time.Now())))

	first, err := repo.GetSession(ctx, "a")
	require.NoError(t, err)
	second, err := repo.GetSession(ctx, "a")
	require.NoError(t, err)

	first.Market.RecentCompletedPrices = append(first.Market.RecentCompletedPrices, 900)
	require.NoError(t, repo.UpdateSession(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Market.TotalActiveBuyers = 0
	err = repo.UpdateSession(ctx, second)
	assert.ErrorIs(t, err, market.ErrSessionConflict)
	assert.Equal(t, int64(0), second.Version)

	got, err := repo.GetSession(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float64{850, 900}, got.Market.RecentCompletedPrices)
	assert.Equal(t, 1, got.Market.TotalActiveBuyers)

	// a second update from the same writer keeps working
	first.Market.TotalActiveBuyers = 0
	require.NoError(t, repo.UpdateSession(ctx, first))
	assert.Equal(t, int64(2), first.Version)
}

func TestStaticListings(t *testing.T) {
	store := NewStaticListings(SampleListings)

	p, err := store.GetListing(context.Background(), "road-bike-56")
	require.NoError(t, err)
	assert.Equal(t, "Road Bike 56cm", p.Name)
	assert.Equal(t, 850.0, p.ListingPrice)

	_, err = store.GetListing(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrListingNotFound)

	assert.Len(t, store.IDs(), len(SampleListings))
	assert.Equal(t, "camera-kit", store.IDs()[0])
}
