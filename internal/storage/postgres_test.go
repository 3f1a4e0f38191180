package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/agentmarket/internal/market"
)

// postgresDSN returns a database for integration tests, starting a container unless
// AGENTMARKET_TEST_PG_DSN points at an existing one
func postgresDSN(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	if dsn := os.Getenv("AGENTMARKET_TEST_PG_DSN"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	pgC, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("agentmarket"),
		postgres.WithUsername("agentmarket"),
		postgres.WithPassword("agentmarket"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresRepository(t *testing.T) {
	dsn := postgresDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))
	require.NoError(t, Migrate(ctx, pool), "migrations must be re-runnable")

	repo := NewPostgres(pool)
	created := time.Now().UTC().Truncate(time.Microsecond)
	s := sampleSession("pg-1", created)
	require.NoError(t, repo.CreateSession(ctx, s))

	got, err := repo.GetSession(ctx, "pg-1")
	require.NoError(t, err)
	if diff := cmp.Diff(s.ActiveNegotiations, got.ActiveNegotiations); diff != "" {
		t.Errorf("negotiations mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, s.Buyers, got.Buyers)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))

	got.Market.RecentCompletedPrices = append(got.Market.RecentCompletedPrices, 900)
	require.NoError(t, repo.UpdateSession(ctx, got))
	again, err := repo.GetSession(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, []float64{850, 900}, again.Market.RecentCompletedPrices)
	assert.Equal(t, int64(1), again.Version)

	// got was read before the update above and is now stale
	got.Version = 0
	got.Market.TotalActiveBuyers = 7
	assert.ErrorIs(t, repo.UpdateSession(ctx, got), market.ErrSessionConflict)
	assert.Equal(t, int64(0), got.Version)
	unchanged, err := repo.GetSession(ctx, "pg-1")
	require.NoError(t, err)
	assert.Equal(t, again.Market, unchanged.Market)

	missing := sampleSession("pg-missing", created)
	assert.ErrorIs(t, repo.UpdateSession(ctx, missing), ErrNotFound)

	list, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, list)

	require.NoError(t, repo.DeleteSession(ctx, "pg-1"))
	_, err = repo.GetSession(ctx, "pg-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLListings(t *testing.T) {
	dsn := postgresDSN(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, Migrate(ctx, pool))

	db, err := NewDB(dsn)
	require.NoError(t, err)
	defer db.Close()

	store := NewSQLListings(db)
	n, err := store.Seed(ctx, SampleListings)
	require.NoError(t, err)
	assert.Equal(t, len(SampleListings), n)

	p, err := store.GetListing(ctx, "laptop-pro-14")
	require.NoError(t, err)
	assert.Equal(t, 1200.0, p.ListingPrice)

	_, err = store.GetListing(ctx, "missing")
	assert.ErrorIs(t, err, ErrListingNotFound)
}
