package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/agentmarket/internal/negotiation"
)

// ErrListingNotFound is returned when a listing id is unknown
var ErrListingNotFound = errors.New("storage: listing not found")

// Listing is one catalog entry
type Listing struct {
	ID          string  `json:"id" koanf:"id"`
	Name        string  `json:"name" koanf:"name"`
	Description string  `json:"description" koanf:"description"`
	Price       float64 `json:"listing_price" koanf:"listing_price"`
}

// Product converts the listing into a negotiable product
func (l Listing) Product() negotiation.Product {
	return negotiation.Product{Name: l.Name, Description: l.Description, ListingPrice: l.Price}
}

// SampleListings is the demo catalog written by `db seed`
var SampleListings = []Listing{
	{ID: "laptop-pro-14", Name: "Laptop Pro 14", Description: "14-inch laptop, 16GB RAM, 512GB SSD, lightly used", Price: 1200},
	{ID: "road-bike-56", Name: "Road Bike 56cm", Description: "Aluminium frame road bike with carbon fork", Price: 850},
	{ID: "espresso-machine", Name: "Espresso Machine", Description: "Dual boiler espresso machine, two years old", Price: 650},
	{ID: "camera-kit", Name: "Mirrorless Camera Kit", Description: "24MP body with 18-55mm lens", Price: 900},
	{ID: "standing-desk", Name: "Standing Desk", Description: "Electric sit/stand desk, 160x80cm", Price: 450},
}

// NewDB opens the listing catalog database
func NewDB(databaseURL string) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is empty")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	return db, nil
}

// SQLListings reads listings from the catalog table
type SQLListings struct {
	db *sql.DB
}

// NewSQLListings creates a catalog store over db
func NewSQLListings(db *sql.DB) *SQLListings {
	return &SQLListings{db: db}
}

// GetListing implements market.ListingStore
func (l *SQLListings) GetListing(ctx context.Context, id string) (negotiation.Product, error) {
	var item Listing
	err := l.db.QueryRowContext(ctx,
		`SELECT id, name, description, listing_price FROM listings WHERE id = $1`, id,
	).Scan(&item.ID, &item.Name, &item.Description, &item.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return negotiation.Product{}, fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
	}
	if err != nil {
		return negotiation.Product{}, fmt.Errorf("query listing %s: %w", id, err)
	}
	return item.Product(), nil
}

// Seed upserts listings and returns how many rows were written
func (l *SQLListings) Seed(ctx context.Context, items []Listing) (int, error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	n := 0
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO listings (id, name, description, listing_price)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, description = EXCLUDED.description, listing_price = EXCLUDED.listing_price
		`, item.ID, item.Name, item.Description, item.Price)
		if err != nil {
			return n, fmt.Errorf("seed listing %s: %w", item.ID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed: %w", err)
	}
	return n, nil
}

// StaticListings is an in-memory catalog
type StaticListings map[string]Listing

// NewStaticListings indexes items by id
func NewStaticListings(items []Listing) StaticListings {
	out := make(StaticListings, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out
}

// GetListing implements market.ListingStore
func (s StaticListings) GetListing(ctx context.Context, id string) (negotiation.Product, error) {
	item, ok := s[id]
	if !ok {
		return negotiation.Product{}, fmt.Errorf("listing %s: %w", id, ErrListingNotFound)
	}
	return item.Product(), nil
}

// IDs returns the catalog ids in sorted order
func (s StaticListings) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
