package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentmarket/internal/market"
	"github.com/agentmarket/internal/negotiation"
)

// NewPool constructs a pgx connection pool using the provided connection string.
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	if connString == "" {
		return nil, fmt.Errorf("storage: empty connection string")
	}

	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("storage: parse config: %w", err)
	}

	return pgxpool.NewWithConfig(ctx, cfg)
}

// Postgres stores whole sessions as JSONB documents
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a repository over an existing pool
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) CreateSession(ctx context.Context, s *market.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO marketplace_sessions (id, data, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, data, s.CreatedAt, s.UpdatedAt, s.Version)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", s.ID, err)
	}
	return nil
}

func (p *Postgres) GetSession(ctx context.Context, id string) (*market.Session, error) {
	var data []byte
	err := p.pool.QueryRow(ctx, `SELECT data FROM marketplace_sessions WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select session %s: %w", id, err)
	}
	return decodeSession(data)
}

// UpdateSession writes s if nobody else updated it since it was read
func (p *Postgres) UpdateSession(ctx context.Context, s *market.Session) error {
	expected := s.Version
	s.Version++
	data, err := json.Marshal(s)
	if err != nil {
		s.Version = expected
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE marketplace_sessions SET data = $2, updated_at = $3, version = $4
		WHERE id = $1 AND version = $5
	`, s.ID, data, s.UpdatedAt, s.Version, expected)
	if err != nil {
		s.Version = expected
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	s.Version = expected
	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM marketplace_sessions WHERE id = $1)`, s.ID).Scan(&exists); err != nil {
		return fmt.Errorf("update session %s: %w", s.ID, err)
	}
	if !exists {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	return fmt.Errorf("session %s at version %d: %w", s.ID, expected, market.ErrSessionConflict)
}

func (p *Postgres) DeleteSession(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM marketplace_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) ListSessions(ctx context.Context) ([]*market.Session, error) {
	rows, err := p.pool.Query(ctx, `SELECT data FROM marketplace_sessions ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*market.Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func decodeSession(data []byte) (*market.Session, error) {
	var s market.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if s.Buyers == nil {
		s.Buyers = map[string]market.BuyerConfig{}
	}
	if s.Sellers == nil {
		s.Sellers = map[string]market.SellerConfig{}
	}
	if s.ActiveNegotiations == nil {
		s.ActiveNegotiations = map[string]*negotiation.State{}
	}
	return &s, nil
}
