package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agentmarket/internal/market"
)

// ErrNotFound is reported for missing sessions by every repository in this package
var ErrNotFound = market.ErrSessionNotFound

// Memory is an in-process session repository. It stores and returns deep copies.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*market.Session
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*market.Session)}
}

func (m *Memory) CreateSession(ctx context.Context, s *market.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) GetSession(ctx context.Context, id string) (*market.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *Memory) UpdateSession(ctx context.Context, s *market.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.sessions[s.ID]
	if !ok {
		return fmt.Errorf("session %s: %w", s.ID, ErrNotFound)
	}
	if stored.Version != s.Version {
		return fmt.Errorf("session %s at version %d, stored %d: %w", s.ID, s.Version, stored.Version, market.ErrSessionConflict)
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *Memory) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	delete(m.sessions, id)
	return nil
}

// ListSessions returns every session, oldest first
func (m *Memory) ListSessions(ctx context.Context) ([]*market.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*market.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
