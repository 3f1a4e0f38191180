package oracle

import (
	"sync"

	"github.com/agentmarket/internal/negotiation"
)

// BuildFunc creates the proposer for one party
type BuildFunc func(role negotiation.Role, partyID string) negotiation.Proposer

// Factory hands out one proposer per party and reuses it across negotiations
type Factory struct {
	mu    sync.Mutex
	build BuildFunc
	cache map[string]negotiation.Proposer
}

// NewFactory creates a factory backed by build
func NewFactory(build BuildFunc) *Factory {
	return &Factory{build: build, cache: make(map[string]negotiation.Proposer)}
}

// Shared returns a factory that gives every party the same proposer
func Shared(p negotiation.Proposer) *Factory {
	return NewFactory(func(negotiation.Role, string) negotiation.Proposer { return p })
}

// For returns the proposer for a party, building it on first use
func (f *Factory) For(role negotiation.Role, partyID string) negotiation.Proposer {
	key := string(role) + ":" + partyID

	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.cache[key]; ok {
		return p
	}
	p := f.build(role, partyID)
	f.cache[key] = p
	return p
}

// Forget drops a cached proposer so the next For call rebuilds it
func (f *Factory) Forget(role negotiation.Role, partyID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cache, string(role)+":"+partyID)
}
