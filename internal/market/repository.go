package market

import (
	"context"

	"github.com/agentmarket/internal/negotiation"
)

// Repository persists sessions. Implementations must hand out copies that share no memory
// with what they store, and report missing sessions with ErrSessionNotFound.
// UpdateSession only succeeds when s.Version matches the stored version; it then increments
// s.Version. A mismatch is reported with ErrSessionConflict.
type Repository interface {
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	UpdateSession(ctx context.Context, s *Session) error
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*Session, error)
}

// ListingStore resolves catalog listings into products
type ListingStore interface {
	GetListing(ctx context.Context, id string) (negotiation.Product, error)
}

// ProposerSource hands out the offer oracle for a party.
// Forget is called once a party leaves the market so per-party state can be released.
type ProposerSource interface {
	For(role negotiation.Role, partyID string) negotiation.Proposer
	Forget(role negotiation.Role, partyID string)
}
