package market

import "errors"

var (
	ErrSessionNotFound      = errors.New("market: session not found")
	ErrInvalidSession       = errors.New("market: invalid session")
	ErrNegotiationNotFound  = errors.New("market: negotiation not found")
	ErrPartyNotFound        = errors.New("market: party not found")
	ErrPartyInactive        = errors.New("market: party inactive")
	ErrNotInterested        = errors.New("market: buyer not interested in seller")
	ErrDuplicateNegotiation = errors.New("market: negotiation already active for this pair")
	ErrSameSeller           = errors.New("market: new seller equals current seller")

	// ErrSessionConflict is returned when a session changed in storage since it was read
	ErrSessionConflict = errors.New("market: session modified concurrently")

	// ErrTurnInProgress is returned when a negotiation is already being stepped by another caller
	ErrTurnInProgress = errors.New("market: turn in progress")
)
