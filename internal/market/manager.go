package market

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/agentmarket/internal/negotiation"
)

// Reasons recorded by the manager on negotiations it closes itself
const (
	ReasonCounterpartyUnavailable = "Negotiation ended without agreement: counterparty no longer available."
	ReasonMaxRoundsExceeded       = "Negotiation ended without agreement: max rounds exceeded."
)

// recentPriceLimit caps how many completed prices the market context remembers
const recentPriceLimit = 10

// Options tunes a Manager
type Options struct {
	// Listings resolves SellerConfig.ListingID when the seller has no product attached
	Listings ListingStore

	MaxRoundsPerNegotiation int
	AllowSwitching          bool

	// Now defaults to time.Now
	Now func() time.Time
}

// DefaultOptions returns the manager defaults
func DefaultOptions() Options {
	return Options{
		MaxRoundsPerNegotiation: 20,
		AllowSwitching:          true,
	}
}

// Manager is the only component that mutates sessions.
// Offer oracles run without the session lock held; turn results are committed under it.
type Manager struct {
	repo      Repository
	proposers ProposerSource
	opts      Options

	mu       sync.Mutex
	locks    map[string]*sync.Mutex
	inFlight map[string]struct{}
}

// NewManager creates a session manager
func NewManager(repo Repository, proposers ProposerSource, opts Options) *Manager {
	if opts.MaxRoundsPerNegotiation <= 0 {
		opts.MaxRoundsPerNegotiation = DefaultOptions().MaxRoundsPerNegotiation
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		repo:      repo,
		proposers: proposers,
		opts:      opts,
		locks:     make(map[string]*sync.Mutex),
		inFlight:  make(map[string]struct{}),
	}
}

func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (m *Manager) claim(negotiationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.inFlight[negotiationID]; busy {
		return false
	}
	m.inFlight[negotiationID] = struct{}{}
	return true
}

func (m *Manager) release(negotiationID string) {
	m.mu.Lock()
	delete(m.inFlight, negotiationID)
	m.mu.Unlock()
}

func (m *Manager) busy(negotiationID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.inFlight[negotiationID]
	return ok
}

// CreateSession validates the parties and stores a new session
func (m *Manager) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	now := m.opts.Now()
	s := &Session{
		ID:                 uuid.NewString(),
		Buyers:             make(map[string]BuyerConfig, len(req.Buyers)),
		Sellers:            make(map[string]SellerConfig, len(req.Sellers)),
		ActiveNegotiations: make(map[string]*negotiation.State),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	var problems []string
	for _, sl := range req.Sellers {
		if sl.ID == "" {
			problems = append(problems, "seller id is required")
			continue
		}
		if _, dup := s.Sellers[sl.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate seller %q", sl.ID))
			continue
		}
		if sl.Product.ListingPrice <= 0 && sl.ListingID != "" && m.opts.Listings != nil {
			product, err := m.opts.Listings.GetListing(ctx, sl.ListingID)
			if err != nil {
				return nil, fmt.Errorf("seller %s: listing %s: %w", sl.ID, sl.ListingID, err)
			}
			sl.Product = product
		}
		if sl.Product.ListingPrice <= 0 {
			problems = append(problems, fmt.Sprintf("seller %q: listing_price must be > 0", sl.ID))
		}
		if sl.MinPrice <= 0 {
			problems = append(problems, fmt.Sprintf("seller %q: min_price must be > 0", sl.ID))
		}
		s.Sellers[sl.ID] = sl
	}

	for _, b := range req.Buyers {
		if b.ID == "" {
			problems = append(problems, "buyer id is required")
			continue
		}
		if _, dup := s.Buyers[b.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate buyer %q", b.ID))
			continue
		}
		if b.MaxPrice <= 0 {
			problems = append(problems, fmt.Sprintf("buyer %q: max_price must be > 0", b.ID))
		}
		for _, sid := range b.InterestedSellerIDs {
			if _, ok := s.Sellers[sid]; !ok {
				problems = append(problems, fmt.Sprintf("buyer %q: unknown seller %q", b.ID, sid))
			}
		}
		s.Buyers[b.ID] = b
	}

	if len(s.Buyers) == 0 || len(s.Sellers) == 0 {
		problems = append(problems, "a session needs at least one buyer and one seller")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSession, strings.Join(problems, "; "))
	}

	s = s.Clone()
	s.recompute()
	if err := m.repo.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Info().
		Str("session_id", s.ID).
		Int("buyers", len(s.Buyers)).
		Int("sellers", len(s.Sellers)).
		Msg("Marketplace session created")

	return s.Clone(), nil
}

// GetSession returns a copy of a session
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	return m.repo.GetSession(ctx, sessionID)
}

// ListSessions returns copies of every stored session
func (m *Manager) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.repo.ListSessions(ctx)
}

// DeleteSession removes a session
func (m *Manager) DeleteSession(ctx context.Context, sessionID string) error {
	unlock := m.lock(sessionID)
	defer unlock()

	if err := m.repo.DeleteSession(ctx, sessionID); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.locks, sessionID)
	m.mu.Unlock()
	return nil
}

// AddSellerInterest adds a seller to a buyer's interest list if it is not there already
func (m *Manager) AddSellerInterest(ctx context.Context, sessionID, buyerID, sellerID string) error {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	b, ok := s.Buyers[buyerID]
	if !ok {
		return fmt.Errorf("buyer %s: %w", buyerID, ErrPartyNotFound)
	}
	if _, ok := s.Sellers[sellerID]; !ok {
		return fmt.Errorf("seller %s: %w", sellerID, ErrPartyNotFound)
	}
	if slices.Contains(b.InterestedSellerIDs, sellerID) {
		return nil
	}
	b.InterestedSellerIDs = append(b.InterestedSellerIDs, sellerID)
	s.Buyers[buyerID] = b
	return m.save(ctx, s)
}

// StartNegotiation opens a negotiation between an active, interested buyer and an active seller
func (m *Manager) StartNegotiation(ctx context.Context, sessionID, buyerID, sellerID string) (*negotiation.State, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := m.open(s, buyerID, sellerID)
	if err != nil {
		return nil, err
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// open adds a new negotiation to s; the caller holds the session lock and saves s
func (m *Manager) open(s *Session, buyerID, sellerID string) (*negotiation.State, error) {
	b, ok := s.Buyers[buyerID]
	if !ok {
		return nil, fmt.Errorf("buyer %s: %w", buyerID, ErrPartyNotFound)
	}
	sl, ok := s.Sellers[sellerID]
	if !ok {
		return nil, fmt.Errorf("seller %s: %w", sellerID, ErrPartyNotFound)
	}
	if !b.Active {
		return nil, fmt.Errorf("buyer %s: %w", buyerID, ErrPartyInactive)
	}
	if !sl.Active {
		return nil, fmt.Errorf("seller %s: %w", sellerID, ErrPartyInactive)
	}
	if len(b.InterestedSellerIDs) > 0 && !slices.Contains(b.InterestedSellerIDs, sellerID) {
		return nil, fmt.Errorf("buyer %s, seller %s: %w", buyerID, sellerID, ErrNotInterested)
	}
	if _, dup := s.activeBetween(buyerID, sellerID); dup {
		return nil, fmt.Errorf("buyer %s, seller %s: %w", buyerID, sellerID, ErrDuplicateNegotiation)
	}

	st, err := negotiation.Open(negotiation.Setup{
		ID:             negotiationID(buyerID, sellerID),
		BuyerID:        buyerID,
		SellerID:       sellerID,
		Product:        sl.Product,
		BuyerMaxPrice:  b.MaxPrice,
		SellerMinPrice: sl.MinPrice,
		Market: negotiation.MarketContext{
			ActiveCompetitorSellers: s.Market.TotalActiveSellers,
			ActiveInterestedBuyers:  s.Market.TotalActiveBuyers,
		},
		OpeningOffer:   sl.OpeningOffer,
		BuyerPatience:  b.Patience,
		SellerPatience: sl.Patience,
	})
	if err != nil {
		return nil, err
	}

	s.ActiveNegotiations[st.ID] = st
	s.recompute()

	log.Info().
		Str("session_id", s.ID).
		Str("negotiation_id", st.ID).
		Str("buyer_leverage", string(st.BuyerLeverage)).
		Str("seller_leverage", string(st.SellerLeverage)).
		Msg("Negotiation started")

	return st, nil
}

func negotiationID(buyerID, sellerID string) string {
	return buyerID + "_" + sellerID + "_" + strings.ToLower(ulid.Make().String())
}

// ExecuteTurn advances one negotiation by a single step.
// The offer oracle runs outside the session lock so distinct negotiations progress concurrently.
func (m *Manager) ExecuteTurn(ctx context.Context, sessionID, negotiationID string) (*TurnResult, error) {
	unlock := m.lock(sessionID)
	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		unlock()
		return nil, err
	}
	st, ok := s.ActiveNegotiations[negotiationID]
	if !ok {
		unlock()
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, ErrNegotiationNotFound)
	}
	if !m.claim(negotiationID) {
		unlock()
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, ErrTurnInProgress)
	}
	defer m.release(negotiationID)

	summaries := map[negotiation.Role]string{
		negotiation.RoleBuyer:  marketSummary(s, negotiation.RoleBuyer),
		negotiation.RoleSeller: marketSummary(s, negotiation.RoleSeller),
	}
	unlock()

	proto := &negotiation.Protocol{
		Buyer:         m.proposers.For(negotiation.RoleBuyer, st.BuyerID),
		Seller:        m.proposers.For(negotiation.RoleSeller, st.SellerID),
		MarketSummary: func(r negotiation.Role) string { return summaries[r] },
	}
	turns, err := proto.Step(ctx, st)
	if err != nil {
		return nil, err
	}

	unlock = m.lock(sessionID)
	defer unlock()

	s, err = m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if _, still := s.ActiveNegotiations[negotiationID]; !still {
		// Closed while the oracle was running, e.g. a deal elsewhere deactivated a party
		if done, ok := s.Completed(negotiationID); ok {
			return &TurnResult{Negotiation: done.Clone()}, nil
		}
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, ErrNegotiationNotFound)
	}

	m.commit(s, st)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	return &TurnResult{Negotiation: st.Clone(), Turns: append([]negotiation.Turn(nil), turns...)}, nil
}

// commit writes a stepped negotiation back into s and applies deal side effects
func (m *Manager) commit(s *Session, st *negotiation.State) {
	if !st.Status.Terminal() {
		s.ActiveNegotiations[st.ID] = st
		return
	}

	m.complete(s, st)
	if st.Agreed {
		m.settle(s, st)
	}
	s.recompute()

	ev := log.Info().
		Str("session_id", s.ID).
		Str("negotiation_id", st.ID).
		Str("status", string(st.Status)).
		Int("turns", len(st.Turns))
	if st.FinalPrice != nil {
		ev = ev.Float64("final_price", *st.FinalPrice)
	}
	ev.Msg("Negotiation completed")
}

func (m *Manager) complete(s *Session, st *negotiation.State) {
	delete(s.ActiveNegotiations, st.ID)
	s.CompletedNegotiations = append(s.CompletedNegotiations, st)
}

// settle deactivates both parties of a deal and closes their other open negotiations
func (m *Manager) settle(s *Session, deal *negotiation.State) {
	if b, ok := s.Buyers[deal.BuyerID]; ok {
		b.Active = false
		s.Buyers[deal.BuyerID] = b
	}
	if sl, ok := s.Sellers[deal.SellerID]; ok {
		sl.Active = false
		s.Sellers[deal.SellerID] = sl
	}
	m.proposers.Forget(negotiation.RoleBuyer, deal.BuyerID)
	m.proposers.Forget(negotiation.RoleSeller, deal.SellerID)

	s.Market.RecentCompletedPrices = append(s.Market.RecentCompletedPrices, *deal.FinalPrice)
	if n := len(s.Market.RecentCompletedPrices); n > recentPriceLimit {
		s.Market.RecentCompletedPrices = s.Market.RecentCompletedPrices[n-recentPriceLimit:]
	}

	ids := make([]string, 0, len(s.ActiveNegotiations))
	for id := range s.ActiveNegotiations {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		other := s.ActiveNegotiations[id]
		if other.BuyerID != deal.BuyerID && other.SellerID != deal.SellerID {
			continue
		}
		other.Abandon(ReasonCounterpartyUnavailable)
		m.complete(s, other)
	}
}

// SwitchSeller closes the buyer's negotiation with the current seller as switched and opens
// one with the new seller. Either both happen or neither does.
func (m *Manager) SwitchSeller(ctx context.Context, sessionID, buyerID, currentSellerID, newSellerID string) (*negotiation.State, error) {
	if currentSellerID == newSellerID {
		return nil, ErrSameSeller
	}

	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	cur, ok := s.activeBetween(buyerID, currentSellerID)
	if !ok {
		return nil, fmt.Errorf("buyer %s, seller %s: %w", buyerID, currentSellerID, ErrNegotiationNotFound)
	}
	if m.busy(cur.ID) {
		return nil, fmt.Errorf("negotiation %s: %w", cur.ID, ErrTurnInProgress)
	}

	cur.MarkSwitched(fmt.Sprintf("Buyer switched to seller %s.", newSellerID))
	m.complete(s, cur)
	s.recompute()

	next, err := m.open(s, buyerID, newSellerID)
	if err != nil {
		return nil, err
	}
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", sessionID).
		Str("buyer_id", buyerID).
		Str("from_seller", currentSellerID).
		Str("to_seller", newSellerID).
		Msg("Buyer switched seller")

	return next.Clone(), nil
}

// abandon closes an active negotiation without agreement
func (m *Manager) abandon(ctx context.Context, sessionID, negotiationID, reason string) (*negotiation.State, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, ok := s.ActiveNegotiations[negotiationID]
	if !ok {
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, ErrNegotiationNotFound)
	}
	if m.busy(negotiationID) {
		return nil, fmt.Errorf("negotiation %s: %w", negotiationID, ErrTurnInProgress)
	}
	st.Abandon(reason)
	m.commit(s, st)
	if err := m.save(ctx, s); err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

func (m *Manager) save(ctx context.Context, s *Session) error {
	s.UpdatedAt = m.opts.Now()
	if err := m.repo.UpdateSession(ctx, s); err != nil {
		return fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	return nil
}
