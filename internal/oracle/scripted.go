package oracle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/agentmarket/internal/negotiation"
)

// ErrEmptyScript is returned by a Scripted proposer with no steps
var ErrEmptyScript = errors.New("oracle: empty script")

// Step is one scripted move
type Step struct {
	Offer   float64 `json:"offer" koanf:"offer"`
	Message string  `json:"message" koanf:"message"`
}

// Scripted plays a fixed sequence of offers and repeats the last one when it runs out
type Scripted struct {
	mu    sync.Mutex
	steps []Step
	next  int
}

// NewScripted creates a scripted proposer from bare offers
func NewScripted(offers ...float64) *Scripted {
	steps := make([]Step, len(offers))
	for i, o := range offers {
		steps[i] = Step{Offer: o}
	}
	return NewScriptedSteps(steps...)
}

// NewScriptedSteps creates a scripted proposer from full steps
func NewScriptedSteps(steps ...Step) *Scripted {
	return &Scripted{steps: steps}
}

// Propose implements negotiation.Proposer
func (s *Scripted) Propose(ctx context.Context, rc negotiation.RoleContext) (negotiation.Proposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.steps) == 0 {
		return negotiation.Proposal{}, ErrEmptyScript
	}
	step := s.steps[min(s.next, len(s.steps)-1)]
	s.next++

	msg := step.Message
	if msg == "" {
		msg = fmt.Sprintf("How about $%s?", negotiation.FormatPrice(step.Offer))
	}
	return negotiation.Proposal{Offer: step.Offer, Message: msg}, nil
}
