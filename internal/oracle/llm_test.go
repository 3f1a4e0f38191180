package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmarket/internal/llm"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/retry"
)

func roleContext(role negotiation.Role) negotiation.RoleContext {
	return negotiation.RoleContext{
		NegotiationID:        "n1",
		Role:                 role,
		Product:              negotiation.Product{Name: "Camera", ListingPrice: 1000},
		Bound:                900,
		CounterpartLastOffer: 1000,
		RoundsLeft:           10,
		Leverage:             negotiation.LeverageMedium,
	}
}

func newTestLLM(client llm.Client) *LLM {
	cfg := retry.Config{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	return NewLLM(llm.NewResilientClient(client, cfg, nil), nil, 0)
}

func TestLLMPropose(t *testing.T) {
	var seenPrompt string
	client := llm.ClientFunc(func(ctx context.Context, prompt string) (string, error) {
		seenPrompt = prompt
		return "Sure:\n```json\n{\"offer\": \"$850.50\", \"message\": \"  Meet me here.  \"}\n```", nil
	})

	got, err := newTestLLM(client).Propose(context.Background(), roleContext(negotiation.RoleBuyer))
	require.NoError(t, err)
	assert.Equal(t, negotiation.Proposal{Offer: 850.5, Message: "Meet me here."}, got)
	assert.Contains(t, seenPrompt, "Camera")
}

func TestLLMProposeFailure(t *testing.T) {
	client := llm.ClientFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("invalid api key")
	})

	_, err := newTestLLM(client).Propose(context.Background(), roleContext(negotiation.RoleSeller))
	assert.Error(t, err)
}

func TestPriceDecoding(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{`950`, 950, false},
		{`950.25`, 950.25, false},
		{`"950"`, 950, false},
		{`"$1,234.50"`, 1234.5, false},
		{`"1200 USD"`, 1200, false},
		{`null`, 0, false},
		{`"about a thousand"`, 0, true},
		{`true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var p price
			err := json.Unmarshal([]byte(tt.in), &p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, float64(p), 1e-9)
		})
	}
}
