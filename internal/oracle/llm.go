package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/agentmarket/internal/llm"
	"github.com/agentmarket/internal/negotiation"
	"github.com/agentmarket/internal/prompts"
)

// LLM asks a language model for the next offer
type LLM struct {
	client  *llm.ResilientClient
	builder *prompts.Builder
	timeout time.Duration
}

// NewLLM creates an LLM oracle. timeout bounds each model attempt; zero means no limit.
func NewLLM(client *llm.ResilientClient, builder *prompts.Builder, timeout time.Duration) *LLM {
	if builder == nil {
		builder = prompts.NewBuilder()
	}
	return &LLM{client: client, builder: builder, timeout: timeout}
}

type offerReply struct {
	Offer   price  `json:"offer"`
	Message string `json:"message"`
}

// Propose implements negotiation.Proposer
func (o *LLM) Propose(ctx context.Context, rc negotiation.RoleContext) (negotiation.Proposal, error) {
	var reply offerReply
	_, err := o.client.GenerateJSON(ctx, llm.Request{
		NegotiationID: rc.NegotiationID,
		Role:          string(rc.Role),
		Prompt:        o.builder.BuildOfferPrompt(rc),
		Timeout:       o.timeout,
	}, &reply)
	if err != nil {
		return negotiation.Proposal{}, fmt.Errorf("llm oracle: %w", err)
	}

	return negotiation.Proposal{
		Offer:   float64(reply.Offer),
		Message: strings.TrimSpace(reply.Message),
	}, nil
}

// price decodes an offer written either as a JSON number or as a string like "$1,234.50"
type price float64

func (p *price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*p = 0
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		v, err := parsePrice(s)
		if err != nil {
			return err
		}
		*p = price(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("offer is not a number: %w", err)
	}
	*p = price(f)
	return nil
}

// parsePrice accepts plain and currency-formatted numbers
func parsePrice(s string) (float64, error) {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "", "USD", "", "usd", "").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	f, _ := d.Float64()
	return f, nil
}
