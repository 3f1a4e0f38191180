package prompts

import (
	"fmt"
	"strings"

	"github.com/agentmarket/internal/negotiation"
)

// urgentRounds is the remaining-round count at which the prompt adds an urgency notice
const urgentRounds = 3

// Builder renders offer prompts for the LLM oracle
type Builder struct {
	// HistoryLimit caps how many recent turns are included; 0 includes all of them
	HistoryLimit int
}

// NewBuilder creates a prompt builder that includes the whole transcript
func NewBuilder() *Builder {
	return &Builder{}
}

// BuildOfferPrompt renders the prompt asking rc.Role for its next offer
func (b *Builder) BuildOfferPrompt(rc negotiation.RoleContext) string {
	var p strings.Builder

	role, strategy, limit := BuyerRole, BuyerStrategy, "Your absolute maximum budget is $%s. Never go above it."
	counterpart := "seller"
	if rc.Role == negotiation.RoleSeller {
		role, strategy, limit = SellerRole, SellerStrategy, "Your absolute minimum acceptable price is $%s. Never go below it."
		counterpart = "buyer"
	}

	p.WriteString(role + "\n\n")

	p.WriteString("PRODUCT:\n")
	fmt.Fprintf(&p, "- Name: %s\n", rc.Product.Name)
	if rc.Product.Description != "" {
		fmt.Fprintf(&p, "- Description: %s\n", rc.Product.Description)
	}
	fmt.Fprintf(&p, "- Listing price: $%s\n\n", negotiation.FormatPrice(rc.Product.ListingPrice))

	p.WriteString("PRIVATE CONSTRAINT:\n")
	fmt.Fprintf(&p, limit+"\n", negotiation.FormatPrice(rc.Bound))
	p.WriteString(ConfidentialityRule + "\n\n")

	p.WriteString("MARKET:\n")
	if g, ok := leverageGuidance[string(rc.Leverage)]; ok {
		p.WriteString(g + "\n")
	}
	fmt.Fprintf(&p, "- Competing sellers: %d\n", rc.Market.ActiveCompetitorSellers)
	fmt.Fprintf(&p, "- Interested buyers: %d\n", rc.Market.ActiveInterestedBuyers)
	if rc.MarketSummary != "" {
		p.WriteString(rc.MarketSummary + "\n")
	}
	p.WriteString("\n")

	p.WriteString("NEGOTIATION SO FAR:\n")
	p.WriteString(b.history(rc.Transcript))
	fmt.Fprintf(&p, "The %s's current offer is $%s.\n", counterpart, negotiation.FormatPrice(rc.CounterpartLastOffer))
	if rc.Role == negotiation.RoleBuyer && len(rc.OwnOffers) == 0 && rc.AnchorOffer > 0 {
		fmt.Fprintf(&p, "Consider opening around $%s.\n", negotiation.FormatPrice(rc.AnchorOffer))
	}
	fmt.Fprintf(&p, "Rounds left: %d\n", rc.RoundsLeft)
	if rc.RoundsLeft <= urgentRounds {
		p.WriteString(UrgencyNotice + "\n")
	}
	p.WriteString("\n")

	p.WriteString(strategy + "\n\n")
	p.WriteString(JSONStructure)

	return p.String()
}

func (b *Builder) history(turns []negotiation.Turn) string {
	if len(turns) == 0 {
		return "No offers have been made yet.\n"
	}
	if b.HistoryLimit > 0 && len(turns) > b.HistoryLimit {
		turns = turns[len(turns)-b.HistoryLimit:]
	}

	var h strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&h, "Round %d - %s: $%s", t.Round, t.Agent, negotiation.FormatPrice(t.Offer))
		if t.Message != "" {
			fmt.Fprintf(&h, " (%q)", t.Message)
		}
		h.WriteString("\n")
	}
	return h.String()
}
