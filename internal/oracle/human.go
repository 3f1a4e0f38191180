package oracle

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/agentmarket/internal/negotiation"
)

const defaultHumanMessage = "Here is my offer."

// Human reads offers from a terminal
type Human struct {
	in  *bufio.Reader
	out io.Writer
}

// NewHuman creates a proposer that prompts on out and reads answers from in
func NewHuman(in io.Reader, out io.Writer) *Human {
	return &Human{in: bufio.NewReader(in), out: out}
}

// Propose implements negotiation.Proposer. Typing "accept" or "deal" accepts the counterpart's offer.
func (h *Human) Propose(ctx context.Context, rc negotiation.RoleContext) (negotiation.Proposal, error) {
	title := strings.ToUpper(string(rc.Role[:1])) + string(rc.Role[1:])
	fmt.Fprintf(h.out, "\n[%s Turn]\n", title)
	fmt.Fprintf(h.out, "Product: %s\n", rc.Product.Name)
	if rc.MarketSummary != "" {
		fmt.Fprintf(h.out, "Market: %s\n", rc.MarketSummary)
	}
	fmt.Fprintf(h.out, "Rounds left: %d\n", rc.RoundsLeft)
	fmt.Fprintf(h.out, "Last offer: $%s\n", negotiation.FormatPrice(rc.CounterpartLastOffer))

	var offer float64
	for {
		if err := ctx.Err(); err != nil {
			return negotiation.Proposal{}, err
		}
		fmt.Fprint(h.out, "Enter offer (number or 'accept'): ")
		line, err := h.readLine()
		if err != nil {
			return negotiation.Proposal{}, err
		}

		switch strings.ToLower(line) {
		case "accept", "deal":
			return negotiation.Proposal{Offer: rc.CounterpartLastOffer, Accept: true}, nil
		}

		v, err := parsePrice(line)
		if err != nil {
			fmt.Fprintln(h.out, "Please enter a valid number or 'accept'.")
			continue
		}
		if v <= 0 {
			fmt.Fprintln(h.out, "Offer must be greater than 0.")
			continue
		}
		offer = v
		break
	}

	fmt.Fprint(h.out, "Add a short message (optional): ")
	msg, err := h.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return negotiation.Proposal{}, err
	}
	if msg == "" {
		msg = defaultHumanMessage
	}
	return negotiation.Proposal{Offer: offer, Message: msg}, nil
}

// readLine returns the next trimmed line; a final line without a newline is still returned
func (h *Human) readLine() (string, error) {
	line, err := h.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimSpace(line), nil
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
