package oracle

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmarket/internal/negotiation"
)

func TestHumanPropose(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  negotiation.Proposal
	}{
		{
			name:  "offer with message",
			input: "850\nThat's fair.\n",
			want:  negotiation.Proposal{Offer: 850, Message: "That's fair."},
		},
		{
			name:  "offer with default message",
			input: "$875.50\n\n",
			want:  negotiation.Proposal{Offer: 875.5, Message: "Here is my offer."},
		},
		{
			name:  "invalid entries are re-prompted",
			input: "lots\n-5\n900\nok\n",
			want:  negotiation.Proposal{Offer: 900, Message: "ok"},
		},
		{
			name:  "accept",
			input: "Accept\n",
			want:  negotiation.Proposal{Offer: 1000, Accept: true},
		},
		{
			name:  "deal without trailing newline",
			input: "deal",
			want:  negotiation.Proposal{Offer: 1000, Accept: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			h := NewHuman(strings.NewReader(tt.input), &out)

			got, err := h.Propose(context.Background(), roleContext(negotiation.RoleBuyer))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "[Buyer Turn]")
			assert.Contains(t, out.String(), "Last offer: $1000")
		})
	}
}

func TestHumanProposeEOF(t *testing.T) {
	h := NewHuman(strings.NewReader(""), io.Discard)
	_, err := h.Propose(context.Background(), roleContext(negotiation.RoleSeller))
	assert.ErrorIs(t, err, io.EOF)
}

func TestHumanRepromptsOnInvalidInput(t *testing.T) {
	var out bytes.Buffer
	h := NewHuman(strings.NewReader("abc\n0\n10\n\n"), &out)

	_, err := h.Propose(context.Background(), roleContext(negotiation.RoleSeller))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Please enter a valid number or 'accept'.")
	assert.Contains(t, out.String(), "Offer must be greater than 0.")
}
