package negotiation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClampOffer(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name        string
		role        Role
		bound       float64
		in          Proposal
		prev        *float64
		counterpart float64
		want        Proposal
	}{
		{
			name:        "buyer retreat is held at previous offer",
			role:        RoleBuyer,
			bound:       1000,
			in:          Proposal{Offer: 880, Message: "Let's try lower."},
			prev:        f(900),
			counterpart: 990,
			want:        Proposal{Offer: 900, Message: "I'm holding firm at $900."},
		},
		{
			name:        "seller retreat is held at previous offer",
			role:        RoleSeller,
			bound:       800,
			in:          Proposal{Offer: 1010, Message: "Actually more."},
			prev:        f(990),
			counterpart: 900,
			want:        Proposal{Offer: 990, Message: "I'm holding firm at $990."},
		},
		{
			name:        "buyer overshooting the seller accepts instead",
			role:        RoleBuyer,
			bound:       1200,
			in:          Proposal{Offer: 1050, Message: "Sure, 1050."},
			counterpart: 1000,
			want:        Proposal{Offer: 1000, Message: "Deal. I accept $1000."},
		},
		{
			name:        "buyer above max is pulled to the bound",
			role:        RoleBuyer,
			bound:       1000,
			in:          Proposal{Offer: 1100, Message: "I can do 1100."},
			counterpart: 1200,
			want:        Proposal{Offer: 1000, Message: "That's more than I'm able to pay right now."},
		},
		{
			name:        "seller below min is pulled to the bound",
			role:        RoleSeller,
			bound:       800,
			in:          Proposal{Offer: 700, Message: "Fine, 700."},
			counterpart: 600,
			want:        Proposal{Offer: 800, Message: "I can't accept a price that low for this item."},
		},
		{
			name:        "leaking phrase is redacted",
			role:        RoleBuyer,
			bound:       1000,
			in:          Proposal{Offer: 900, Message: "That is close to my maximum."},
			counterpart: 1200,
			want:        Proposal{Offer: 900, Message: "That's my best offer."},
		},
		{
			name:        "leaking figure is redacted",
			role:        RoleSeller,
			bound:       1200,
			in:          Proposal{Offer: 1300, Message: "Nothing under $1,200 works."},
			counterpart: 1000,
			want:        Proposal{Offer: 1300, Message: "That's as low as I can go."},
		},
		{
			name:        "matching the counterpart is an acceptance",
			role:        RoleSeller,
			bound:       800,
			in:          Proposal{Offer: 950, Message: "Okay then."},
			counterpart: 950,
			want:        Proposal{Offer: 950, Message: "Deal. I accept $950."},
		},
		{
			name:        "acceptance at the bound may state the price",
			role:        RoleBuyer,
			bound:       1000,
			in:          Proposal{Offer: 1000, Message: "My maximum is 1000."},
			counterpart: 1000,
			want:        Proposal{Offer: 1000, Message: "Deal. I accept $1000."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampOffer(tt.role, tt.bound, tt.in, tt.prev, tt.counterpart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLeaksBound(t *testing.T) {
	tests := []struct {
		text  string
		bound float64
		want  bool
	}{
		{"I can pay 1200", 1200, true},
		{"I can pay $1,200 today", 1200, true},
		{"I can pay 1200.00.", 1200, true},
		{"How about 1200?", 1200, true},
		{"How about 12000?", 1200, false},
		{"How about 11200?", 1200, false},
		{"How about 1200.5?", 1200, false},
		{"How about 1200.5?", 1200.5, true},
		{"How about 1200.50?", 1200.5, true},
		{"How about 1200.55?", 1200.5, false},
		{"I won't go below that", 1200, true},
		{"That is as far as I'll go", 1200, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, leaksBound(tt.text, tt.bound))
		})
	}
}
