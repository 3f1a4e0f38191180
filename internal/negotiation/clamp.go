package negotiation

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// strategy captures the per-role rules the generic protocol is parameterized by.
// dir is +1 when the role moves its price upward over time (buyer) and -1 when it moves down (seller).
type strategy struct {
	role     Role
	bound    float64
	dir      float64
	refusal  string
	stockMsg string
}

func strategyFor(role Role, bound float64) strategy {
	if role == RoleBuyer {
		return strategy{
			role:     RoleBuyer,
			bound:    bound,
			dir:      1,
			refusal:  "That's more than I'm able to pay right now.",
			stockMsg: "That's my best offer.",
		}
	}
	return strategy{
		role:     RoleSeller,
		bound:    bound,
		dir:      -1,
		refusal:  "I can't accept a price that low for this item.",
		stockMsg: "That's as low as I can go.",
	}
}

// exceedsBound reports whether an offer is on the forbidden side of the hard bound
func (s strategy) exceedsBound(offer float64) bool {
	return (offer-s.bound)*s.dir > 0
}

// movesBackward reports whether an offer retreats from the role's previous offer
func (s strategy) movesBackward(offer, prev float64) bool {
	return (offer-prev)*s.dir < 0
}

// crosses reports whether an offer passes the counterpart's current offer
func (s strategy) crosses(offer, counterpart float64) bool {
	return (offer-counterpart)*s.dir > 0
}

// Proposal is a raw or sanitized {offer, message} pair.
// Accept marks an explicit acceptance of the counterpart's last offer made by a human.
type Proposal struct {
	Offer   float64 `json:"offer"`
	Message string  `json:"message"`
	Accept  bool    `json:"-"`
}

var leakPhrases = []string{"minimum", "maximum", "go below", "go as high", "go as low"}

// ClampOffer sanitizes one proposal for role. prev is the role's own previous offer, when one exists.
// The result respects the hard bound, rationality against counterpartLast, and monotonicity,
// and its message never discloses the bound.
func ClampOffer(role Role, bound float64, p Proposal, prev *float64, counterpartLast float64) Proposal {
	return strategyFor(role, bound).clamp(p, prev, counterpartLast)
}

func (s strategy) clamp(p Proposal, prev *float64, counterpartLast float64) Proposal {
	out := p

	if prev != nil && s.movesBackward(out.Offer, *prev) {
		out.Offer = *prev
		out.Message = holdMessage(out.Offer)
	}

	if s.crosses(out.Offer, counterpartLast) {
		out.Offer = counterpartLast
		out.Message = acceptMessage(out.Offer)
	}

	if s.exceedsBound(out.Offer) {
		out.Offer = s.bound
		out.Message = s.refusal
	}

	if leaksBound(out.Message, s.bound) {
		out.Message = s.stockMsg
	}

	if samePrice(out.Offer, counterpartLast) {
		out.Offer = counterpartLast
		out.Message = acceptMessage(out.Offer)
	}

	return out
}

// leaksBound reports whether text reveals the private bound, either literally or by phrasing
func leaksBound(text string, bound float64) bool {
	lower := strings.ToLower(text)
	for _, phrase := range leakPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return boundPattern(bound).MatchString(text)
}

// boundPattern matches the bound written as 1200, 1,200, 1200.00 or 1200.5 style figures
func boundPattern(bound float64) *regexp.Regexp {
	whole := int64(math.Floor(bound))
	cents := int64(math.Round((bound - float64(whole)) * 100))
	if cents == 100 {
		whole++
		cents = 0
	}

	digits := strconv.FormatInt(whole, 10)
	var grouped strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			grouped.WriteString(",?")
		}
		grouped.WriteRune(r)
	}

	frac := `(?:\.0{1,2})?`
	if cents != 0 {
		c := strconv.FormatInt(cents, 10)
		if cents < 10 {
			c = "0" + c
		}
		frac = `\.` + strings.TrimSuffix(c, "0")
		if strings.HasSuffix(c, "0") {
			frac += "0?"
		}
	}

	return regexp.MustCompile(`(?:^|[^0-9.,])` + grouped.String() + frac + `(?:$|[^0-9.,]|[.,](?:$|[^0-9]))`)
}
