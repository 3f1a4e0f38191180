package negotiation

// urgentPatience is the remaining-rounds threshold below which concessions may double
const urgentPatience = 3

// minConcessionStep is the smallest allowed per-turn movement in currency units
const minConcessionStep = 1.0

// MaxConcessionStep returns how far a role may move its price in a single turn
func MaxConcessionStep(listingPrice float64, l Leverage, patienceLeft int) float64 {
	pct := 0.03
	switch l {
	case LeverageHigh:
		pct = 0.01
	case LeverageLow:
		pct = 0.06
	}
	if patienceLeft <= urgentPatience {
		pct *= 2
	}
	step := listingPrice * pct
	if step < minConcessionStep {
		step = minConcessionStep
	}
	return step
}

// LimitConcession caps an excessive move away from the role's previous offer.
// Moves in the backward direction are left untouched for the safety clamp to handle.
// A capped value that would pass the counterpart's offer snaps onto it.
func LimitConcession(role Role, raw, prev, counterpartLast, maxStep float64) float64 {
	s := strategyFor(role, 0)
	limit := prev + s.dir*maxStep
	if (raw-limit)*s.dir <= 0 {
		return raw
	}
	if s.crosses(limit, counterpartLast) {
		return counterpartLast
	}
	return limit
}
