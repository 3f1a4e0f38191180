package market

// Switching thresholds
const (
	switchStallRounds     = 3
	switchOverpriceFactor = 1.15
	switchLateRounds      = 3
	switchMinConcessions  = 3
)

// SwitchSignal is the buyer-side view used to decide whether to walk away from a seller
type SwitchSignal struct {
	BuyerOffers     []float64
	SellerOffers    []float64
	StallCount      int
	RoundsLeft      int
	BuyerMaxPrice   float64
	HasAlternatives bool
}

// ShouldSwitchSeller reports whether the buyer should abandon the current seller for another one
func ShouldSwitchSeller(sig SwitchSignal) bool {
	if !sig.HasAlternatives {
		return false
	}

	if sig.StallCount >= switchStallRounds {
		return true
	}

	if n := len(sig.SellerOffers); n > 0 {
		asking := sig.SellerOffers[n-1]
		if asking > sig.BuyerMaxPrice*switchOverpriceFactor && sig.RoundsLeft <= switchLateRounds {
			return true
		}
	}

	concessions := 0
	for i := 1; i < len(sig.BuyerOffers); i++ {
		if sig.BuyerOffers[i] > sig.BuyerOffers[i-1] {
			concessions++
		}
	}
	if concessions >= switchMinConcessions && len(sig.SellerOffers) > 0 {
		buyerMoved := sig.BuyerOffers[len(sig.BuyerOffers)-1] - sig.BuyerOffers[0]
		sellerMoved := sig.SellerOffers[0] - sig.SellerOffers[len(sig.SellerOffers)-1]
		if sellerMoved < buyerMoved/3 {
			return true
		}
	}

	return false
}
