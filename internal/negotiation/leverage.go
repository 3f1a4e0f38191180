package negotiation

// highLeverageCount is the market count at which a party is considered to hold high leverage
const highLeverageCount = 3

// CalculateLeverage derives a role's leverage from market counts.
// Sellers are strong when many buyers are interested; buyers are strong when many sellers compete.
func CalculateLeverage(role Role, competitorSellers, interestedBuyers int) Leverage {
	count := competitorSellers
	if role == RoleSeller {
		count = interestedBuyers
	}
	switch {
	case count >= highLeverageCount:
		return LeverageHigh
	case count <= 0:
		return LeverageLow
	default:
		return LeverageMedium
	}
}

// InitialPatience returns the round budget for a leverage level.
// Strong parties are impatient, weak parties grind.
func InitialPatience(l Leverage) int {
	switch l {
	case LeverageHigh:
		return 6
	case LeverageLow:
		return 15
	default:
		return 10
	}
}

// SellerTarget returns the seller's internal acceptable price, always >= minPrice.
func SellerTarget(minPrice, listingPrice float64, l Leverage) float64 {
	k := 0.60
	switch l {
	case LeverageHigh:
		k = 0.85
	case LeverageLow:
		k = 0.35
	}
	target := minPrice + (listingPrice-minPrice)*k
	if target > listingPrice {
		target = listingPrice
	}
	if target < minPrice {
		target = minPrice
	}
	return target
}
