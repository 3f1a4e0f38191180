package market

import (
	"fmt"
	"strings"

	"github.com/agentmarket/internal/negotiation"
)

// marketSummary describes the session's market to one side of a negotiation
func marketSummary(s *Session, role negotiation.Role) string {
	mc := s.Market

	var b strings.Builder
	if role == negotiation.RoleBuyer {
		fmt.Fprintf(&b, "Market: %d sellers available, %d buyers competing.", mc.TotalActiveSellers, mc.TotalActiveBuyers)
	} else {
		fmt.Fprintf(&b, "Market: %d buyers interested, %d sellers competing.", mc.TotalActiveBuyers, mc.TotalActiveSellers)
	}
	fmt.Fprintf(&b, " Active negotiations: %d.", mc.ActiveNegotiations)

	if len(mc.RecentCompletedPrices) > 0 {
		prices := make([]string, len(mc.RecentCompletedPrices))
		for i, p := range mc.RecentCompletedPrices {
			prices[i] = "$" + negotiation.FormatPrice(p)
		}
		fmt.Fprintf(&b, " Recent sale prices: %s.", strings.Join(prices, ", "))
	}
	return b.String()
}
