package negotiation

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatPrice renders a price rounded to cents without trailing zeros, e.g. 950 or 998.5
func FormatPrice(p float64) string {
	return decimal.NewFromFloat(p).Round(2).String()
}

// roundCents rounds a price to the nearest cent
func roundCents(p float64) float64 {
	f, _ := decimal.NewFromFloat(p).Round(2).Float64()
	return f
}

func acceptMessage(p float64) string {
	return fmt.Sprintf("Deal. I accept $%s.", FormatPrice(p))
}

func holdMessage(p float64) string {
	return fmt.Sprintf("I'm holding firm at $%s.", FormatPrice(p))
}
