package reporting

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// formatMoney rounds half away from zero to 2 places.
func formatMoney(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// formatPrice rounds a per-share price to 4 places.
func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// formatPercent renders a ratio as a percentage with 2 places, e.g. 0.1234 -> "12.34".
func formatPercent(ratio float64) string {
	return decimal.NewFromFloat(ratio).Mul(hundred).StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDatePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDate(*t)
}
