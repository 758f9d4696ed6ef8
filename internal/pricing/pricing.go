// Package pricing derives order totals from a cart snapshot.
package pricing

import (
	"math"
	"regexp"
	"strconv"

	"concierge/internal/cart"
)

const (
	// TaxRate is applied to the subtotal (GST).
	TaxRate = 0.05
	// DiscountRate is applied to the subtotal.
	DiscountRate = 0.10
	// DefaultUnitPrice is used when no price can be parsed out of a menu
	// display line. Falling back rather than failing is deliberate: a menu
	// derived from retrieved documents may carry malformed price text, and
	// the order should still go through.
	DefaultUnitPrice = 100
)

// Totals holds the priced breakdown of a cart snapshot.
type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	Tax        float64 `json:"tax"`
	Discount   float64 `json:"discount"`
	GrandTotal float64 `json:"grand_total"`
}

// Currency-prefixed amounts are preferred so digits inside dish names
// ("7up - ₹30") do not win; a bare number is accepted only when no
// prefixed amount exists anywhere in the line.
var (
	prefixedPricetag = regexp.MustCompile(`(?:₹|\$|£|€|Rs\.?\s*)(\d+(?:\.\d+)?)`)
	barePricetag     = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
)

// roundMoney rounds to the nearest cent, half away from zero.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute derives totals from a cart snapshot. Tax and discount each derive
// from the raw, unrounded sum; rounding applies to the reported values only,
// never to an intermediate another component reads:
//
//	tax      = round(subtotal * 0.05)
//	discount = round(subtotal * 0.10)
//	grand    = subtotal + tax - discount
func Compute(entries []cart.Entry) Totals {
	var sum float64
	for _, e := range entries {
		sum += e.UnitPrice * float64(e.Quantity)
	}

	subtotal := roundMoney(sum)
	tax := roundMoney(sum * TaxRate)
	discount := roundMoney(sum * DiscountRate)

	return Totals{
		Subtotal:   subtotal,
		Tax:        tax,
		Discount:   discount,
		GrandTotal: roundMoney(subtotal + tax - discount),
	}
}

// ResolvePrice parses a unit price out of a menu display line. The second
// return value reports whether a price was actually found; when it is false
// the returned price is DefaultUnitPrice.
func ResolvePrice(display string) (float64, bool) {
	m := prefixedPricetag.FindStringSubmatch(display)
	if m == nil {
		m = barePricetag.FindStringSubmatch(display)
	}
	if m == nil {
		return DefaultUnitPrice, false
	}
	price, err := strconv.ParseFloat(m[1], 64)
	if err != nil || price < 0 {
		return DefaultUnitPrice, false
	}
	return price, true
}
