package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"concierge/internal/cart"
)

func TestComputeRoundNumbers(t *testing.T) {
	totals := Compute([]cart.Entry{
		{Name: "thali", UnitPrice: 50, Quantity: 2},
	})

	assert.Equal(t, 100.0, totals.Subtotal)
	assert.Equal(t, 5.0, totals.Tax)
	assert.Equal(t, 10.0, totals.Discount)
	assert.Equal(t, 95.0, totals.GrandTotal)
}

func TestComputeRoundsEachComponentIndependently(t *testing.T) {
	// gulab jamun 4.99 x1 + mango lassi 3.99 x2 = 12.97
	totals := Compute([]cart.Entry{
		{Name: "gulab jamun", UnitPrice: 4.99, Quantity: 1},
		{Name: "mango lassi", UnitPrice: 3.99, Quantity: 2},
	})

	assert.InDelta(t, 12.97, totals.Subtotal, 1e-9)
	assert.InDelta(t, 0.65, totals.Tax, 1e-9)      // round(0.6485)
	assert.InDelta(t, 1.30, totals.Discount, 1e-9) // round(1.297)
	assert.InDelta(t, 12.32, totals.GrandTotal, 1e-9)
}

func TestComputeDerivesComponentsFromUnroundedSum(t *testing.T) {
	// 8 x 1.237 = 9.896: the reported subtotal rounds to 9.90, but tax comes
	// from the raw sum (0.4948 -> 0.49), not from the rounded subtotal
	// (0.495 -> 0.50).
	totals := Compute([]cart.Entry{{Name: "samosa", UnitPrice: 1.237, Quantity: 8}})

	assert.InDelta(t, 9.90, totals.Subtotal, 1e-9)
	assert.InDelta(t, 0.49, totals.Tax, 1e-9)
	assert.InDelta(t, 0.99, totals.Discount, 1e-9)
	assert.InDelta(t, 9.40, totals.GrandTotal, 1e-9)
}

func TestComputeEmptyCart(t *testing.T) {
	totals := Compute(nil)
	assert.Zero(t, totals.Subtotal)
	assert.Zero(t, totals.GrandTotal)
}

func TestResolvePrice(t *testing.T) {
	tests := []struct {
		display string
		want    float64
		found   bool
	}{
		{"Paneer Tikka - ₹250", 250, true},
		{"House Salad - $12.99", 12.99, true},
		{"Masala Dosa - Rs. 120", 120, true},
		{"Butter Naan 45", 45, true},
		{"7up - ₹30", 30, true},
		{"Chef's Special", DefaultUnitPrice, false},
		{"", DefaultUnitPrice, false},
	}

	for _, tt := range tests {
		price, found := ResolvePrice(tt.display)
		assert.Equal(t, tt.want, price, "display %q", tt.display)
		assert.Equal(t, tt.found, found, "display %q", tt.display)
	}
}
