// Package cart holds the in-progress order for one conversational session.
package cart

import (
	"sort"

	"concierge/internal/menu"
)

// Entry represents one item in the cart. The unit price is attached when the
// entry is created, so later pricing never re-derives it from display text.
type Entry struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
	Note      string  `json:"note,omitempty"`
}

// Cart is the mutable per-session accumulation of items the user intends to
// order. It is not safe for concurrent use; the owning session serializes
// access (one turn at a time).
type Cart struct {
	entries map[string]Entry
}

// New creates an empty cart.
func New() *Cart {
	return &Cart{entries: make(map[string]Entry)}
}

// AddOrUpdate sets the entry for an item. A quantity of zero (or less) removes
// the item; zero-quantity entries are never retained. An empty note preserves
// any note already attached to the entry.
func (c *Cart) AddOrUpdate(name string, unitPrice float64, quantity int, note string) {
	if quantity <= 0 {
		c.Remove(name)
		return
	}
	if note == "" {
		if prev, ok := c.entries[name]; ok {
			note = prev.Note
		}
	}
	c.entries[name] = Entry{Name: name, UnitPrice: unitPrice, Quantity: quantity, Note: note}
}

// MergeExtracted accumulates extracted item quantities into the cart, resolving
// unit prices from the catalog. Quantities add to existing entries across
// conversational turns.
func (c *Cart) MergeExtracted(items map[string]int, cat *menu.Catalog) {
	for name, qty := range items {
		price, ok := cat.Lookup(name)
		if !ok {
			continue
		}
		if prev, exists := c.entries[name]; exists {
			qty += prev.Quantity
		}
		c.AddOrUpdate(name, price, qty, "")
	}
}

// Remove deletes an item from the cart. Removing an absent item is a no-op.
func (c *Cart) Remove(name string) {
	delete(c.entries, name)
}

// Clear resets the cart to empty. Clearing an already-empty cart is a no-op;
// adds after a clear populate a fresh state.
func (c *Cart) Clear() {
	c.entries = make(map[string]Entry)
}

// Snapshot returns a copy of the current entries, sorted by item name.
// Mutating the returned slice does not affect the cart.
func (c *Cart) Snapshot() []Entry {
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// TotalQuantity returns the sum of all entry quantities.
func (c *Cart) TotalQuantity() int {
	var total int
	for _, e := range c.entries {
		total += e.Quantity
	}
	return total
}

// Len returns the number of distinct items in the cart.
func (c *Cart) Len() int {
	return len(c.entries)
}
