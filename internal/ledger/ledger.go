// Package ledger keeps the append-only history of finalized orders for one
// session.
package ledger

import (
	"time"

	"github.com/google/uuid"

	"concierge/internal/cart"
	"concierge/internal/pricing"
)

// OrderRecord is an immutable snapshot of a finalized order. Records are never
// updated or deleted after creation.
type OrderRecord struct {
	ID         string         `json:"id"`
	Restaurant string         `json:"restaurant,omitempty"`
	Items      map[string]int `json:"items"`
	GrandTotal float64        `json:"grand_total"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Ledger is the append-only order history for a session. It grows
// monotonically and never shrinks; finalize is the only mutation.
type Ledger struct {
	records []OrderRecord
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Finalize appends a new record built from a cart snapshot and its computed
// totals, and returns it. The caller is responsible for clearing the cart
// afterwards.
func (l *Ledger) Finalize(restaurant string, entries []cart.Entry, totals pricing.Totals) OrderRecord {
	items := make(map[string]int, len(entries))
	for _, e := range entries {
		items[e.Name] = e.Quantity
	}

	record := OrderRecord{
		ID:         uuid.NewString(),
		Restaurant: restaurant,
		Items:      items,
		GrandTotal: totals.GrandTotal,
		CreatedAt:  time.Now().UTC(),
	}
	l.records = append(l.records, record)
	return record
}

// ListAll returns all records most-recent-first. The returned slice and the
// item maps inside it are copies; callers cannot mutate history through them.
func (l *Ledger) ListAll() []OrderRecord {
	out := make([]OrderRecord, 0, len(l.records))
	for i := len(l.records) - 1; i >= 0; i-- {
		r := l.records[i]
		items := make(map[string]int, len(r.Items))
		for k, v := range r.Items {
			items[k] = v
		}
		r.Items = items
		out = append(out, r)
	}
	return out
}

// Len returns the number of finalized orders.
func (l *Ledger) Len() int {
	return len(l.records)
}
