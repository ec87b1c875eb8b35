// Package selection accumulates the rows a user picks from one product table.
package selection

import (
	"github.com/ashureev/audience-chat/internal/domain"
)

// Accumulator is the selection set of a single rendered table. Rows are keyed
// by RowKey; insertion order is kept so commits are deterministic.
type Accumulator struct {
	tableID int64
	order   []string
	items   map[string]domain.Selected
}

// New creates an empty accumulator for the table owned by entry tableID.
func New(tableID int64) *Accumulator {
	return &Accumulator{
		tableID: tableID,
		items:   make(map[string]domain.Selected),
	}
}

// TableID returns the id of the entry whose table this set belongs to.
func (a *Accumulator) TableID() int64 {
	return a.tableID
}

// Toggle adds the row if absent and removes it if present. It reports
// whether the row is selected afterwards.
func (a *Accumulator) Toggle(row domain.TableRow) bool {
	if a.Remove(row.RowKey) {
		return false
	}
	a.items[row.RowKey] = domain.Selected{
		BuyerCategory:   row.BuyerCategory,
		ProductCategory: row.ProductCategory,
		RowKey:          row.RowKey,
	}
	a.order = append(a.order, row.RowKey)
	return true
}

// Remove drops a row by key and reports whether it was selected.
func (a *Accumulator) Remove(rowKey string) bool {
	if _, ok := a.items[rowKey]; !ok {
		return false
	}
	delete(a.items, rowKey)
	for i, k := range a.order {
		if k == rowKey {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether rowKey is selected.
func (a *Accumulator) Contains(rowKey string) bool {
	_, ok := a.items[rowKey]
	return ok
}

// Len returns the number of selected rows.
func (a *Accumulator) Len() int {
	return len(a.order)
}

// Current returns a copy of the selected rows.
func (a *Accumulator) Current() []domain.Selected {
	out := make([]domain.Selected, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, a.items[k])
	}
	return out
}

// Commit projects the current selection onto the outbound message. The
// selection itself is left untouched.
func (a *Accumulator) Commit() domain.OutboundSelection {
	return domain.NewOutboundSelection(a.Current())
}

// Reset clears the selection.
func (a *Accumulator) Reset() {
	a.order = nil
	clear(a.items)
}
