package intake

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/partflow-io/partflow/internal/domain"
)

// Ledger is the ordered, key-unique cart. It is mutated only through
// Merge, SetQuantity, and Remove; the UI layer never touches lines
// directly. Insertion order is preserved across all operations.
type Ledger struct {
	mu    sync.Mutex
	lines []domain.CartLine
	index map[string]int
}

// NewLedger creates an empty cart ledger.
func NewLedger() *Ledger {
	return &Ledger{index: make(map[string]int)}
}

// Merge adds a resolved line. If a line with the same key exists, its
// quantity is incremented by line.Quantity; the originally recorded
// display name, unit cost, and origin are kept. Otherwise the line is
// appended.
func (g *Ledger) Merge(line domain.CartLine) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if i, ok := g.index[line.Key]; ok {
		g.lines[i].Quantity += line.Quantity
		return
	}
	g.index[line.Key] = len(g.lines)
	g.lines = append(g.lines, line)
}

// SetQuantity replaces a line's quantity. n <= 0 removes the line.
func (g *Ledger) SetQuantity(key string, n int) {
	if n <= 0 {
		g.Remove(key)
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if i, ok := g.index[key]; ok {
		g.lines[i].Quantity = n
	}
}

// Remove deletes a line. No-op if the key is absent.
func (g *Ledger) Remove(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.removeLocked(key)
}

func (g *Ledger) removeLocked(key string) {
	i, ok := g.index[key]
	if !ok {
		return
	}
	g.lines = append(g.lines[:i], g.lines[i+1:]...)
	delete(g.index, key)
	for j := i; j < len(g.lines); j++ {
		g.index[g.lines[j].Key] = j
	}
}

// Lines returns a copy of the cart in insertion order.
func (g *Ledger) Lines() []domain.CartLine {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]domain.CartLine, len(g.lines))
	copy(out, g.lines)
	return out
}

// Len returns the number of lines.
func (g *Ledger) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.lines)
}

// Total returns the sum of extended costs across the cart.
func (g *Ledger) Total() decimal.Decimal {
	g.mu.Lock()
	defer g.mu.Unlock()
	total := decimal.Zero
	for _, l := range g.lines {
		total = total.Add(l.ExtendedCost())
	}
	return total
}

// Clear empties the ledger.
func (g *Ledger) Clear() {
	g.mu.Lock()
	g.lines = g.lines[:0]
	g.index = make(map[string]int)
	g.mu.Unlock()
}
