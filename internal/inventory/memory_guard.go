package inventory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryGuard implements Guard with in-memory counters. One mutex covers the
// whole validate-then-apply sequence, giving the same all-or-nothing,
// serialized semantics as the database-backed guard. Used in tests and local
// development.
type MemoryGuard struct {
	mu    sync.Mutex
	stock map[uuid.UUID]int32
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{stock: make(map[uuid.UUID]int32)}
}

// SetStock sets the available quantity for a product.
func (g *MemoryGuard) SetStock(id uuid.UUID, quantity int32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stock[id] = quantity
}

// Stock returns the current available quantity for a product.
func (g *MemoryGuard) Stock(id uuid.UUID) int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stock[id]
}

func (g *MemoryGuard) CheckAvailability(_ context.Context, lines []Line) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.validate(mergeLines(lines))
}

func (g *MemoryGuard) CommitDecrement(_ context.Context, lines []Line) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	merged := mergeLines(lines)
	// First pass: validate all lines before touching any counter.
	if err := g.validate(merged); err != nil {
		return err
	}
	// Second pass: apply.
	for _, l := range merged {
		g.stock[l.ProductID] -= l.Quantity
	}
	return nil
}

// validate must be called with the mutex held.
func (g *MemoryGuard) validate(merged []Line) error {
	for _, l := range merged {
		available, ok := g.stock[l.ProductID]
		if !ok {
			return ErrUnknownProduct
		}
		if available < l.Quantity {
			return &InsufficientStockError{ProductID: l.ProductID, Available: available, Requested: l.Quantity}
		}
	}
	return nil
}
