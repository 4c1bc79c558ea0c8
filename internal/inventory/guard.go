// Package inventory guards shared stock counters during checkout. Its two
// operations are logically one conditional decrement: "subtract each line's
// quantity if and only if every line still has sufficient stock", applied as
// a single all-or-nothing unit.
package inventory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var ErrUnknownProduct = errors.New("unknown product")

// InsufficientStockError reports which product could not cover the requested
// quantity. Available is a snapshot taken at the moment of the check.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Available int32
	Requested int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

// Line is a requested quantity of one product.
type Line struct {
	ProductID uuid.UUID
	Quantity  int32
}

// Guard validates and commits stock decrements.
type Guard interface {
	// CheckAvailability verifies every line against a consistent read of
	// current stock. Returns an InsufficientStockError for the first line
	// that cannot be covered, or ErrUnknownProduct for a missing product.
	CheckAvailability(ctx context.Context, lines []Line) error

	// CommitDecrement re-validates and decrements atomically. Either every
	// line's stock is decremented or none is. Concurrent commits touching
	// the same product serialize; stock never goes negative.
	CommitDecrement(ctx context.Context, lines []Line) error
}

// mergeLines folds duplicate product references into a single line so a cart
// listing the same product twice is treated as one combined quantity. The
// result is ordered by product id so concurrent commits lock rows in the
// same order.
func mergeLines(lines []Line) []Line {
	idx := make(map[uuid.UUID]int, len(lines))
	merged := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			merged[i].Quantity += l.Quantity
			continue
		}
		idx[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool {
		return bytes.Compare(merged[i].ProductID[:], merged[j].ProductID[:]) < 0
	})
	return merged
}
