package inventory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryGuard_CheckAvailability(t *testing.T) {
	productID := uuid.New()
	otherID := uuid.New()

	testCases := []struct {
		name               string
		stock              map[uuid.UUID]int32
		lines              []Line
		expectErr          error
		expectInsufficient bool
	}{
		{
			name:  "Success - enough stock",
			stock: map[uuid.UUID]int32{productID: 5},
			lines: []Line{{ProductID: productID, Quantity: 5}},
		},
		{
			name:               "Failure - insufficient stock",
			stock:              map[uuid.UUID]int32{productID: 2},
			lines:              []Line{{ProductID: productID, Quantity: 3}},
			expectInsufficient: true,
		},
		{
			name:      "Failure - unknown product",
			stock:     map[uuid.UUID]int32{productID: 2},
			lines:     []Line{{ProductID: otherID, Quantity: 1}},
			expectErr: ErrUnknownProduct,
		},
		{
			name:               "Failure - duplicate lines exceed stock combined",
			stock:              map[uuid.UUID]int32{productID: 3},
			lines:              []Line{{ProductID: productID, Quantity: 2}, {ProductID: productID, Quantity: 2}},
			expectInsufficient: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			guard := NewMemoryGuard()
			for id, qty := range tc.stock {
				guard.SetStock(id, qty)
			}

			err := guard.CheckAvailability(context.Background(), tc.lines)

			switch {
			case tc.expectInsufficient:
				var insufficient *InsufficientStockError
				require.ErrorAs(t, err, &insufficient)
			case tc.expectErr != nil:
				require.ErrorIs(t, err, tc.expectErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_MemoryGuard_CommitDecrement_AllOrNothing(t *testing.T) {
	guard := NewMemoryGuard()
	okID := uuid.New()
	shortID := uuid.New()
	guard.SetStock(okID, 10)
	guard.SetStock(shortID, 1)

	err := guard.CommitDecrement(context.Background(), []Line{
		{ProductID: okID, Quantity: 5},
		{ProductID: shortID, Quantity: 2},
	})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, shortID, insufficient.ProductID)
	assert.Equal(t, int32(10), guard.Stock(okID), "a failed commit must not decrement any line")
	assert.Equal(t, int32(1), guard.Stock(shortID))
}

func Test_MergeLines_DeterministicOrder(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	c := uuid.New()

	forward := mergeLines([]Line{{ProductID: a, Quantity: 1}, {ProductID: b, Quantity: 2}, {ProductID: c, Quantity: 3}})
	reversed := mergeLines([]Line{{ProductID: c, Quantity: 3}, {ProductID: b, Quantity: 2}, {ProductID: a, Quantity: 1}})

	require.Equal(t, forward, reversed, "merged lines must not depend on submission order")
	for i := 1; i < len(forward); i++ {
		assert.Less(t, forward[i-1].ProductID.String(), forward[i].ProductID.String())
	}
}

func Test_MemoryGuard_CommitDecrement_Concurrent(t *testing.T) {
	guard := NewMemoryGuard()
	productID := uuid.New()
	guard.SetStock(productID, 10)

	const workers = 25
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- guard.CommitDecrement(context.Background(), []Line{{ProductID: productID, Quantity: 1}})
		}()
	}
	wg.Wait()
	close(results)

	var succeeded int
	for err := range results {
		if err == nil {
			succeeded += 1
			continue
		}
		var insufficient *InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 10, succeeded, "exactly as many commits as units in stock may succeed")
	assert.Equal(t, int32(0), guard.Stock(productID), "stock must never go negative")
}
