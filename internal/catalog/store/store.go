// Package store provides an interface for product storage operations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")
var ErrDuplicateBarcode = errors.New("a product with this barcode already exists")

// Product represents a catalog entry. Price is in cents.
type Product struct {
	ID                uuid.UUID
	OffID             string
	Name              string
	Brand             string
	Category          string
	Price             int64
	Picture           string
	NutritionalInfo   string
	AvailableQuantity int32
	Version           int32
	CreatedAt         time.Time
}

type CreateParams struct {
	OffID           string
	Name            string
	Brand           string
	Category        string
	Price           int64
	Picture         string
	NutritionalInfo string
	Stock           int32
}

type UpdateParams struct {
	ID       uuid.UUID
	Name     string
	Brand    string
	Category string
	Price    int64
	Stock    int32
	Version  int32
}

// ProductStore is an interface for product storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type ProductStore interface {
	// FindByID retrieves a single product by its unique identifier.
	// Returns ErrProductNotFound if no product exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs retrieves products by IDs. Missing IDs are silently absent
	// from the result; callers decide whether that is an error.
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindByOffID retrieves a product by its external barcode.
	// Returns ErrProductNotFound if no product exists with the given barcode.
	FindByOffID(ctx context.Context, offID string) (*Product, error)

	// FindAll returns all available products with pagination support.
	FindAll(ctx context.Context, offset, limit int32) ([]Product, error)

	// SearchByName returns products whose name matches the query, case-insensitively.
	SearchByName(ctx context.Context, query string, limit int32) ([]Product, error)

	// Create adds a new product to the catalog.
	Create(ctx context.Context, params CreateParams) (*Product, error)

	// Update modifies an existing product's details.
	// Returns ErrProductNotFound if no product exists with the given ID and version.
	Update(ctx context.Context, params UpdateParams) (*Product, error)

	// UpdatePrice changes only the unit price of a product.
	// Returns ErrProductNotFound if no product exists with the given ID.
	UpdatePrice(ctx context.Context, id uuid.UUID, price int64) (*Product, error)

	// DeleteByID removes a product by its unique identifier. Historical
	// invoice lines keep their weak reference and are not touched.
	DeleteByID(ctx context.Context, id uuid.UUID, version int32) error
}
