// Package catalog provides business logic for managing the product catalog.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trinitystore/backoffice/internal/catalog/store"
)

// ProductDTO is the API-facing representation of a catalog product.
type ProductDTO struct {
	ID                uuid.UUID `json:"id"`
	OffID             string    `json:"off_id,omitempty"`
	Name              string    `json:"name"`
	Brand             string    `json:"brand,omitempty"`
	Category          string    `json:"category,omitempty"`
	Price             int64     `json:"price"`
	Picture           string    `json:"picture,omitempty"`
	NutritionalInfo   string    `json:"nutritional_info,omitempty"`
	AvailableQuantity int32     `json:"available_quantity"`
	Version           int32     `json:"version"`
	CreatedAt         time.Time `json:"created_at"`
}

// CreateProductRequest is the payload for creating a product by hand.
type CreateProductRequest struct {
	OffID           string `json:"off_id" validate:"omitempty,max=64"`
	Name            string `json:"name" validate:"required,max=255"`
	Brand           string `json:"brand" validate:"max=255"`
	Category        string `json:"category" validate:"max=255"`
	Price           int64  `json:"price" validate:"gte=0"`
	Picture         string `json:"picture" validate:"omitempty,url"`
	NutritionalInfo string `json:"nutritional_info"`
	Stock           int32  `json:"stock" validate:"gte=0"`
}

// UpdateProductRequest is the payload for modifying a product. Version
// enables optimistic locking against concurrent edits.
type UpdateProductRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Brand    string `json:"brand" validate:"max=255"`
	Category string `json:"category" validate:"max=255"`
	Price    int64  `json:"price" validate:"gte=0"`
	Stock    int32  `json:"stock" validate:"gte=0"`
	Version  int32  `json:"version" validate:"gte=1"`
}

// Service provides catalog operations on top of the store layer.
type Service struct {
	store  store.ProductStore
	lookup ProductLookup
	log    *slog.Logger
}

// NewService creates a new instance of Service.
func NewService(s store.ProductStore, lookup ProductLookup, log *slog.Logger) *Service {
	return &Service{store: s, lookup: lookup, log: log}
}

// FindByID returns a single product by ID.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	p, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toDTO(p), nil
}

// FindAll returns a page of the catalog.
func (s *Service) FindAll(ctx context.Context, offset, limit int32) ([]ProductDTO, error) {
	products, err := s.store.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return toDTOs(products), nil
}

// SearchByName returns products matching a case-insensitive name query.
func (s *Service) SearchByName(ctx context.Context, query string, limit int32) ([]ProductDTO, error) {
	products, err := s.store.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	return toDTOs(products), nil
}

// Create adds a product entered by hand.
func (s *Service) Create(ctx context.Context, req CreateProductRequest) (*ProductDTO, error) {
	p, err := s.store.Create(ctx, store.CreateParams{
		OffID:           req.OffID,
		Name:            req.Name,
		Brand:           req.Brand,
		Category:        req.Category,
		Price:           req.Price,
		Picture:         req.Picture,
		NutritionalInfo: req.NutritionalInfo,
		Stock:           req.Stock,
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID.String()),
		slog.String("name", p.Name))
	return toDTO(p), nil
}

// Update modifies a product's details using optimistic locking.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductDTO, error) {
	p, err := s.store.Update(ctx, store.UpdateParams{
		ID:       id,
		Name:     req.Name,
		Brand:    req.Brand,
		Category: req.Category,
		Price:    req.Price,
		Stock:    req.Stock,
		Version:  req.Version,
	})
	if err != nil {
		return nil, err
	}
	return toDTO(p), nil
}

// UpdatePrice changes only the unit price of a product.
func (s *Service) UpdatePrice(ctx context.Context, id uuid.UUID, price int64) (*ProductDTO, error) {
	p, err := s.store.UpdatePrice(ctx, id, price)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "product price updated",
		slog.String("product_id", id.String()),
		slog.Int64("price", price))
	return toDTO(p), nil
}

// DeleteByID removes a product from the catalog. Invoice lines referencing
// it are left untouched.
func (s *Service) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	return s.store.DeleteByID(ctx, id, version)
}

// Scan resolves a barcode to a catalog product. A barcode already in the
// catalog is returned as-is; an unknown barcode is looked up externally and
// a new unpriced product is created from the external facts.
func (s *Service) Scan(ctx context.Context, barcode string) (*ProductDTO, error) {
	p, err := s.store.FindByOffID(ctx, barcode)
	if err == nil {
		return toDTO(p), nil
	}
	if !errors.Is(err, store.ErrProductNotFound) {
		return nil, err
	}

	external, err := s.lookup.LookupBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	created, err := s.store.Create(ctx, store.CreateParams{
		OffID:           external.OffID,
		Name:            external.Name,
		Brand:           external.Brand,
		Category:        external.Category,
		Price:           0,
		Picture:         external.Picture,
		NutritionalInfo: external.NutritionalInfo,
		Stock:           0,
	})
	if err != nil {
		// Concurrent scans of the same barcode race on creation; the loser
		// reads back the winner's row.
		if errors.Is(err, store.ErrDuplicateBarcode) {
			existing, findErr := s.store.FindByOffID(ctx, barcode)
			if findErr == nil {
				return toDTO(existing), nil
			}
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "product imported from external catalog",
		slog.String("product_id", created.ID.String()),
		slog.String("off_id", barcode))
	return toDTO(created), nil
}

func toDTO(p *store.Product) *ProductDTO {
	return &ProductDTO{
		ID:                p.ID,
		OffID:             p.OffID,
		Name:              p.Name,
		Brand:             p.Brand,
		Category:          p.Category,
		Price:             p.Price,
		Picture:           p.Picture,
		NutritionalInfo:   p.NutritionalInfo,
		AvailableQuantity: p.AvailableQuantity,
		Version:           p.Version,
		CreatedAt:         p.CreatedAt,
	}
}

func toDTOs(products []store.Product) []ProductDTO {
	dtos := make([]ProductDTO, 0, len(products))
	for i := range products {
		dtos = append(dtos, *toDTO(&products[i]))
	}
	return dtos
}
