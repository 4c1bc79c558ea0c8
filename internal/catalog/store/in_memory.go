package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements ProductStore using an in-memory map.
// Useful for unit tests and local development without a database.
type InMemoryStore struct {
	mu       sync.RWMutex
	products map[uuid.UUID]Product
}

// NewInMemoryStore creates a new instance of ProductStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		products: make(map[uuid.UUID]Product),
	}
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) FindByIDs(_ context.Context, ids []uuid.UUID) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}

func (s *InMemoryStore) FindByOffID(_ context.Context, offID string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.OffID != "" && p.OffID == offID {
			return &p, nil
		}
	}
	return nil, ErrProductNotFound
}

func (s *InMemoryStore) FindAll(_ context.Context, offset, limit int32) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })

	if int(offset) >= len(list) {
		return []Product{}, nil
	}
	end := int(offset + limit)
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], nil
}

func (s *InMemoryStore) SearchByName(_ context.Context, query string, limit int32) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Product, 0)
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(query)) {
			list = append(list, p)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	if int32(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (s *InMemoryStore) Create(_ context.Context, params CreateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if params.OffID != "" {
		for _, p := range s.products {
			if p.OffID == params.OffID {
				return nil, ErrDuplicateBarcode
			}
		}
	}
	product := Product{
		ID:                uuid.New(),
		OffID:             params.OffID,
		Name:              params.Name,
		Brand:             params.Brand,
		Category:          params.Category,
		Price:             params.Price,
		Picture:           params.Picture,
		NutritionalInfo:   params.NutritionalInfo,
		AvailableQuantity: params.Stock,
		Version:           1,
		CreatedAt:         time.Now(),
	}
	s.products[product.ID] = product
	return &product, nil
}

func (s *InMemoryStore) Update(_ context.Context, params UpdateParams) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[params.ID]
	if !ok || p.Version != params.Version {
		return nil, ErrProductNotFound
	}
	p.Name = params.Name
	p.Brand = params.Brand
	p.Category = params.Category
	p.Price = params.Price
	p.AvailableQuantity = params.Stock
	p.Version++
	s.products[p.ID] = p
	return &p, nil
}

func (s *InMemoryStore) UpdatePrice(_ context.Context, id uuid.UUID, price int64) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return nil, ErrProductNotFound
	}
	p.Price = price
	p.Version++
	s.products[id] = p
	return &p, nil
}

func (s *InMemoryStore) DeleteByID(_ context.Context, id uuid.UUID, version int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok || p.Version != version {
		return ErrProductNotFound
	}
	delete(s.products, id)
	return nil
}

// SetStock overwrites the available quantity of a product. Test helper.
func (s *InMemoryStore) SetStock(id uuid.UUID, stock int32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.products[id]; ok {
		p.AvailableQuantity = stock
		s.products[id] = p
	}
}
