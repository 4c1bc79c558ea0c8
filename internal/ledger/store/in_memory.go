package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore implements InvoiceStore with in-memory maps. Test and local use.
type InMemoryStore struct {
	mu       sync.RWMutex
	invoices map[uuid.UUID]Invoice
	lines    map[uuid.UUID][]InvoiceLine
	byRef    map[string]uuid.UUID
}

// NewInMemoryStore creates a new instance of InvoiceStore
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		invoices: make(map[uuid.UUID]Invoice),
		lines:    make(map[uuid.UUID][]InvoiceLine),
		byRef:    make(map[string]uuid.UUID),
	}
}

func (s *InMemoryStore) CreateInvoice(_ context.Context, params *CreateInvoiceParams, lines []CreateLineParams) (*Invoice, []InvoiceLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byRef[params.PaymentReference]; exists {
		return nil, nil, ErrDuplicatePaymentReference
	}

	inv := Invoice{
		ID:               uuid.New(),
		UserID:           params.UserID,
		TotalPrice:       params.TotalPrice,
		PaymentReference: params.PaymentReference,
		CreatedAt:        time.Now(),
	}
	invoiceLines := make([]InvoiceLine, 0, len(lines))
	for _, line := range lines {
		invoiceLines = append(invoiceLines, InvoiceLine{
			ID:              uuid.New(),
			InvoiceID:       inv.ID,
			ProductID:       line.ProductID,
			Quantity:        line.Quantity,
			UnitPriceAtSale: line.UnitPriceAtSale,
		})
	}

	s.invoices[inv.ID] = inv
	s.lines[inv.ID] = invoiceLines
	s.byRef[inv.PaymentReference] = inv.ID

	linesCopy := append([]InvoiceLine(nil), invoiceLines...)
	return &inv, linesCopy, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Invoice, []InvoiceLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil, ErrInvoiceNotFound
	}
	linesCopy := append([]InvoiceLine(nil), s.lines[id]...)
	return &inv, linesCopy, nil
}

func (s *InMemoryStore) FindByPaymentReference(_ context.Context, paymentReference string) (*Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byRef[paymentReference]
	if !ok {
		return nil, ErrInvoiceNotFound
	}
	inv := s.invoices[id]
	return &inv, nil
}

func (s *InMemoryStore) FindByUserID(_ context.Context, params *FindByUserIDParams) ([]Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]Invoice, 0)
	for _, inv := range s.invoices {
		if inv.UserID == params.UserID {
			list = append(list, inv)
		}
	}
	// Newest first.
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })

	if int(params.Offset) >= len(list) {
		return []Invoice{}, nil
	}
	end := int(params.Offset + params.Limit)
	if end > len(list) {
		end = len(list)
	}
	return list[params.Offset:end], nil
}
