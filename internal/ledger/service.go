// Package ledger provides business logic for recording and reading invoices.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/trinitystore/backoffice/internal/catalog/store"
	ledgerstore "github.com/trinitystore/backoffice/internal/ledger/store"
)

var ErrAccessDenied = errors.New("access denied")

// removedProductName is shown on invoice lines whose product was deleted
// from the catalog after the sale.
const removedProductName = "removed product"

// RecordParams carries everything needed to persist one successful checkout.
type RecordParams struct {
	UserID           uuid.UUID
	TotalPrice       int64
	PaymentReference string
	Lines            []ledgerstore.CreateLineParams
}

// InvoiceDTO is the API-facing representation of an invoice.
type InvoiceDTO struct {
	ID               uuid.UUID        `json:"id"`
	UserID           uuid.UUID        `json:"user_id"`
	TotalPrice       int64            `json:"total_price"`
	PaymentReference string           `json:"payment_reference"`
	CreatedAt        time.Time        `json:"created_at"`
	Lines            []InvoiceLineDTO `json:"lines,omitempty"`
}

// InvoiceLineDTO is one sold product on an invoice. ProductName is resolved
// from the current catalog and falls back to a placeholder when the product
// was removed since the sale.
type InvoiceLineDTO struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductName     string    `json:"product_name"`
	Quantity        int32     `json:"quantity"`
	UnitPriceAtSale int64     `json:"unit_price_at_sale"`
}

// Service provides invoice operations on top of the store layer.
type Service struct {
	invoices ledgerstore.InvoiceStore
	products store.ProductStore
	log      *slog.Logger
}

// NewService creates a new instance of Service.
func NewService(invoices ledgerstore.InvoiceStore, products store.ProductStore, log *slog.Logger) *Service {
	return &Service{invoices: invoices, products: products, log: log}
}

// Record persists an invoice with its lines as one atomic unit.
func (s *Service) Record(ctx context.Context, params RecordParams) (*InvoiceDTO, error) {
	inv, lines, err := s.invoices.CreateInvoice(ctx, &ledgerstore.CreateInvoiceParams{
		UserID:           params.UserID,
		TotalPrice:       params.TotalPrice,
		PaymentReference: params.PaymentReference,
	}, params.Lines)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "invoice recorded",
		slog.String("invoice_id", inv.ID.String()),
		slog.String("payment_reference", inv.PaymentReference),
		slog.Int64("total_price", inv.TotalPrice))
	return s.toDTO(ctx, inv, lines), nil
}

// FindByID returns one invoice with its lines. Non-manager callers may only
// read their own invoices.
func (s *Service) FindByID(ctx context.Context, id uuid.UUID, requesterID uuid.UUID, isManager bool) (*InvoiceDTO, error) {
	inv, lines, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isManager && inv.UserID != requesterID {
		return nil, ErrAccessDenied
	}
	return s.toDTO(ctx, inv, lines), nil
}

// FindByPaymentReference returns the invoice recorded for a gateway payment
// reference, if one exists.
func (s *Service) FindByPaymentReference(ctx context.Context, paymentReference string) (*InvoiceDTO, error) {
	inv, err := s.invoices.FindByPaymentReference(ctx, paymentReference)
	if err != nil {
		return nil, err
	}
	return s.toDTO(ctx, inv, nil), nil
}

// FindByUserID returns a user's invoice headers, newest first.
func (s *Service) FindByUserID(ctx context.Context, userID uuid.UUID, offset, limit int32) ([]InvoiceDTO, error) {
	invoices, err := s.invoices.FindByUserID(ctx, &ledgerstore.FindByUserIDParams{
		UserID: userID,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return nil, err
	}
	dtos := make([]InvoiceDTO, 0, len(invoices))
	for i := range invoices {
		dtos = append(dtos, *s.toDTO(ctx, &invoices[i], nil))
	}
	return dtos, nil
}

func (s *Service) toDTO(ctx context.Context, inv *ledgerstore.Invoice, lines []ledgerstore.InvoiceLine) *InvoiceDTO {
	dto := &InvoiceDTO{
		ID:               inv.ID,
		UserID:           inv.UserID,
		TotalPrice:       inv.TotalPrice,
		PaymentReference: inv.PaymentReference,
		CreatedAt:        inv.CreatedAt,
	}
	if len(lines) == 0 {
		return dto
	}

	names := s.resolveNames(ctx, lines)
	dto.Lines = make([]InvoiceLineDTO, 0, len(lines))
	for _, line := range lines {
		name, ok := names[line.ProductID]
		if !ok {
			name = removedProductName
		}
		dto.Lines = append(dto.Lines, InvoiceLineDTO{
			ProductID:       line.ProductID,
			ProductName:     name,
			Quantity:        line.Quantity,
			UnitPriceAtSale: line.UnitPriceAtSale,
		})
	}
	return dto
}

func (s *Service) resolveNames(ctx context.Context, lines []ledgerstore.InvoiceLine) map[uuid.UUID]string {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	names := make(map[uuid.UUID]string, len(ids))
	products, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.log.WarnContext(ctx, "failed to resolve product names for invoice lines", slog.Any("error", err))
		return names
	}
	for _, p := range products {
		names[p.ID] = p.Name
	}
	return names
}
