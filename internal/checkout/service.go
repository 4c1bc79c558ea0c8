// Package checkout orchestrates the transaction that turns a cart into a
// recorded order: price snapshot, stock check, payment capture, stock
// decrement, invoice persistence, in that order. The payment provider is the
// point of no return; everything after a successful capture must either
// complete or surface a reconciliation condition.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"

	"github.com/trinitystore/backoffice/internal/catalog/store"
	"github.com/trinitystore/backoffice/internal/gateway"
	"github.com/trinitystore/backoffice/internal/inventory"
	"github.com/trinitystore/backoffice/internal/ledger"
	ledgerstore "github.com/trinitystore/backoffice/internal/ledger/store"
	"github.com/trinitystore/backoffice/pkg/messaging"
	"github.com/trinitystore/backoffice/pkg/messaging/events"
)

// LineItem is one cart entry as submitted by the client.
type LineItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int32     `json:"quantity" validate:"required,gt=0"`
}

// Billing is opaque billing metadata supplied by the client. It is carried
// through to the recorded-invoice event without validation.
type Billing map[string]any

// Intent is a provider-side pending payment for a priced cart. No money has
// moved and no local state has changed when an Intent is returned.
type Intent struct {
	IntentID string `json:"intent_id"`
	Total    int64  `json:"total"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

// Confirmation is the terminal result of a completed checkout.
type Confirmation struct {
	InvoiceID        uuid.UUID `json:"invoice_id"`
	Total            int64     `json:"total"`
	PaymentReference string    `json:"payment_reference"`
	Status           Status    `json:"status"`
}

// Orchestrator drives the two client-facing checkout operations.
type Orchestrator interface {
	// PrepareIntent validates and prices the cart, verifies stock, and
	// creates a pending payment intent at the provider. Read-only locally.
	PrepareIntent(ctx context.Context, userID uuid.UUID, items []LineItem) (*Intent, error)

	// Complete captures the payment for a previously prepared intent, then
	// commits the stock decrement and records the invoice. Returns a
	// *ReconciliationError when the capture succeeded but a later step
	// failed.
	Complete(ctx context.Context, userID uuid.UUID, paymentReference string, items []LineItem, billing Billing) (*Confirmation, error)
}

// pricedLine is a cart line joined with its catalog price snapshot.
type pricedLine struct {
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice int64
}

// Service implements Orchestrator.
type Service struct {
	products  store.ProductStore
	guard     inventory.Guard
	gateway   gateway.Client
	ledger    *ledger.Service
	publisher messaging.Publisher
	currency  string
	log       *slog.Logger

	checkoutsCompleted metric.Int64Counter
	checkoutsFailed    metric.Int64Counter
	reconciliations    metric.Int64Counter
}

// NewService creates a new instance of Service.
// It panics if metric instruments cannot be created, as this indicates a programming error.
func NewService(
	products store.ProductStore,
	guard inventory.Guard,
	gw gateway.Client,
	ledgerSvc *ledger.Service,
	publisher messaging.Publisher,
	meter metric.Meter,
	currency string,
	log *slog.Logger,
) *Service {
	completed, err := meter.Int64Counter("checkouts_completed_total",
		metric.WithDescription("Total number of checkouts recorded successfully"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_completed_total counter: %v", err))
	}
	failed, err := meter.Int64Counter("checkouts_failed_total",
		metric.WithDescription("Total number of checkouts that did not complete"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkouts_failed_total counter: %v", err))
	}
	reconciliations, err := meter.Int64Counter("checkout_reconciliations_total",
		metric.WithDescription("Total number of captures left without a recorded order"))
	if err != nil {
		panic(fmt.Sprintf("failed to create checkout_reconciliations_total counter: %v", err))
	}
	return &Service{
		products:           products,
		guard:              guard,
		gateway:            gw,
		ledger:             ledgerSvc,
		publisher:          publisher,
		currency:           currency,
		log:                log,
		checkoutsCompleted: completed,
		checkoutsFailed:    failed,
		reconciliations:    reconciliations,
	}
}

// PrepareIntent prices the cart and opens a pending payment at the provider.
func (s *Service) PrepareIntent(ctx context.Context, userID uuid.UUID, items []LineItem) (*Intent, error) {
	priced, total, err := s.priceCart(ctx, items)
	if err != nil {
		return nil, err
	}
	if err := s.guard.CheckAvailability(ctx, toInventoryLines(priced)); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, total, s.currency)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "payment intent created",
		slog.String("user_id", userID.String()),
		slog.String("intent_id", intent.ID),
		slog.Int64("total", total))
	return &Intent{
		IntentID: intent.ID,
		Total:    total,
		Currency: intent.Currency,
		Status:   string(intent.Status),
	}, nil
}

// Complete runs the irreversible half of the checkout. The order of
// operations is fixed: re-validate, capture, decrement, record. A capture is
// never issued twice for the same payment reference; if an invoice already
// exists the previous confirmation is returned unchanged.
func (s *Service) Complete(ctx context.Context, userID uuid.UUID, paymentReference string, items []LineItem, billing Billing) (*Confirmation, error) {
	priced, total, err := s.priceCart(ctx, items)
	if err != nil {
		s.checkoutsFailed.Add(ctx, 1)
		return nil, err
	}
	// Replay of an already-recorded checkout: return the original outcome
	// without touching the provider or stock again. Runs before the stock
	// check, which would otherwise reject a retry whose own commit consumed
	// the stock.
	if existing, err := s.ledger.FindByPaymentReference(ctx, paymentReference); err == nil {
		s.log.InfoContext(ctx, "checkout replayed for recorded payment reference",
			slog.String("payment_reference", paymentReference),
			slog.String("invoice_id", existing.ID.String()))
		return &Confirmation{
			InvoiceID:        existing.ID,
			Total:            existing.TotalPrice,
			PaymentReference: existing.PaymentReference,
			Status:           StatusRecorded,
		}, nil
	} else if !errors.Is(err, ledgerstore.ErrInvoiceNotFound) {
		s.checkoutsFailed.Add(ctx, 1)
		return nil, err
	}

	if err := s.guard.CheckAvailability(ctx, toInventoryLines(priced)); err != nil {
		s.checkoutsFailed.Add(ctx, 1)
		return nil, err
	}

	capture, err := s.gateway.CaptureIntent(ctx, paymentReference)
	if err != nil {
		s.checkoutsFailed.Add(ctx, 1)
		return nil, err
	}
	if capture.Status != gateway.StatusCompleted {
		s.checkoutsFailed.Add(ctx, 1)
		s.log.WarnContext(ctx, "payment capture declined",
			slog.String("payment_reference", paymentReference),
			slog.String("status", string(capture.Status)))
		return nil, fmt.Errorf("%w: capture status %s", ErrPaymentNotCompleted, capture.Status)
	}
	if capture.Amount != 0 && capture.Amount != total {
		return nil, s.reconcile(ctx, userID, paymentReference, capture.CaptureID, total,
			fmt.Errorf("captured amount %d does not match cart total %d", capture.Amount, total))
	}

	// Point of no return crossed: every failure from here on leaves a
	// captured payment behind and must be reconciled, never retried blindly.
	if err := s.guard.CommitDecrement(ctx, toInventoryLines(priced)); err != nil {
		return nil, s.reconcile(ctx, userID, paymentReference, capture.CaptureID, total, err)
	}

	lineParams := make([]ledgerstore.CreateLineParams, 0, len(priced))
	for _, l := range priced {
		lineParams = append(lineParams, ledgerstore.CreateLineParams{
			ProductID:       l.ProductID,
			Quantity:        l.Quantity,
			UnitPriceAtSale: l.UnitPrice,
		})
	}
	invoice, err := s.ledger.Record(ctx, ledger.RecordParams{
		UserID:           userID,
		TotalPrice:       total,
		PaymentReference: paymentReference,
		Lines:            lineParams,
	})
	if err != nil {
		return nil, s.reconcile(ctx, userID, paymentReference, capture.CaptureID, total, err)
	}

	s.checkoutsCompleted.Add(ctx, 1)
	s.publish(ctx, events.InvoiceRecordedEvent{
		InvoiceID:        invoice.ID,
		UserID:           userID,
		TotalPrice:       total,
		PaymentReference: paymentReference,
		Billing:          billing,
		CreatedAt:        invoice.CreatedAt,
	})

	return &Confirmation{
		InvoiceID:        invoice.ID,
		Total:            total,
		PaymentReference: paymentReference,
		Status:           StatusRecorded,
	}, nil
}

// priceCart validates the cart and snapshots current catalog prices. The
// returned total and unit prices are fixed for the rest of the checkout; a
// concurrent price change does not affect an attempt already priced.
func (s *Service) priceCart(ctx context.Context, items []LineItem) ([]pricedLine, int64, error) {
	if len(items) == 0 {
		return nil, 0, ErrEmptyCart
	}
	merged := make(map[uuid.UUID]int32, len(items))
	order := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: product %s quantity %d", ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
		if _, ok := merged[item.ProductID]; !ok {
			order = append(order, item.ProductID)
		}
		merged[item.ProductID] += item.Quantity
	}

	products, err := s.products.FindByIDs(ctx, order)
	if err != nil {
		return nil, 0, err
	}
	prices := make(map[uuid.UUID]int64, len(products))
	for _, p := range products {
		prices[p.ID] = p.Price
	}

	priced := make([]pricedLine, 0, len(order))
	var total int64
	for _, id := range order {
		price, ok := prices[id]
		if !ok {
			return nil, 0, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
		}
		qty := merged[id]
		priced = append(priced, pricedLine{ProductID: id, Quantity: qty, UnitPrice: price})
		total += price * int64(qty)
	}
	return priced, total, nil
}

// reconcile records that a captured payment has no completed order behind it.
// The capture is intentionally left in place.
func (s *Service) reconcile(ctx context.Context, userID uuid.UUID, paymentReference, captureID string, total int64, cause error) error {
	s.reconciliations.Add(ctx, 1)
	s.log.ErrorContext(ctx, "payment captured but order completion failed, manual reconciliation required",
		slog.String("user_id", userID.String()),
		slog.String("payment_reference", paymentReference),
		slog.String("capture_id", captureID),
		slog.Int64("total", total),
		slog.Any("error", cause))
	s.publish(ctx, events.ReconciliationRequiredEvent{
		UserID:           userID,
		PaymentReference: paymentReference,
		CaptureID:        captureID,
		TotalPrice:       total,
		Reason:           cause.Error(),
		OccurredAt:       time.Now().UTC(),
	})
	return &ReconciliationError{
		PaymentReference: paymentReference,
		CaptureID:        captureID,
		Total:            total,
		Cause:            cause,
	}
}

func (s *Service) publish(ctx context.Context, event messaging.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.ErrorContext(ctx, "failed to publish checkout event",
			slog.String("subject", event.Subject()),
			slog.Any("error", err))
	}
}

func toInventoryLines(priced []pricedLine) []inventory.Line {
	lines := make([]inventory.Line, 0, len(priced))
	for _, l := range priced {
		lines = append(lines, inventory.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return lines
}
