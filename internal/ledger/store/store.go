// Package store provides an interface for invoice storage operations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrInvoiceNotFound = errors.New("invoice not found")
var ErrCreateInvoice = errors.New("failed to create invoice")
var ErrCreateInvoiceLine = errors.New("failed to create invoice line")
var ErrDuplicatePaymentReference = errors.New("an invoice already exists for this payment reference")
var ErrFailedToFindInvoice = errors.New("failed to find invoice")
var ErrFailedToFindUserInvoices = errors.New("failed to find user invoices")
var ErrFailedToFindInvoiceLines = errors.New("failed to find invoice lines")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// Invoice is the durable record of one successful checkout. Immutable after
// creation.
type Invoice struct {
	ID               uuid.UUID
	UserID           uuid.UUID
	TotalPrice       int64
	PaymentReference string
	CreatedAt        time.Time
}

// InvoiceLine snapshots one sold product. UnitPriceAtSale is the price at the
// moment of checkout and is never re-derived from the live catalog.
type InvoiceLine struct {
	ID              uuid.UUID
	InvoiceID       uuid.UUID
	ProductID       uuid.UUID
	Quantity        int32
	UnitPriceAtSale int64
}

type CreateInvoiceParams struct {
	UserID           uuid.UUID
	TotalPrice       int64
	PaymentReference string
}

type CreateLineParams struct {
	ProductID       uuid.UUID
	Quantity        int32
	UnitPriceAtSale int64
}

type FindByUserIDParams struct {
	UserID uuid.UUID
	Offset int32
	Limit  int32
}

// InvoiceStore is an interface for invoice storage operations.
// It abstracts the underlying data store, allowing for different implementations (e.g., in-memory, database).
type InvoiceStore interface {
	// CreateInvoice persists the invoice header and all line rows as one
	// durable, all-or-nothing unit.
	// Returns ErrDuplicatePaymentReference if an invoice already exists for
	// the given payment reference.
	CreateInvoice(ctx context.Context, params *CreateInvoiceParams, lines []CreateLineParams) (*Invoice, []InvoiceLine, error)

	// FindByID retrieves an invoice and its lines by the invoice identifier.
	// Returns ErrInvoiceNotFound if no invoice exists with the given ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, []InvoiceLine, error)

	// FindByPaymentReference retrieves the invoice recorded for a payment
	// reference, if any. Returns ErrInvoiceNotFound otherwise.
	FindByPaymentReference(ctx context.Context, paymentReference string) (*Invoice, error)

	// FindByUserID returns a user's invoices, newest first.
	FindByUserID(ctx context.Context, params *FindByUserIDParams) ([]Invoice, error)
}
