package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgStore implements InvoiceStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of InvoiceStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func (p *PgStore) CreateInvoice(ctx context.Context, params *CreateInvoiceParams, lines []CreateLineParams) (*Invoice, []InvoiceLine, error) {
	var createdInvoice *Invoice
	var createdLines []InvoiceLine

	// Use transaction to ensure atomicity: header and lines land together or not at all.
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var inv Invoice
		err := tx.QueryRow(ctx,
			`INSERT INTO invoices (id, user_id, total_price, payment_reference, created_at)
			 VALUES ($1, $2, $3, $4, now())
			 RETURNING id, user_id, total_price, payment_reference, created_at`,
			uuid.New(), params.UserID, params.TotalPrice, params.PaymentReference).
			Scan(&inv.ID, &inv.UserID, &inv.TotalPrice, &inv.PaymentReference, &inv.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicatePaymentReference
			}
			return ErrCreateInvoice
		}

		invoiceLines := make([]InvoiceLine, 0, len(lines))
		for _, line := range lines {
			var l InvoiceLine
			err := tx.QueryRow(ctx,
				`INSERT INTO invoice_lines (id, invoice_id, product_id, quantity, unit_price_at_sale)
				 VALUES ($1, $2, $3, $4, $5)
				 RETURNING id, invoice_id, product_id, quantity, unit_price_at_sale`,
				uuid.New(), inv.ID, line.ProductID, line.Quantity, line.UnitPriceAtSale).
				Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Quantity, &l.UnitPriceAtSale)
			if err != nil {
				return ErrCreateInvoiceLine
			}
			invoiceLines = append(invoiceLines, l)
		}
		createdInvoice = &inv
		createdLines = invoiceLines
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return createdInvoice, createdLines, nil
}

func (p *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Invoice, []InvoiceLine, error) {
	var invoice *Invoice
	var invoiceLines []InvoiceLine

	// Use transaction to ensure the header and lines come from one consistent snapshot.
	txErr := p.withTransaction(ctx, func(tx pgx.Tx) error {
		var inv Invoice
		err := tx.QueryRow(ctx,
			`SELECT id, user_id, total_price, payment_reference, created_at FROM invoices WHERE id = $1`, id).
			Scan(&inv.ID, &inv.UserID, &inv.TotalPrice, &inv.PaymentReference, &inv.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvoiceNotFound
			}
			return ErrFailedToFindInvoice
		}

		rows, err := tx.Query(ctx,
			`SELECT id, invoice_id, product_id, quantity, unit_price_at_sale
			 FROM invoice_lines WHERE invoice_id = $1 ORDER BY id`, id)
		if err != nil {
			return ErrFailedToFindInvoiceLines
		}
		defer rows.Close()

		lines := make([]InvoiceLine, 0)
		for rows.Next() {
			var l InvoiceLine
			if err := rows.Scan(&l.ID, &l.InvoiceID, &l.ProductID, &l.Quantity, &l.UnitPriceAtSale); err != nil {
				return ErrFailedToFindInvoiceLines
			}
			lines = append(lines, l)
		}
		if rows.Err() != nil {
			return ErrFailedToFindInvoiceLines
		}
		invoice = &inv
		invoiceLines = lines
		return nil
	})

	if txErr != nil {
		return nil, nil, txErr
	}

	return invoice, invoiceLines, nil
}

func (p *PgStore) FindByPaymentReference(ctx context.Context, paymentReference string) (*Invoice, error) {
	var inv Invoice
	err := p.db.QueryRow(ctx,
		`SELECT id, user_id, total_price, payment_reference, created_at
		 FROM invoices WHERE payment_reference = $1`, paymentReference).
		Scan(&inv.ID, &inv.UserID, &inv.TotalPrice, &inv.PaymentReference, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvoiceNotFound
		}
		return nil, ErrFailedToFindInvoice
	}
	return &inv, nil
}

func (p *PgStore) FindByUserID(ctx context.Context, params *FindByUserIDParams) ([]Invoice, error) {
	// No need for transaction here as we are making just one query to fetch invoices
	rows, err := p.db.Query(ctx,
		`SELECT id, user_id, total_price, payment_reference, created_at
		 FROM invoices WHERE user_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2 OFFSET $3`,
		params.UserID, params.Limit, params.Offset)
	if err != nil {
		return nil, ErrFailedToFindUserInvoices
	}
	defer rows.Close()

	invoices := make([]Invoice, 0)
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.UserID, &inv.TotalPrice, &inv.PaymentReference, &inv.CreatedAt); err != nil {
			return nil, ErrFailedToFindUserInvoices
		}
		invoices = append(invoices, inv)
	}
	if rows.Err() != nil {
		return nil, ErrFailedToFindUserInvoices
	}
	return invoices, nil
}

func (p *PgStore) withTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return ErrTransactionBegin
	}

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return ErrTransactionRollback
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return ErrTransactionCommit
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
