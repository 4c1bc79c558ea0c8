package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgGuard implements Guard on the products table. The commit relies on the
// database row lock taken by UPDATE: two commits racing for the same product
// serialize on that lock, and the "available_quantity >= requested" predicate
// is evaluated under it, so the counter can never be driven below zero.
type PgGuard struct {
	db *pgxpool.Pool
}

func NewPgGuard(dbp *pgxpool.Pool) *PgGuard {
	return &PgGuard{db: dbp}
}

// CheckAvailability verifies every line against a single consistent read.
func (g *PgGuard) CheckAvailability(ctx context.Context, lines []Line) error {
	merged := mergeLines(lines)

	ids := make([]uuid.UUID, 0, len(merged))
	byID := make(map[uuid.UUID]Line, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
		byID[l.ProductID] = l
	}

	rows, err := g.db.Query(ctx,
		`SELECT id, available_quantity FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("failed to read stock: %w", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var id uuid.UUID
		var available int32
		if err := rows.Scan(&id, &available); err != nil {
			return fmt.Errorf("failed to scan stock row: %w", err)
		}
		line := byID[id]
		if available < line.Quantity {
			return &InsufficientStockError{ProductID: line.ProductID, Available: available, Requested: line.Quantity}
		}
		seen++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read stock rows: %w", err)
	}
	if seen != len(merged) {
		return ErrUnknownProduct
	}
	return nil
}

// CommitDecrement applies the conditional decrement for every line inside one
// transaction. A line that cannot be covered rolls back the whole commit.
func (g *PgGuard) CommitDecrement(ctx context.Context, lines []Line) error {
	merged := mergeLines(lines)

	tx, err := g.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin stock transaction: %w", err)
	}
	// Rollback is a no-op once the transaction committed.
	defer func() { _ = tx.Rollback(ctx) }()

	for _, line := range merged {
		tag, execErr := tx.Exec(ctx,
			`UPDATE products
			 SET available_quantity = available_quantity - $2, version = version + 1
			 WHERE id = $1 AND available_quantity >= $2`,
			line.ProductID, line.Quantity)
		if execErr != nil {
			return fmt.Errorf("failed to decrement stock for product %s: %w", line.ProductID, execErr)
		}
		if tag.RowsAffected() == 0 {
			// Distinguish a vanished product from a genuine shortage.
			var available int32
			scanErr := tx.QueryRow(ctx,
				`SELECT available_quantity FROM products WHERE id = $1`, line.ProductID).Scan(&available)
			if errors.Is(scanErr, pgx.ErrNoRows) {
				return fmt.Errorf("product %s: %w", line.ProductID, ErrUnknownProduct)
			}
			if scanErr != nil {
				return fmt.Errorf("failed to inspect stock for product %s: %w", line.ProductID, scanErr)
			}
			return &InsufficientStockError{ProductID: line.ProductID, Available: available, Requested: line.Quantity}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit stock decrement: %w", err)
	}
	return nil
}
