// Package report computes sales and catalog KPIs for the back office.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrReportQuery = errors.New("failed to run report query")

// TopProduct is one entry of the best-sellers ranking.
type TopProduct struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	UnitsSold int64     `json:"units_sold"`
	Revenue   int64     `json:"revenue"`
}

// DailyRevenue is the revenue recorded on one calendar day.
type DailyRevenue struct {
	Day     time.Time `json:"day"`
	Revenue int64     `json:"revenue"`
	Orders  int64     `json:"orders"`
}

// Store reads aggregated figures for reporting.
type Store interface {
	// TotalRevenueAndCount returns the sum of all invoice totals and the
	// number of invoices in the period.
	TotalRevenueAndCount(ctx context.Context, since time.Time) (int64, int64, error)

	// ProductCounts returns total products and how many are out of stock.
	ProductCounts(ctx context.Context) (int64, int64, error)

	// CustomerCounts returns how many distinct users placed an order in the
	// period and how many of them placed more than one.
	CustomerCounts(ctx context.Context, since time.Time) (int64, int64, error)

	// TopProducts ranks products by units sold in the period.
	TopProducts(ctx context.Context, since time.Time, limit int32) ([]TopProduct, error)

	// RevenueByDay buckets order revenue per calendar day in the period.
	RevenueByDay(ctx context.Context, since time.Time) ([]DailyRevenue, error)
}

// PgStore implements Store using a PostgreSQL connection pool.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a new instance of PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) TotalRevenueAndCount(ctx context.Context, since time.Time) (int64, int64, error) {
	var revenue, count int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_price), 0), COUNT(*) FROM invoices WHERE created_at >= $1`,
		since,
	).Scan(&revenue, &count)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	return revenue, count, nil
}

func (s *PgStore) ProductCounts(ctx context.Context) (int64, int64, error) {
	var total, outOfStock int64
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE available_quantity = 0) FROM products`,
	).Scan(&total, &outOfStock)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	return total, outOfStock, nil
}

func (s *PgStore) CustomerCounts(ctx context.Context, since time.Time) (int64, int64, error) {
	var customers, repeat int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE orders > 1)
		  FROM (SELECT user_id, COUNT(*) AS orders
		          FROM invoices
		         WHERE created_at >= $1
		         GROUP BY user_id) c`,
		since,
	).Scan(&customers, &repeat)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	return customers, repeat, nil
}

func (s *PgStore) TopProducts(ctx context.Context, since time.Time, limit int32) ([]TopProduct, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT il.product_id,
		       COALESCE(p.name, 'removed product'),
		       SUM(il.quantity)::bigint,
		       SUM(il.quantity * il.unit_price_at_sale)::bigint
		  FROM invoice_lines il
		  JOIN invoices i ON i.id = il.invoice_id
		  LEFT JOIN products p ON p.id = il.product_id
		 WHERE i.created_at >= $1
		 GROUP BY il.product_id, p.name
		 ORDER BY SUM(il.quantity) DESC
		 LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	defer rows.Close()

	products, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (TopProduct, error) {
		var tp TopProduct
		err := row.Scan(&tp.ProductID, &tp.Name, &tp.UnitsSold, &tp.Revenue)
		return tp, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	return products, nil
}

func (s *PgStore) RevenueByDay(ctx context.Context, since time.Time) ([]DailyRevenue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
		       COALESCE(SUM(total_price), 0)::bigint,
		       COUNT(*)::bigint
		  FROM invoices
		 WHERE created_at >= $1
		 GROUP BY day
		 ORDER BY day`,
		since)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	defer rows.Close()

	days, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DailyRevenue, error) {
		var d DailyRevenue
		err := row.Scan(&d.Day, &d.Revenue, &d.Orders)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReportQuery, err)
	}
	return days, nil
}
