package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `id, off_id, name, brand, category, price, picture, nutritional_info, available_quantity, version, created_at`

// PgStore implements ProductStore using PostgreSQL as the data store.
type PgStore struct {
	db *pgxpool.Pool
}

// NewPgStore creates a new instance of ProductStore using a PostgreSQL connection pool.
func NewPgStore(dbp *pgxpool.Pool) *PgStore {
	return &PgStore{db: dbp}
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OffID, &p.Name, &p.Brand, &p.Category, &p.Price,
		&p.Picture, &p.NutritionalInfo, &p.AvailableQuantity, &p.Version, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByID retrieves a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID.
func (s *PgStore) FindByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return product, nil
}

// FindByIDs retrieves products by IDs.
func (s *PgStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find products by IDs: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// FindByOffID retrieves a product by its external barcode.
func (s *PgStore) FindByOffID(ctx context.Context, offID string) (*Product, error) {
	row := s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE off_id = $1`, offID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by barcode: %w", err)
	}
	return product, nil
}

// FindAll retrieves all available products with pagination support.
func (s *PgStore) FindAll(ctx context.Context, offset, limit int32) ([]Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to find all products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// SearchByName returns products whose name matches the query, case-insensitively.
func (s *PgStore) SearchByName(ctx context.Context, query string, limit int32) ([]Product, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE name ILIKE '%' || $1 || '%' ORDER BY name LIMIT $2`,
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()
	return collectProducts(rows)
}

// Create adds a new product to the catalog.
func (s *PgStore) Create(ctx context.Context, params CreateParams) (*Product, error) {
	row := s.db.QueryRow(ctx,
		`INSERT INTO products (id, off_id, name, brand, category, price, picture, nutritional_info, available_quantity, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1, now())
		 RETURNING `+productColumns,
		uuid.New(), params.OffID, params.Name, params.Brand, params.Category,
		params.Price, params.Picture, params.NutritionalInfo, params.Stock)
	product, err := scanProduct(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateBarcode
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// Update modifies an existing product's details.
// Returns ErrProductNotFound if no product exists with the given ID and version.
func (s *PgStore) Update(ctx context.Context, params UpdateParams) (*Product, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE products
		 SET name = $2, brand = $3, category = $4, price = $5, available_quantity = $6, version = version + 1
		 WHERE id = $1 AND version = $7
		 RETURNING `+productColumns,
		params.ID, params.Name, params.Brand, params.Category, params.Price, params.Stock, params.Version)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

// UpdatePrice changes only the unit price of a product.
func (s *PgStore) UpdatePrice(ctx context.Context, id uuid.UUID, price int64) (*Product, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE products SET price = $2, version = version + 1 WHERE id = $1 RETURNING `+productColumns,
		id, price)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product price: %w", err)
	}
	return product, nil
}

// DeleteByID removes a product by its unique identifier.
// Returns ErrProductNotFound if no product exists with the given ID and version.
func (s *PgStore) DeleteByID(ctx context.Context, id uuid.UUID, version int32) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM products WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("failed to delete product by ID: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func collectProducts(rows pgx.Rows) ([]Product, error) {
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product rows: %w", err)
	}
	return products, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
