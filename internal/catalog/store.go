package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is the catalog read model.
type Product struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Published        bool       `json:"published"`
	PriceCents       int64      `json:"priceCents"`
	SalePriceCents   int64      `json:"salePriceCents,omitempty"`
	SaleStart        *time.Time `json:"saleStart,omitempty"`
	SaleEnd          *time.Time `json:"saleEnd,omitempty"`
	VATRatePercent   float64    `json:"vatRatePercent"`
	Currency         string     `json:"currency"`
	RequiresShipping bool       `json:"requiresShipping"`
	WeightGram       int        `json:"weightGram,omitempty"`
	ManageStock      bool       `json:"manageStock"`
	StockQty         int        `json:"stockQty,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ErrNotFound is returned when the product does not exist or is unpublished.
var ErrNotFound = errors.New("product not found")

const productColumns = `id, title, slug, published, price_cents, COALESCE(sale_price_cents, 0),
	sale_start, sale_end, vat_rate_percent, currency, requires_shipping,
	weight_gram, manage_stock, stock_qty, created_at, updated_at`

// Store reads products from Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// List returns published products ordered by id, with the total count for
// pagination.
func (s *Store) List(ctx context.Context, page, limit int) ([]Product, int64, error) {
	if s == nil || s.Pool == nil {
		return nil, 0, errors.New("catalog: store is not configured")
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	var total int64
	if err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE published`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	rows, err := s.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE published ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	items, err := scanProducts(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ByID returns a published product by id.
func (s *Store) ByID(ctx context.Context, id int64) (Product, error) {
	if s == nil || s.Pool == nil {
		return Product{}, errors.New("catalog: store is not configured")
	}
	row := s.Pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 AND published`, id)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	if err != nil {
		return Product{}, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, nil
}

// ByIDs fetches published products by id in one round trip; absent ids are
// simply missing from the result.
func (s *Store) ByIDs(ctx context.Context, ids []int64) (map[int64]Product, error) {
	if s == nil || s.Pool == nil {
		return nil, errors.New("catalog: store is not configured")
	}
	out := make(map[int64]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE published AND id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	items, err := scanProducts(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var items []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan products: %w", err)
	}
	return items, nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Published, &p.PriceCents, &p.SalePriceCents,
		&p.SaleStart, &p.SaleEnd, &p.VATRatePercent, &p.Currency, &p.RequiresShipping,
		&p.WeightGram, &p.ManageStock, &p.StockQty, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
