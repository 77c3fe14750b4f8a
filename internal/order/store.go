package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aloxstore/storefront/internal/cart"
	"github.com/aloxstore/storefront/internal/pricing"
)

// Order is an append-only record of a completed payment. The priced cart
// and customer snapshot are frozen as stored; re-pricing never touches them.
type Order struct {
	ID                uuid.UUID          `json:"id"`
	Number            int64              `json:"number"`
	ProviderSessionID string             `json:"provider_session_id"`
	Currency          string             `json:"currency"`
	AmountTotalCents  int64              `json:"amount_total_cents"`
	Paid              bool               `json:"paid"`
	Cart              pricing.PricedCart `json:"cart"`
	Customer          *cart.Customer     `json:"customer,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	PaidAt            *time.Time         `json:"paid_at,omitempty"`
}

// Reference renders the human-readable order number.
func (o Order) Reference() string { return fmt.Sprintf("#%06d", o.Number) }

// Errors returned by the store.
var (
	ErrDuplicate = errors.New("order already exists for session")
	ErrNotFound  = errors.New("order not found")
)

// Store persists orders in Postgres. Order numbers come from a dedicated
// sequence, so they increase monotonically and survive restarts.
type Store struct {
	Pool *pgxpool.Pool
}

// Create inserts a new order, assigning its number from the sequence. A
// provider session id that was already recorded yields ErrDuplicate.
func (s *Store) Create(ctx context.Context, o *Order) error {
	if s == nil || s.Pool == nil {
		return errors.New("order: store is not configured")
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	err := s.Pool.QueryRow(ctx,
		`INSERT INTO orders (id, provider_session_id, currency, amount_total_cents, paid, cart, customer, paid_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING number, created_at`,
		o.ID, o.ProviderSessionID, o.Currency, o.AmountTotalCents, o.Paid, o.Cart, o.Customer, o.PaidAt,
	).Scan(&o.Number, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// FindBySession looks an order up by its provider session id.
func (s *Store) FindBySession(ctx context.Context, sessionID string) (Order, error) {
	if s == nil || s.Pool == nil {
		return Order{}, errors.New("order: store is not configured")
	}
	var o Order
	err := s.Pool.QueryRow(ctx,
		`SELECT id, number, provider_session_id, currency, amount_total_cents, paid, cart, customer, created_at, paid_at
		 FROM orders WHERE provider_session_id = $1`,
		sessionID,
	).Scan(&o.ID, &o.Number, &o.ProviderSessionID, &o.Currency, &o.AmountTotalCents,
		&o.Paid, &o.Cart, &o.Customer, &o.CreatedAt, &o.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, fmt.Errorf("find order by session: %w", err)
	}
	return o, nil
}
