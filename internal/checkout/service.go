package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cart"
	"github.com/aloxstore/storefront/internal/common"
	"github.com/aloxstore/storefront/internal/obs"
	"github.com/aloxstore/storefront/internal/payment"
	"github.com/aloxstore/storefront/internal/pricing"
)

// Checkout failure modes surfaced to the client.
var (
	ErrEmptyCart          = common.NewAppError("EMPTY_CART", "cart is empty", http.StatusUnprocessableEntity)
	ErrMixedCurrency      = common.NewAppError("MIXED_CURRENCY", "cart mixes currencies", http.StatusUnprocessableEntity)
	ErrPaymentUnavailable = common.NewAppError("PAYMENT_UNAVAILABLE", "payment is not configured", http.StatusServiceUnavailable)
)

// Service turns a cart into a provider checkout session.
type Service struct {
	Carts      *cart.Service
	Products   cart.ProductResolver
	Settings   cart.SettingsSource
	Provider   payment.Provider
	SuccessURL string
	CancelURL  string
	Logger     zerolog.Logger
}

// Create prices the cart and opens a hosted checkout session for its grand
// total. The cart token rides along in session metadata so the webhook can
// find the cart again.
func (s *Service) Create(ctx context.Context, token string) (payment.Session, error) {
	c, err := s.Carts.Get(ctx, token)
	if err != nil {
		return payment.Session{}, err
	}
	if c.IsEmpty() {
		return payment.Session{}, ErrEmptyCart
	}

	snap, err := s.Settings.Snapshot(ctx)
	if err != nil {
		return payment.Session{}, err
	}
	products, err := s.Products.ProductSet(ctx, c.ProductIDs())
	if err != nil {
		return payment.Session{}, err
	}

	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, Qty: it.Qty})
	}
	priced := pricing.Compute(lines, products, snap.PricingConfig(), time.Now())

	currency, err := pricing.SingleCurrency(priced.Lines)
	if err != nil {
		return payment.Session{}, ErrMixedCurrency
	}
	if currency == "" {
		currency = priced.Currency
	}

	secret := snap.SecretKey()
	if secret == "" {
		return payment.Session{}, ErrPaymentUnavailable
	}

	req := payment.SessionRequest{
		SecretKey:   secret,
		AmountTotal: priced.TotalGross,
		Currency:    currency,
		Description: fmt.Sprintf("Order (%d items)", len(c.Items)),
		SuccessURL:  s.SuccessURL,
		CancelURL:   s.CancelURL,
		Metadata:    map[string]string{"cart_token": token},
	}
	if c.Customer != nil {
		req.CustomerEmail = c.Customer.Email
	}

	sess, err := s.Provider.CreateCheckoutSession(ctx, req)
	if err != nil {
		s.observe("failed")
		s.Logger.Error().Err(err).Msg("checkout session creation failed")
		return payment.Session{}, err
	}
	s.observe("created")
	return sess, nil
}

func (s *Service) observe(result string) {
	if obs.CheckoutSessionTotal == nil {
		return
	}
	name := "unknown"
	if s.Provider != nil {
		name = s.Provider.Name()
	}
	obs.CheckoutSessionTotal.WithLabelValues(name, result).Inc()
}

// IsProviderError reports whether err came from the payment gateway.
func IsProviderError(err error) bool {
	return errors.Is(err, payment.ErrProvider)
}
