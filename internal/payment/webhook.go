package payment

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cart"
	"github.com/aloxstore/storefront/internal/common"
	"github.com/aloxstore/storefront/internal/obs"
	"github.com/aloxstore/storefront/internal/order"
	"github.com/aloxstore/storefront/internal/pricing"
	"github.com/aloxstore/storefront/internal/settings"
)

// CompletedEvent is the only event type that records an order.
const CompletedEvent = "checkout.session.completed"

// OrderStore is the slice of the order store the webhook needs.
type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
	FindBySession(ctx context.Context, sessionID string) (order.Order, error)
}

// CartSource is the slice of the cart service the webhook needs.
type CartSource interface {
	Get(ctx context.Context, token string) (cart.Cart, error)
	Clear(ctx context.Context, token string) (cart.Cart, error)
}

// Webhook turns verified provider notifications into orders. Duplicate
// deliveries for a session id are answered with the already-recorded order,
// so the provider can redeliver freely.
type Webhook struct {
	Orders    OrderStore
	Carts     CartSource
	Products  cart.ProductResolver
	Settings  cart.SettingsSource
	Tolerance time.Duration
	Now       func() time.Time
	Logger    zerolog.Logger
}

type webhookResult struct {
	OrderID   string `json:"order_id,omitempty"`
	Reference string `json:"reference,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// HandleStripe handles POST /webhooks/payment/stripe.
func (h *Webhook) HandleStripe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "unreadable payload", nil)
		return
	}

	snap, err := h.Settings.Snapshot(ctx)
	if err != nil {
		h.Logger.Error().Err(err).Msg("webhook settings load failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings unavailable", nil)
		return
	}

	verifier := Verifier{Secret: snap.WebhookSecret, Tolerance: h.Tolerance, Now: h.Now}
	if err := verifier.Verify(payload, r.Header.Get("Stripe-Signature")); err != nil {
		h.observe("bad_signature")
		h.Logger.Warn().Err(err).Msg("webhook signature rejected")
		common.JSONError(w, http.StatusBadRequest, "INVALID_SIGNATURE", "signature verification failed", nil)
		return
	}

	event, err := ParseEvent(payload)
	if err != nil {
		h.observe("malformed")
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "malformed event", nil)
		return
	}
	if event.Type != CompletedEvent {
		h.observe("ignored")
		common.JSON(w, http.StatusOK, webhookResult{Ignored: true})
		return
	}
	if event.SessionID == "" {
		h.observe("malformed")
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "event missing session id", nil)
		return
	}

	if existing, err := h.Orders.FindBySession(ctx, event.SessionID); err == nil {
		h.observe("duplicate")
		common.JSON(w, http.StatusOK, webhookResult{
			OrderID:   existing.ID.String(),
			Reference: existing.Reference(),
			Duplicate: true,
		})
		return
	} else if !errors.Is(err, order.ErrNotFound) {
		h.Logger.Error().Err(err).Msg("webhook order lookup failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed", nil)
		return
	}

	token := event.Metadata["cart_token"]
	if token == "" {
		h.observe("malformed")
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "event missing cart token", nil)
		return
	}
	c, err := h.Carts.Get(ctx, token)
	if err != nil {
		h.Logger.Error().Err(err).Msg("webhook cart load failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart unavailable", nil)
		return
	}
	if c.IsEmpty() {
		// The cart expired between payment and delivery, and no order was
		// recorded. There is nothing to rebuild; acknowledge so the
		// provider stops redelivering, and leave the trail in the logs.
		h.observe("lost_cart")
		h.Logger.Error().Str("session_id", event.SessionID).Msg("completed payment but cart is gone")
		common.JSON(w, http.StatusOK, webhookResult{Ignored: true})
		return
	}

	priced, err := h.price(ctx, c, snap)
	if err != nil {
		h.Logger.Error().Err(err).Msg("webhook pricing failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "pricing failed", nil)
		return
	}

	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	o := &order.Order{
		ProviderSessionID: event.SessionID,
		Currency:          priced.Currency,
		AmountTotalCents:  priced.TotalGross,
		Paid:              true,
		Cart:              priced,
		Customer:          c.Customer,
		PaidAt:            &now,
	}
	if err := h.Orders.Create(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicate) {
			// Lost the race against a concurrent delivery; serve its result.
			existing, ferr := h.Orders.FindBySession(ctx, event.SessionID)
			if ferr != nil {
				common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order lookup failed", nil)
				return
			}
			h.observe("duplicate")
			common.JSON(w, http.StatusOK, webhookResult{
				OrderID:   existing.ID.String(),
				Reference: existing.Reference(),
				Duplicate: true,
			})
			return
		}
		h.observe("failed")
		h.Logger.Error().Err(err).Msg("webhook order creation failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order creation failed", nil)
		return
	}

	if _, err := h.Carts.Clear(ctx, token); err != nil {
		// The order exists; a stale cart is a nuisance, not a failure.
		h.Logger.Warn().Err(err).Str("token", token).Msg("cart clear after order failed")
	}

	h.observe("created")
	if obs.OrdersCreatedTotal != nil {
		obs.OrdersCreatedTotal.Inc()
	}
	common.JSON(w, http.StatusOK, webhookResult{
		OrderID:   o.ID.String(),
		Reference: o.Reference(),
	})
}

func (h *Webhook) price(ctx context.Context, c cart.Cart, snap settings.Snapshot) (pricing.PricedCart, error) {
	products, err := h.Products.ProductSet(ctx, c.ProductIDs())
	if err != nil {
		return pricing.PricedCart{}, err
	}
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, Qty: it.Qty})
	}
	now := time.Now()
	if h.Now != nil {
		now = h.Now()
	}
	return pricing.Compute(lines, products, snap.PricingConfig(), now), nil
}

func (h *Webhook) observe(result string) {
	if obs.PaymentWebhookTotal != nil {
		obs.PaymentWebhookTotal.WithLabelValues("stripe", result).Inc()
	}
}
