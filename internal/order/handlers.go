package order

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/aloxstore/storefront/internal/common"
	"github.com/aloxstore/storefront/internal/pricing"
)

// Source abstracts the order store for handlers and the webhook.
type Source interface {
	Create(ctx context.Context, o *Order) error
	FindBySession(ctx context.Context, sessionID string) (Order, error)
}

// View is the public order payload backing the success page. The session id
// is the lookup key the shopper already holds, so echoing it is harmless.
type View struct {
	Reference string             `json:"reference"`
	Currency  string             `json:"currency"`
	Amount    int64              `json:"amount_total_cents"`
	Paid      bool               `json:"paid"`
	Cart      pricing.PricedCart `json:"cart"`
	CreatedAt string             `json:"created_at"`
}

// Handler exposes order lookups.
type Handler struct {
	Orders Source
}

// BySession handles GET /orders/by-session/{sessionID}.
func (h *Handler) BySession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "missing session id", nil)
		return
	}

	o, err := h.Orders.FindBySession(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = common.ErrNotFound
		}
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, View{
		Reference: o.Reference(),
		Currency:  o.Currency,
		Amount:    o.AmountTotalCents,
		Paid:      o.Paid,
		Cart:      o.Cart,
		CreatedAt: o.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}
