package cart

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/common"
	"github.com/aloxstore/storefront/internal/pricing"
	"github.com/aloxstore/storefront/internal/session"
	"github.com/aloxstore/storefront/internal/settings"
)

// ProductResolver turns cart product ids into pricing input.
type ProductResolver interface {
	ProductSet(ctx context.Context, ids []int64) (pricing.ProductSet, error)
}

// SettingsSource provides the per-request configuration snapshot.
type SettingsSource interface {
	Snapshot(ctx context.Context) (settings.Snapshot, error)
}

// View is the cart representation returned by every cart endpoint: the raw
// items plus the derived pricing, recomputed on each request.
type View struct {
	Items    []Item             `json:"items"`
	Customer *Customer          `json:"customer,omitempty"`
	Pricing  pricing.PricedCart `json:"pricing"`
}

// Handler exposes the cart endpoints.
type Handler struct {
	Carts    *Service
	Products ProductResolver
	Settings SettingsSource
	Logger   zerolog.Logger
}

type mutateRequest struct {
	ProductID int64 `json:"product_id"`
	Qty       int   `json:"qty"`
}

// Get handles GET /cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	token, ok := session.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "missing cart session", nil)
		return
	}
	c, err := h.Carts.Get(r.Context(), token)
	if err != nil {
		h.Logger.Error().Err(err).Msg("load cart failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load cart", nil)
		return
	}
	h.respond(w, r, c)
}

// Add handles POST /cart/add.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, token string, req mutateRequest) (Cart, error) {
		return h.Carts.Add(ctx, token, req.ProductID, req.Qty)
	})
}

// SetQty handles POST /cart/set-qty.
func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, token string, req mutateRequest) (Cart, error) {
		return h.Carts.SetQty(ctx, token, req.ProductID, req.Qty)
	})
}

// Remove handles POST /cart/remove.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(ctx context.Context, token string, req mutateRequest) (Cart, error) {
		return h.Carts.Remove(ctx, token, req.ProductID)
	})
}

// Clear handles POST /cart/clear.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	token, ok := session.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "missing cart session", nil)
		return
	}
	c, err := h.Carts.Clear(r.Context(), token)
	if err != nil {
		h.Logger.Error().Err(err).Msg("clear cart failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to clear cart", nil)
		return
	}
	h.respond(w, r, c)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, apply func(context.Context, string, mutateRequest) (Cart, error)) {
	token, ok := session.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "missing cart session", nil)
		return
	}
	var req mutateRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	if req.ProductID < 1 {
		common.WriteAppError(w, common.ErrInvalidInput)
		return
	}

	c, err := apply(r.Context(), token, req)
	if err != nil {
		h.Logger.Error().Err(err).Int64("product_id", req.ProductID).Msg("cart mutation failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to update cart", nil)
		return
	}
	h.respond(w, r, c)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, c Cart) {
	priced, err := h.Price(r.Context(), c)
	if err != nil {
		h.Logger.Error().Err(err).Msg("price cart failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to price cart", nil)
		return
	}
	items := c.Items
	if items == nil {
		items = []Item{}
	}
	common.JSON(w, http.StatusOK, View{Items: items, Customer: c.Customer, Pricing: priced})
}

// Price computes the derived totals for a cart against the current settings
// snapshot and catalog state.
func (h *Handler) Price(ctx context.Context, c Cart) (pricing.PricedCart, error) {
	snap, err := h.Settings.Snapshot(ctx)
	if err != nil {
		return pricing.PricedCart{}, err
	}
	products, err := h.Products.ProductSet(ctx, c.ProductIDs())
	if err != nil {
		return pricing.PricedCart{}, err
	}
	lines := make([]pricing.Line, 0, len(c.Items))
	for _, it := range c.Items {
		lines = append(lines, pricing.Line{ProductID: it.ProductID, Qty: it.Qty})
	}
	return pricing.Compute(lines, products, snap.PricingConfig(), time.Now()), nil
}
