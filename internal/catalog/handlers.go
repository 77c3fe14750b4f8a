package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aloxstore/storefront/internal/common"
)

// Handler exposes public catalog endpoints.
type Handler struct {
	Service *Service
}

// List handles GET /products.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog unavailable", nil)
		return
	}
	page := common.QueryInt(r, "page", 1)
	limit := common.QueryInt(r, "limit", 20)

	result, err := h.Service.List(r.Context(), page, limit)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to list products", nil)
		return
	}
	common.JSON(w, http.StatusOK, result)
}

// Get handles GET /products/{productID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog unavailable", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil || id < 1 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid product id", nil)
		return
	}

	product, err := h.Service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			err = common.ErrNotFound
		}
		common.WriteAppError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, product)
}
