package settings

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/aloxstore/storefront/internal/common"
)

// Handler exposes the admin settings surface, guarded by a static bearer
// token from the environment.
type Handler struct {
	Service    *Service
	AdminToken string
}

// RequireAdmin rejects requests without the configured bearer token. An
// empty configured token disables the surface entirely.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(h.AdminToken) == "" {
			common.WriteAppError(w, common.ErrNotFound)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		token, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(h.AdminToken)) != 1 {
			common.WriteAppError(w, common.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Get handles GET /admin/settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Snapshot(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to load settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, snap)
}

// Put handles PUT /admin/settings. The body is a flat key/value object of
// known setting keys; omitted keys keep their stored values.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := common.DecodeJSON(r, &body); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	if len(body) == 0 {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "no settings provided", nil)
		return
	}

	snap, err := h.Service.Update(r.Context(), body)
	if err != nil {
		if errors.Is(err, ErrUnknownKey) {
			common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_INPUT", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save settings", nil)
		return
	}
	common.JSON(w, http.StatusOK, snap)
}
