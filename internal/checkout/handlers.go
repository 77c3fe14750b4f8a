package checkout

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/cart"
	"github.com/aloxstore/storefront/internal/common"
	"github.com/aloxstore/storefront/internal/session"
)

// Handler exposes the checkout endpoints.
type Handler struct {
	Service  *Service
	Validate *validator.Validate
	Logger   zerolog.Logger
}

// NewValidator builds the validator used for customer snapshots.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// Customer handles POST /checkout/customer: validates the billing snapshot
// and writes it onto the cart.
func (h *Handler) Customer(w http.ResponseWriter, r *http.Request) {
	token, ok := session.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "missing cart session", nil)
		return
	}

	var input cart.Customer
	if err := common.DecodeJSON(r, &input); err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_INPUT", "invalid request body", nil)
		return
	}
	input.Country = strings.ToUpper(strings.TrimSpace(input.Country))
	input.ShipCountry = strings.ToUpper(strings.TrimSpace(input.ShipCountry))

	if err := h.Validate.Struct(input); err != nil {
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_INPUT", "invalid customer details", fieldErrors(err))
		return
	}

	c, err := h.Service.Carts.SetCustomer(r.Context(), token, input)
	if err != nil {
		h.Logger.Error().Err(err).Msg("save customer failed")
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "failed to save customer", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"customer": c.Customer})
}

// Create handles POST /checkout: prices the cart and returns the provider
// session the client should redirect to.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	token, ok := session.Token(r.Context())
	if !ok {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "missing cart session", nil)
		return
	}

	sess, err := h.Service.Create(r.Context(), token)
	if err != nil {
		if IsProviderError(err) {
			common.JSONError(w, http.StatusBadGateway, "PROVIDER_ERROR", "payment provider rejected the request", nil)
			return
		}
		if !common.WriteAppError(w, err) {
			h.Logger.Error().Err(err).Msg("checkout failed")
		}
		return
	}
	common.JSON(w, http.StatusOK, sess)
}

// Config handles GET /checkout/config: the publishable key and currency the
// storefront needs before starting a payment flow. Secret keys never leave
// the settings package through this path.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Service.Settings.Snapshot(r.Context())
	if err != nil {
		if !common.WriteAppError(w, err) {
			h.Logger.Error().Err(err).Msg("load checkout config failed")
		}
		return
	}
	common.JSON(w, http.StatusOK, map[string]string{
		"publishable_key": snap.PublishableKey(),
		"currency":        snap.Currency,
		"payment_mode":    snap.PaymentMode,
	})
}

// fieldErrors flattens validator errors into a field -> constraint map
// keyed by the JSON field names.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[jsonField(fe.Field())] = fe.Tag()
	}
	return out
}

func jsonField(structField string) string {
	switch structField {
	case "FirstName":
		return "first_name"
	case "LastName":
		return "last_name"
	case "Address1":
		return "address_1"
	case "Address2":
		return "address_2"
	case "ShipToDifferent":
		return "ship_to_different"
	case "ShipAddress1":
		return "ship_address_1"
	case "ShipAddress2":
		return "ship_address_2"
	case "ShipPostcode":
		return "ship_postcode"
	case "ShipCity":
		return "ship_city"
	case "ShipCountry":
		return "ship_country"
	default:
		return strings.ToLower(structField)
	}
}
