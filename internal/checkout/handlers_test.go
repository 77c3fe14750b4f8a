package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/aloxstore/storefront/internal/pricing"
	"github.com/aloxstore/storefront/internal/session"
	"github.com/aloxstore/storefront/internal/settings"
)

func postJSON(t *testing.T, h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req = req.WithContext(session.WithToken(req.Context(), "tok"))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

const validCustomer = `{
	"first_name": "Jo",
	"last_name": "Dupont",
	"email": "jo@example.com",
	"address_1": "1 rue de la Paix",
	"postcode": "75002",
	"city": "Paris",
	"country": "fr",
	"telephone": "+33123456789"
}`

func TestCustomerValidationErrors(t *testing.T) {
	svc, _ := newTestService(t, pricing.ProductSet{}, baseSnapshot(), &fakeProvider{})
	h := &Handler{Service: svc, Validate: NewValidator(), Logger: zerolog.Nop()}

	rr := postJSON(t, h.Customer, "/api/v1/checkout/customer", `{"first_name":"Jo"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"last_name", "email", "address_1", "postcode", "city", "country", "telephone"} {
		if body.Error.Details[field] == "" {
			t.Fatalf("missing field error for %s: %v", field, body.Error.Details)
		}
	}
	if _, ok := body.Error.Details["first_name"]; ok {
		t.Fatalf("first_name should be valid: %v", body.Error.Details)
	}
}

func TestCustomerSavedOnCart(t *testing.T) {
	svc, carts := newTestService(t, pricing.ProductSet{}, baseSnapshot(), &fakeProvider{})
	h := &Handler{Service: svc, Validate: NewValidator(), Logger: zerolog.Nop()}

	rr := postJSON(t, h.Customer, "/api/v1/checkout/customer", validCustomer)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	c, err := carts.Get(context.Background(), "tok")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if c.Customer == nil || c.Customer.Email != "jo@example.com" {
		t.Fatalf("customer = %+v", c.Customer)
	}
	if c.Customer.Country != "FR" {
		t.Fatalf("country should be upper-cased, got %q", c.Customer.Country)
	}
}

func TestCreateHandlerMapsEmptyCart(t *testing.T) {
	svc, _ := newTestService(t, pricing.ProductSet{}, baseSnapshot(), &fakeProvider{})
	h := &Handler{Service: svc, Validate: NewValidator(), Logger: zerolog.Nop()}

	rr := postJSON(t, h.Create, "/api/v1/checkout", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "EMPTY_CART") {
		t.Fatalf("body = %s", rr.Body.String())
	}
}

func TestConfigExposesPublishableKeyOnly(t *testing.T) {
	snap := settings.FromMap(map[string]string{
		settings.KeyStripeTestSK: "sk_test_x",
		settings.KeyStripeTestPK: "pk_test_x",
	})
	svc, _ := newTestService(t, pricing.ProductSet{}, snap, &fakeProvider{})
	h := &Handler{Service: svc, Validate: NewValidator(), Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/config", nil)
	rr := httptest.NewRecorder()
	h.Config(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data["publishable_key"] != "pk_test_x" || body.Data["currency"] != "EUR" {
		t.Fatalf("config = %v", body.Data)
	}
	if strings.Contains(rr.Body.String(), "sk_test_x") {
		t.Fatalf("secret key leaked: %s", rr.Body.String())
	}
}

func TestCreateHandlerReturnsSession(t *testing.T) {
	products := pricing.ProductSet{1: {Price: 1500, VATRate: 20, Currency: "EUR"}}
	svc, carts := newTestService(t, products, baseSnapshot(), &fakeProvider{})
	h := &Handler{Service: svc, Validate: NewValidator(), Logger: zerolog.Nop()}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	ctx := session.WithToken(req.Context(), "tok")
	if _, err := carts.Add(ctx, "tok", 1, 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	rr := httptest.NewRecorder()
	h.Create(rr, req.WithContext(ctx))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}
	var body struct {
		Data struct {
			SessionID string `json:"session_id"`
			URL       string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.SessionID != "cs_test_1" || body.Data.URL == "" {
		t.Fatalf("session = %+v", body.Data)
	}
}
