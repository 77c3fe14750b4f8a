package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type fakeOrders struct {
	bySession map[string]Order
}

func (f *fakeOrders) Create(ctx context.Context, o *Order) error {
	if _, ok := f.bySession[o.ProviderSessionID]; ok {
		return ErrDuplicate
	}
	o.Number = int64(len(f.bySession) + 1)
	o.CreatedAt = time.Now()
	f.bySession[o.ProviderSessionID] = *o
	return nil
}

func (f *fakeOrders) FindBySession(ctx context.Context, sessionID string) (Order, error) {
	o, ok := f.bySession[sessionID]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

func TestReferenceFormat(t *testing.T) {
	o := Order{Number: 42}
	if o.Reference() != "#000042" {
		t.Fatalf("reference = %q", o.Reference())
	}
	o.Number = 1234567
	if o.Reference() != "#1234567" {
		t.Fatalf("reference past padding = %q", o.Reference())
	}
}

func newOrderRouter(orders Source) http.Handler {
	r := chi.NewRouter()
	h := &Handler{Orders: orders}
	r.Get("/orders/by-session/{sessionID}", h.BySession)
	return r
}

func TestBySessionFound(t *testing.T) {
	orders := &fakeOrders{bySession: map[string]Order{
		"cs_123": {
			ID:                uuid.New(),
			Number:            7,
			ProviderSessionID: "cs_123",
			Currency:          "EUR",
			AmountTotalCents:  2490,
			Paid:              true,
			CreatedAt:         time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	router := newOrderRouter(orders)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/by-session/cs_123", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rr.Code, rr.Body.String())
	}

	var body struct {
		Data View `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Reference != "#000007" || !body.Data.Paid || body.Data.Amount != 2490 {
		t.Fatalf("view = %+v", body.Data)
	}
}

func TestBySessionNotFound(t *testing.T) {
	router := newOrderRouter(&fakeOrders{bySession: map[string]Order{}})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders/by-session/cs_missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rr.Code)
	}
}
