package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func csrfHandler(t *testing.T, mw CSRF) http.Handler {
	t.Helper()
	return mw.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCSRFAllowsSafeMethods(t *testing.T) {
	h := csrfHandler(t, CSRF{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("GET should bypass, got %d", rr.Code)
	}
}

func TestCSRFRejectsMissingToken(t *testing.T) {
	h := csrfHandler(t, CSRF{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCSRFDoubleSubmitMatch(t *testing.T) {
	h := csrfHandler(t, CSRF{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader("{}"))
	req.Header.Set("X-CSRF-Token", "tok-123")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "tok-123"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("matching token rejected: %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/cart/add", strings.NewReader("{}"))
	req.Header.Set("X-CSRF-Token", "tok-123")
	req.AddCookie(&http.Cookie{Name: "X-CSRF-Token", Value: "tok-456"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("mismatched token accepted: %d", rr.Code)
	}
}

func TestCSRFExemptPrefix(t *testing.T) {
	h := csrfHandler(t, CSRF{ExemptPrefixes: []string{"/api/v1/webhooks/"}})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment/stripe", strings.NewReader("{}"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("webhook path should bypass csrf, got %d", rr.Code)
	}
}

func TestCSRFBearerBypass(t *testing.T) {
	h := csrfHandler(t, CSRF{})
	req := httptest.NewRequest(http.MethodPut, "/api/v1/admin/settings", strings.NewReader("{}"))
	req.Header.Set("Authorization", "Bearer admin-token")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("bearer request should bypass csrf, got %d", rr.Code)
	}
}
