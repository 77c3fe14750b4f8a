package settings

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func adminRequest(t *testing.T, adminToken, header string) *httptest.ResponseRecorder {
	t.Helper()
	h := &Handler{AdminToken: adminToken}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/settings", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.RequireAdmin(next).ServeHTTP(rr, req)
	return rr
}

func TestRequireAdminDisabledWithoutToken(t *testing.T) {
	rr := adminRequest(t, "", "Bearer anything")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 when no admin token is configured", rr.Code)
	}
}

func TestRequireAdminRejectsBadToken(t *testing.T) {
	for _, header := range []string{"", "Bearer wrong", "Basic c2VjcmV0", "secret"} {
		rr := adminRequest(t, "secret", header)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rr.Code)
		}
	}
}

func TestRequireAdminAcceptsToken(t *testing.T) {
	rr := adminRequest(t, "secret", "Bearer secret")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
