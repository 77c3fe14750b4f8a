package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMiddlewareMintsToken(t *testing.T) {
	var got string
	h := Manager{TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := Token(r.Context())
		if !ok {
			t.Fatalf("token missing from context")
		}
		got = tok
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if uuid.Validate(got) != nil {
		t.Fatalf("minted token is not a uuid: %q", got)
	}

	cookies := rr.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName {
		t.Fatalf("expected %s cookie, got %v", CookieName, cookies)
	}
	if !cookies[0].HttpOnly {
		t.Fatalf("cookie must be http-only")
	}
	if cookies[0].Value != got {
		t.Fatalf("cookie value %q != context token %q", cookies[0].Value, got)
	}
}

func TestMiddlewareReusesExistingToken(t *testing.T) {
	existing := uuid.NewString()
	var got string
	h := Manager{TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Token(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: existing})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got != existing {
		t.Fatalf("token = %q, want %q", got, existing)
	}
	if len(rr.Result().Cookies()) != 0 {
		t.Fatalf("valid token must not be re-issued")
	}
}

func TestMiddlewareReplacesMalformedToken(t *testing.T) {
	var got string
	h := Manager{TTL: time.Hour}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = Token(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "not-a-uuid"})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got == "not-a-uuid" || uuid.Validate(got) != nil {
		t.Fatalf("malformed token kept: %q", got)
	}
}
