package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotAuth string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = map[string]string{}
		for k := range r.PostForm {
			gotForm[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cs_test_42","url":"https://checkout.stripe.com/c/cs_test_42"}`)
	}))
	defer srv.Close()

	s := &Stripe{BaseURL: srv.URL, HTTPClient: srv.Client()}
	sess, err := s.CreateCheckoutSession(context.Background(), SessionRequest{
		SecretKey:     "sk_test_abc",
		AmountTotal:   2490,
		Currency:      "EUR",
		Description:   "Order (2 items)",
		CustomerEmail: "jo@example.com",
		SuccessURL:    "https://shop.example/success",
		CancelURL:     "https://shop.example/cancel",
		Metadata:      map[string]string{"cart_token": "tok-1"},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if sess.ID != "cs_test_42" || sess.URL == "" {
		t.Fatalf("session = %+v", sess)
	}

	if gotAuth != "Bearer sk_test_abc" {
		t.Fatalf("auth = %q", gotAuth)
	}
	checks := map[string]string{
		"mode":           "payment",
		"success_url":    "https://shop.example/success",
		"cancel_url":     "https://shop.example/cancel",
		"customer_email": "jo@example.com",
		"line_items[0][quantity]":                          "1",
		"line_items[0][price_data][currency]":              "eur",
		"line_items[0][price_data][unit_amount]":           "2490",
		"line_items[0][price_data][product_data][name]":    "Order (2 items)",
		"metadata[cart_token]":                             "tok-1",
	}
	for k, want := range checks {
		if gotForm[k] != want {
			t.Fatalf("form[%s] = %q, want %q", k, gotForm[k], want)
		}
	}
}

func TestCreateCheckoutSessionAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		fmt.Fprint(w, `{"error":{"message":"Your card was declined."}}`)
	}))
	defer srv.Close()

	s := &Stripe{BaseURL: srv.URL, HTTPClient: srv.Client()}
	_, err := s.CreateCheckoutSession(context.Background(), SessionRequest{
		SecretKey:   "sk_test_abc",
		AmountTotal: 100,
		Currency:    "EUR",
		SuccessURL:  "https://s",
		CancelURL:   "https://c",
	})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestCreateCheckoutSessionGuards(t *testing.T) {
	s := &Stripe{}
	if _, err := s.CreateCheckoutSession(context.Background(), SessionRequest{AmountTotal: 100}); err == nil {
		t.Fatalf("missing secret must fail")
	}
	if _, err := s.CreateCheckoutSession(context.Background(), SessionRequest{SecretKey: "sk", AmountTotal: 0}); err == nil {
		t.Fatalf("zero amount must fail")
	}
}

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifierAcceptsValidSignature(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{"type":"checkout.session.completed"}`)
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_x", ts, payload))

	v := Verifier{Secret: "whsec_x", Tolerance: 5 * time.Minute, Now: func() time.Time { return now }}
	if err := v.Verify(payload, header); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestVerifierRejectsTamperedPayload(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"a":1}`)
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_x", ts, payload))

	v := Verifier{Secret: "whsec_x", Now: func() time.Time { return now }}
	if err := v.Verify([]byte(`{"a":2}`), header); err == nil {
		t.Fatalf("tampered payload accepted")
	}
}

func TestVerifierRejectsWrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	ts := now.Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_other", ts, payload))

	v := Verifier{Secret: "whsec_x", Now: func() time.Time { return now }}
	if err := v.Verify(payload, header); err == nil {
		t.Fatalf("wrong secret accepted")
	}
}

func TestVerifierRejectsStaleTimestamp(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := []byte(`{}`)
	ts := now.Add(-10 * time.Minute).Unix()
	header := fmt.Sprintf("t=%d,v1=%s", ts, signPayload("whsec_x", ts, payload))

	v := Verifier{Secret: "whsec_x", Tolerance: 5 * time.Minute, Now: func() time.Time { return now }}
	if err := v.Verify(payload, header); err == nil {
		t.Fatalf("stale timestamp accepted")
	}
}

func TestVerifierRejectsMalformedHeader(t *testing.T) {
	v := Verifier{Secret: "whsec_x"}
	for _, header := range []string{"", "v1=abc", "t=123", "garbage"} {
		if err := v.Verify([]byte(`{}`), header); err == nil {
			t.Fatalf("malformed header %q accepted", header)
		}
	}
}
