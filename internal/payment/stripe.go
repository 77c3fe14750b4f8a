package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Stripe drives Stripe's hosted checkout over its form-encoded HTTP API.
// BaseURL and HTTPClient are injectable so tests can point at a local
// httptest server.
type Stripe struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ErrProvider wraps any gateway-side failure.
var ErrProvider = errors.New("payment provider error")

// Name identifies the gateway in metrics and logs.
func (s *Stripe) Name() string { return "stripe" }

// CreateCheckoutSession creates a hosted checkout session carrying the
// order total as a single line item.
func (s *Stripe) CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error) {
	if strings.TrimSpace(req.SecretKey) == "" {
		return Session{}, fmt.Errorf("%w: missing secret key", ErrProvider)
	}
	if req.AmountTotal <= 0 {
		return Session{}, fmt.Errorf("%w: non-positive amount", ErrProvider)
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	if req.CustomerEmail != "" {
		form.Set("customer_email", req.CustomerEmail)
	}
	description := req.Description
	if description == "" {
		description = "Order"
	}
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountTotal, 10))
	form.Set("line_items[0][price_data][product_data][name]", description)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	base := strings.TrimRight(s.BaseURL, "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		base+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return Session{}, fmt.Errorf("build session request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+req.SecretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := s.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Session{}, fmt.Errorf("%w: read response: %v", ErrProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		msg := apiErr.Error.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return Session{}, fmt.Errorf("%w: %s (status %d)", ErrProvider, msg, resp.StatusCode)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return Session{}, fmt.Errorf("%w: decode response: %v", ErrProvider, err)
	}
	if out.ID == "" {
		return Session{}, fmt.Errorf("%w: response missing session id", ErrProvider)
	}
	return Session{ID: out.ID, URL: out.URL}, nil
}

// ErrBadSignature is returned when webhook signature verification fails.
var ErrBadSignature = errors.New("invalid webhook signature")

// Verifier checks Stripe webhook signatures. Now is injectable for tests.
type Verifier struct {
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

// Verify checks the Stripe-Signature header (t=...,v1=...) against the raw
// payload: HMAC-SHA256 over "<t>.<payload>" keyed with the shared secret,
// with the timestamp inside the tolerance window.
func (v Verifier) Verify(payload []byte, header string) error {
	if strings.TrimSpace(v.Secret) == "" {
		return fmt.Errorf("%w: no secret configured", ErrBadSignature)
	}

	var ts string
	var sigs []string
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = val
		case "v1":
			sigs = append(sigs, val)
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("%w: malformed header", ErrBadSignature)
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", ErrBadSignature)
	}
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	tolerance := v.Tolerance
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	age := now().Sub(time.Unix(sec, 0))
	if age > tolerance || age < -tolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrBadSignature)
	}

	mac := hmac.New(sha256.New, []byte(v.Secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			return nil
		}
	}
	return ErrBadSignature
}

// ParseEvent extracts the fields the webhook handler needs from a verified
// Stripe event payload.
func ParseEvent(payload []byte) (Event, error) {
	var raw struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID       string            `json:"id"`
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return Event{
		Type:      raw.Type,
		SessionID: raw.Data.Object.ID,
		Metadata:  raw.Data.Object.Metadata,
		Raw:       payload,
	}, nil
}
