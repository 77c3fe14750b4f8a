package payment

import "context"

// SessionRequest describes a hosted checkout session to create. Amounts are
// integer minor units.
type SessionRequest struct {
	SecretKey     string
	AmountTotal   int64
	Currency      string
	Description   string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
	Metadata      map[string]string
}

// Session is the provider-hosted checkout session the shopper is sent to.
type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// Event is a provider webhook notification after signature verification.
type Event struct {
	Type      string
	SessionID string
	Metadata  map[string]string
	Raw       []byte
}

// Provider abstracts the payment gateway. The only implementation talks to
// Stripe's hosted checkout; tests substitute fakes.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (Session, error)
	Name() string
}
