package settings

import (
	"strconv"
	"strings"

	"github.com/aloxstore/storefront/internal/pricing"
	"github.com/aloxstore/storefront/internal/tax"
)

// Setting keys as persisted in the store_settings table.
const (
	KeyCurrency             = "currency"
	KeyVATMode              = "vat_mode"
	KeyPricesIncludeTax     = "prices_include_tax"
	KeyFlatRateCents        = "flat_rate_cents"
	KeyFreeShippingMinCents = "free_shipping_min_cents"
	KeyVATCountry           = "vat_country"
	KeyVATCustomRates       = "vat_custom_rates"
	KeyPaymentMode          = "payment_mode"
	KeyStripeTestSK         = "stripe_test_sk"
	KeyStripeLiveSK         = "stripe_live_sk"
	KeyStripeTestPK         = "stripe_test_pk"
	KeyStripeLivePK         = "stripe_live_pk"
	KeyWebhookSecret        = "stripe_webhook_secret"
)

// VAT modes.
const (
	VATModeEnabled = "enabled"
	VATModeNone    = "none"
)

// Payment modes.
const (
	PaymentModeTest = "test"
	PaymentModeLive = "live"
)

// Snapshot is an immutable view of store configuration taken once per
// request. Handlers never read settings ambiently.
type Snapshot struct {
	Currency             string `json:"currency"`
	VATMode              string `json:"vat_mode"`
	PricesIncludeTax     bool   `json:"prices_include_tax"`
	FlatRateCents        int64  `json:"flat_rate_cents"`
	FreeShippingMinCents int64  `json:"free_shipping_min_cents"`
	VATCountry           string `json:"vat_country"`
	VATCustomRates       string `json:"vat_custom_rates"`
	PaymentMode          string `json:"payment_mode"`
	StripeTestSK         string `json:"stripe_test_sk"`
	StripeLiveSK         string `json:"stripe_live_sk"`
	StripeTestPK         string `json:"stripe_test_pk"`
	StripeLivePK         string `json:"stripe_live_pk"`
	WebhookSecret        string `json:"stripe_webhook_secret"`
}

// FromMap builds a snapshot from raw key/value rows, applying defaults for
// absent or malformed values.
func FromMap(values map[string]string) Snapshot {
	s := Snapshot{
		Currency:             stringOr(values[KeyCurrency], "EUR"),
		VATMode:              stringOr(values[KeyVATMode], VATModeEnabled),
		PricesIncludeTax:     boolOr(values[KeyPricesIncludeTax], false),
		FlatRateCents:        int64Or(values[KeyFlatRateCents], 0),
		FreeShippingMinCents: int64Or(values[KeyFreeShippingMinCents], 0),
		VATCountry:           stringOr(values[KeyVATCountry], "FR"),
		VATCustomRates:       strings.TrimSpace(values[KeyVATCustomRates]),
		PaymentMode:          stringOr(values[KeyPaymentMode], PaymentModeTest),
		StripeTestSK:         strings.TrimSpace(values[KeyStripeTestSK]),
		StripeLiveSK:         strings.TrimSpace(values[KeyStripeLiveSK]),
		StripeTestPK:         strings.TrimSpace(values[KeyStripeTestPK]),
		StripeLivePK:         strings.TrimSpace(values[KeyStripeLivePK]),
		WebhookSecret:        strings.TrimSpace(values[KeyWebhookSecret]),
	}
	s.Currency = strings.ToUpper(s.Currency)
	s.VATCountry = strings.ToUpper(s.VATCountry)
	if s.VATMode != VATModeNone {
		s.VATMode = VATModeEnabled
	}
	if s.PaymentMode != PaymentModeLive {
		s.PaymentMode = PaymentModeTest
	}
	if s.FlatRateCents < 0 {
		s.FlatRateCents = 0
	}
	if s.FreeShippingMinCents < 0 {
		s.FreeShippingMinCents = 0
	}
	return s
}

// VATEnabled reports whether VAT applies at all.
func (s Snapshot) VATEnabled() bool { return s.VATMode == VATModeEnabled }

// SecretKey returns the provider secret key for the active payment mode.
func (s Snapshot) SecretKey() string {
	if s.PaymentMode == PaymentModeLive {
		return s.StripeLiveSK
	}
	return s.StripeTestSK
}

// PublishableKey returns the provider publishable key for the active mode.
func (s Snapshot) PublishableKey() string {
	if s.PaymentMode == PaymentModeLive {
		return s.StripeLivePK
	}
	return s.StripeTestPK
}

// PricingConfig derives the pricing engine configuration.
func (s Snapshot) PricingConfig() pricing.Config {
	return pricing.Config{
		Currency:              s.Currency,
		VATEnabled:            s.VATEnabled(),
		PricesIncludeTax:      s.PricesIncludeTax,
		FlatShippingRate:      s.FlatRateCents,
		FreeShippingThreshold: s.FreeShippingMinCents,
		LegalRates:            tax.Rates(s.VATCountry, s.VATCustomRates),
	}
}

// KnownKey reports whether key is a recognised setting.
func KnownKey(key string) bool {
	switch key {
	case KeyCurrency, KeyVATMode, KeyPricesIncludeTax, KeyFlatRateCents,
		KeyFreeShippingMinCents, KeyVATCountry, KeyVATCustomRates,
		KeyPaymentMode, KeyStripeTestSK, KeyStripeLiveSK,
		KeyStripeTestPK, KeyStripeLivePK, KeyWebhookSecret:
		return true
	}
	return false
}

func stringOr(v, def string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	return v
}

func boolOr(v string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func int64Or(v string, def int64) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return n
}
