package pricing

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/aloxstore/storefront/internal/tax"
)

// Money represents a monetary value stored in minor units.
type Money = int64

// ErrMixedCurrency is returned when cart lines resolve to more than one currency.
var ErrMixedCurrency = errors.New("cart mixes currencies")

// Config is the immutable store configuration snapshot a pricing pass runs
// against. Callers build it once per request; the engine never reads
// ambient state.
type Config struct {
	Currency              string
	VATEnabled            bool
	PricesIncludeTax      bool
	FlatShippingRate      Money
	FreeShippingThreshold Money
	LegalRates            []float64
}

// Product carries the catalog attributes pricing needs. SaleStart/SaleEnd
// bound the sale price validity window; a nil bound leaves that side open.
type Product struct {
	Price     Money
	SalePrice Money
	SaleStart *time.Time
	SaleEnd   *time.Time
	VATRate   float64
	Currency  string
}

// EffectiveUnitPrice returns the sale price when its window covers now,
// otherwise the base price. Window boundaries are inclusive.
func (p Product) EffectiveUnitPrice(now time.Time) Money {
	if p.SalePrice > 0 && (p.SaleStart == nil || !now.Before(*p.SaleStart)) && (p.SaleEnd == nil || !now.After(*p.SaleEnd)) {
		return p.SalePrice
	}
	if p.Price < 0 {
		return 0
	}
	return p.Price
}

// ProductSet is the pre-fetched catalog slice for one pricing pass, keyed by
// product id. Lines referencing an absent id degrade to zero-value entries.
type ProductSet map[int64]Product

// Line is a cart line entering the engine. A raw line carries only
// ProductID and Qty; a resolved line (for instance one fed back from a
// previous pass) additionally carries UnitAmount, Currency and VATRate,
// which take precedence over catalog lookups.
type Line struct {
	ProductID  int64    `json:"productId"`
	Qty        int      `json:"qty"`
	UnitAmount Money    `json:"unitAmount,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	VATRate    *float64 `json:"vatRate,omitempty"`
}

// PricedLine is the fully resolved counterpart of Line. All monetary fields
// are integer minor units; line totals are the per-unit figures multiplied
// by quantity without re-rounding.
type PricedLine struct {
	ProductID int64   `json:"productId"`
	Qty       int     `json:"qty"`
	Currency  string  `json:"currency"`
	UnitNet   Money   `json:"unitNetCents"`
	UnitTax   Money   `json:"unitTaxCents"`
	UnitGross Money   `json:"unitGrossCents"`
	VATRate   float64 `json:"vatRatePercent"`
	LineNet   Money   `json:"lineNetCents"`
	LineTax   Money   `json:"lineTaxCents"`
	LineGross Money   `json:"lineGrossCents"`
}

// TaxBucket aggregates net amounts per distinct VAT rate. Its Tax field is
// re-rounded at cart level from the accumulated base, independently of the
// per-line tax figures.
type TaxBucket struct {
	Rate    float64 `json:"ratePercent"`
	BaseNet Money   `json:"baseNetCents"`
	Tax     Money   `json:"taxCents"`
}

// PricedCart is the derived read model produced by Compute. It is never
// partially persisted; orders freeze a complete copy.
type PricedCart struct {
	Currency         string       `json:"currency"`
	PricesIncludeTax bool         `json:"pricesIncludeTax"`
	Lines            []PricedLine `json:"lines"`
	SubtotalNet      Money        `json:"subtotalNetCents"`
	ShippingNet      Money        `json:"shippingNetCents"`
	ShippingTax      Money        `json:"shippingTaxCents"`
	ShippingGross    Money        `json:"shippingGrossCents"`
	ShippingRate     float64      `json:"shippingRatePercent"`
	TaxBreakdown     []TaxBucket  `json:"taxBreakdown,omitempty"`
	TotalNet         Money        `json:"totalNetCents"`
	TotalTax         Money        `json:"totalTaxCents"`
	TotalGross       Money        `json:"totalGrossCents"`
}

// Compute prices a cart. Pure and deterministic for a given now; calling it
// on its own output (via InputLines) reproduces the same figures because
// resolution prefers values already present on the line.
func Compute(lines []Line, products ProductSet, cfg Config, now time.Time) PricedCart {
	out := PricedCart{
		Currency:         strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		PricesIncludeTax: cfg.PricesIncludeTax,
		Lines:            make([]PricedLine, 0, len(lines)),
	}
	buckets := map[int64]Money{}

	var subtotalNet, grossTotal Money
	for _, ln := range lines {
		qty := ln.Qty
		if qty < 1 {
			qty = 1
		}
		prod, known := products[ln.ProductID]

		unit := ln.UnitAmount
		if unit <= 0 && known {
			unit = prod.EffectiveUnitPrice(now)
		}
		if unit < 0 {
			unit = 0
		}

		var rate float64
		if cfg.VATEnabled {
			switch {
			case ln.VATRate != nil:
				rate = *ln.VATRate
			case known:
				rate = prod.VATRate
			}
			if rate < 0 {
				rate = 0
			}
		}

		currency := strings.ToUpper(strings.TrimSpace(ln.Currency))
		if currency == "" && known {
			currency = strings.ToUpper(strings.TrimSpace(prod.Currency))
		}
		if currency == "" {
			currency = out.Currency
		}

		net, tax, gross := splitUnit(unit, rate, cfg.PricesIncludeTax)
		pl := PricedLine{
			ProductID: ln.ProductID,
			Qty:       qty,
			Currency:  currency,
			UnitNet:   net,
			UnitTax:   tax,
			UnitGross: gross,
			VATRate:   rate,
			LineNet:   net * Money(qty),
			LineTax:   tax * Money(qty),
			LineGross: gross * Money(qty),
		}
		if cfg.VATEnabled {
			buckets[rateKey(rate)] += pl.LineNet
		}
		subtotalNet += pl.LineNet
		grossTotal += pl.LineGross
		out.Lines = append(out.Lines, pl)
	}
	out.SubtotalNet = subtotalNet

	shippingAmount := cfg.FlatShippingRate
	if shippingAmount < 0 {
		shippingAmount = 0
	}
	if cfg.FreeShippingThreshold > 0 && subtotalNet >= cfg.FreeShippingThreshold {
		shippingAmount = 0
	}
	var shippingRate float64
	if cfg.VATEnabled {
		shippingRate = tax.Highest(cfg.LegalRates)
	}
	// The configured flat rate goes through the same unit split as a line
	// with quantity one; in tax-inclusive mode the stored rate is gross and
	// the net is derived.
	shipNet, shipTax, shipGross := splitUnit(shippingAmount, shippingRate, cfg.PricesIncludeTax)
	out.ShippingNet = shipNet
	out.ShippingTax = shipTax
	out.ShippingGross = shipGross
	out.ShippingRate = shippingRate
	if cfg.VATEnabled {
		buckets[rateKey(shippingRate)] += shipNet
	}

	var totalTax Money
	if cfg.VATEnabled {
		keys := make([]int64, 0, len(buckets))
		for k := range buckets {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
		for _, k := range keys {
			base := buckets[k]
			tax := divRound(base*k, 10_000)
			out.TaxBreakdown = append(out.TaxBreakdown, TaxBucket{
				Rate:    float64(k) / 100,
				BaseNet: base,
				Tax:     tax,
			})
			totalTax += tax
		}
	}
	out.TotalTax = totalTax
	out.TotalNet = subtotalNet + shipNet

	// Two grand-total paths: per-line gross sums drive tax-inclusive and
	// VAT-disabled carts; the bucket tax drives tax-exclusive carts. They
	// may differ by rounding residue and both must stay as-is so recorded
	// order totals remain stable.
	if cfg.PricesIncludeTax || !cfg.VATEnabled {
		out.TotalGross = grossTotal + shipGross
	} else {
		out.TotalGross = out.TotalNet + totalTax
	}
	return out
}

// InputLines converts a priced cart back into engine input carrying the
// resolved unit amounts and rates, so re-pricing is a no-op.
func (pc PricedCart) InputLines() []Line {
	lines := make([]Line, 0, len(pc.Lines))
	for _, pl := range pc.Lines {
		amount := pl.UnitNet
		if pc.PricesIncludeTax {
			amount = pl.UnitGross
		}
		rate := pl.VATRate
		lines = append(lines, Line{
			ProductID:  pl.ProductID,
			Qty:        pl.Qty,
			UnitAmount: amount,
			Currency:   pl.Currency,
			VATRate:    &rate,
		})
	}
	return lines
}

// SingleCurrency reports the one currency shared by all lines, or
// ErrMixedCurrency. The check belongs to the checkout flow, which must run
// it before handing totals to payment session creation.
func SingleCurrency(lines []PricedLine) (string, error) {
	currency := ""
	for _, ln := range lines {
		c := strings.ToUpper(strings.TrimSpace(ln.Currency))
		if c == "" {
			continue
		}
		if currency == "" {
			currency = c
			continue
		}
		if c != currency {
			return "", ErrMixedCurrency
		}
	}
	return currency, nil
}

// splitUnit decomposes a unit amount into net/tax/gross. All arithmetic is
// integer minor units; the rate is carried as basis points so no float ever
// touches a monetary value. Rounding is half away from zero.
func splitUnit(amount Money, ratePercent float64, inclusive bool) (net, tax, gross Money) {
	bps := rateKey(ratePercent)
	if inclusive {
		gross = amount
		net = divRound(gross*10_000, 10_000+bps)
		// Tax is the remainder, not a second rounding, so net+tax == gross exactly.
		tax = gross - net
		return net, tax, gross
	}
	net = amount
	tax = divRound(net*bps, 10_000)
	gross = net + tax
	return net, tax, gross
}

// rateKey converts a percentage to basis points. 0.01% granularity is finer
// than any legal VAT rate in use.
func rateKey(ratePercent float64) int64 {
	if ratePercent <= 0 {
		return 0
	}
	return int64(ratePercent*100 + 0.5)
}

// divRound divides rounding half away from zero.
func divRound(num, den int64) int64 {
	if den == 0 {
		return 0
	}
	if num >= 0 {
		return (2*num + den) / (2 * den)
	}
	return -((2*(-num) + den) / (2 * den))
}
