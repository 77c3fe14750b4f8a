package tax

import (
	"strconv"
	"strings"
)

// Legal VAT rate sets per supported jurisdiction, in percent. The custom
// jurisdiction takes its rates from store configuration instead.
var jurisdictions = map[string][]float64{
	"FR": {20, 10, 5.5, 2.1, 0},
	"NL": {21, 9, 0},
}

// CustomCountry selects the operator-supplied rate list.
const CustomCountry = "CUSTOM"

// Rates returns the legal VAT rates for a country code. For CustomCountry
// the comma-separated customCSV is parsed; malformed entries are skipped.
// Unknown countries have no rate set, which leaves shipping untaxed.
func Rates(country, customCSV string) []float64 {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == CustomCountry {
		return parseCustom(customCSV)
	}
	if rates, ok := jurisdictions[country]; ok {
		return append([]float64(nil), rates...)
	}
	return nil
}

// Highest returns the largest rate in the set, or 0 for an empty set.
func Highest(rates []float64) float64 {
	max := 0.0
	for _, r := range rates {
		if r > max {
			max = r
		}
	}
	return max
}

// parseCustom reads the operator's rate list verbatim: only the rates they
// wrote, deduplicated, with malformed or out-of-range entries dropped.
func parseCustom(csv string) []float64 {
	out := []float64{}
	seen := map[float64]bool{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || v < 0 || v > 100 {
			continue
		}
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
