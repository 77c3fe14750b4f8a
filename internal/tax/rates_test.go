package tax

import (
	"reflect"
	"testing"
)

func TestRatesKnownCountries(t *testing.T) {
	fr := Rates("fr", "")
	if !reflect.DeepEqual(fr, []float64{20, 10, 5.5, 2.1, 0}) {
		t.Fatalf("FR rates = %v", fr)
	}
	nl := Rates("NL", "")
	if !reflect.DeepEqual(nl, []float64{21, 9, 0}) {
		t.Fatalf("NL rates = %v", nl)
	}
}

func TestRatesUnknownCountryHasNoRates(t *testing.T) {
	if got := Rates("DE", ""); got != nil {
		t.Fatalf("unknown country rates = %v, want none", got)
	}
	if got := Highest(Rates("DE", "")); got != 0 {
		t.Fatalf("shipping rate for unknown country = %v, want 0", got)
	}
}

func TestRatesCustomParsedVerbatim(t *testing.T) {
	got := Rates("CUSTOM", "19, 7, 7, junk, -1, 0")
	if !reflect.DeepEqual(got, []float64{19, 7, 0}) {
		t.Fatalf("custom rates = %v", got)
	}

	// No zero rate is injected; the operator's list stands as written.
	noZero := Rates("CUSTOM", "21, 9")
	if !reflect.DeepEqual(noZero, []float64{21, 9}) {
		t.Fatalf("custom rates without zero = %v", noZero)
	}

	empty := Rates("custom", "")
	if len(empty) != 0 {
		t.Fatalf("empty custom rates = %v", empty)
	}
}

func TestHighest(t *testing.T) {
	if got := Highest([]float64{20, 10, 5.5, 2.1, 0}); got != 20 {
		t.Fatalf("highest = %v, want 20", got)
	}
	if got := Highest(nil); got != 0 {
		t.Fatalf("highest of empty = %v, want 0", got)
	}
}
