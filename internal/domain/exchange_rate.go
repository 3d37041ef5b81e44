package domain

import "time"

// RateTable is a full upstream rate snapshot. Every rate is the price of one
// unit of Base expressed in the keyed currency.
type RateTable struct {
	Base      string             `json:"base"`
	Rates     map[string]float64 `json:"rates"`
	FetchedAt time.Time          `json:"fetchedAt"`
}

// Has reports whether the table carries a usable rate for code.
func (t *RateTable) Has(code string) bool {
	if code == t.Base {
		return true
	}
	r, ok := t.Rates[code]
	return ok && r > 0
}

// Rate returns the conversion rate from -> to, or false if either code is missing.
func (t *RateTable) Rate(from, to string) (float64, bool) {
	if !t.Has(from) || !t.Has(to) {
		return 0, false
	}
	return t.value(to) / t.value(from), true
}

func (t *RateTable) value(code string) float64 {
	if r, ok := t.Rates[code]; ok {
		return r
	}
	// Base is implicitly 1 when the upstream omits it.
	return 1
}
