package exchange

import (
	"context"
	"errors"
	"time"

	"realty/internal/domain"
)

// ErrUpstreamUnavailable is returned when the rate table cannot be fetched.
var ErrUpstreamUnavailable = errors.New("exchange rate upstream unavailable")

// Source fetches a complete rate table from one upstream.
type Source interface {
	FetchRates(ctx context.Context) (*domain.RateTable, error)
	Name() string
}

// StaticSource serves a fixed rate table. Used for local development.
type StaticSource struct {
	base  string
	rates map[string]float64
}

// NewStaticSource creates a source that always returns the given rates.
func NewStaticSource(base string, rates map[string]float64) *StaticSource {
	return &StaticSource{base: base, rates: rates}
}

// FetchRates returns a copy of the static table.
func (s *StaticSource) FetchRates(ctx context.Context) (*domain.RateTable, error) {
	rates := make(map[string]float64, len(s.rates))
	for code, rate := range s.rates {
		rates[code] = rate
	}
	return &domain.RateTable{Base: s.base, Rates: rates, FetchedAt: time.Now()}, nil
}

func (s *StaticSource) Name() string {
	return "static"
}
