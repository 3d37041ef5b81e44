package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"realty/internal/domain"
	"realty/internal/exchange"
	"realty/internal/metrics"
	"realty/internal/redis"
)

// DefaultRateTTL is how long a fetched rate table is reused.
const DefaultRateTTL = 10 * time.Minute

// RateProvider supplies conversion rates between two currency codes.
type RateProvider interface {
	GetRate(ctx context.Context, from, to string) (float64, error)
}

// RateCache stores the single upstream rate table. Store replaces the whole
// table; Load returns nil on a miss.
type RateCache interface {
	Load(ctx context.Context) (*domain.RateTable, error)
	Store(ctx context.Context, table *domain.RateTable) error
}

// MemoryRateCache holds the rate table in process memory.
// Each Store replaces the whole table.
type MemoryRateCache struct {
	table atomic.Pointer[domain.RateTable]
}

// NewMemoryRateCache creates an empty in-memory rate cache.
func NewMemoryRateCache() *MemoryRateCache {
	return &MemoryRateCache{}
}

// Load returns the cached table, or nil when nothing was stored yet.
func (c *MemoryRateCache) Load(ctx context.Context) (*domain.RateTable, error) {
	return c.table.Load(), nil
}

// Store replaces the cached table.
func (c *MemoryRateCache) Store(ctx context.Context, table *domain.RateTable) error {
	c.table.Store(table)
	return nil
}

var (
	_ RateCache = (*MemoryRateCache)(nil)
	_ RateCache = (*redis.RateCacheStore)(nil)
)

// FXService converts between currencies using a cached upstream rate table.
//
// Concurrent callers that both see a stale table may both fetch; the last
// store wins. Staleness within the TTL only affects precision.
type FXService struct {
	source  exchange.Source
	cache   RateCache
	clock   Clock
	ttl     time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// FXServiceDeps contains the collaborators of FXService.
// Cache, Clock, TTL and Logger fall back to defaults when zero.
type FXServiceDeps struct {
	Source  exchange.Source
	Cache   RateCache
	Clock   Clock
	TTL     time.Duration
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// NewFXService creates a new FXService.
func NewFXService(deps FXServiceDeps) *FXService {
	s := &FXService{
		source:  deps.Source,
		cache:   deps.Cache,
		clock:   deps.Clock,
		ttl:     deps.TTL,
		metrics: deps.Metrics,
		logger:  deps.Logger,
	}
	if s.cache == nil {
		s.cache = NewMemoryRateCache()
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.ttl <= 0 {
		s.ttl = DefaultRateTTL
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// RateQuote is a rate between two normalized currency codes.
type RateQuote struct {
	From string
	To   string
	Rate float64
}

// GetRate returns how many units of `to` one unit of `from` buys.
// Identical codes short-circuit to 1 without touching the cache or upstream.
func (s *FXService) GetRate(ctx context.Context, from, to string) (float64, error) {
	quote, err := s.Quote(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return quote.Rate, nil
}

// Quote is GetRate returning the normalized codes alongside the rate.
func (s *FXService) Quote(ctx context.Context, from, to string) (*RateQuote, error) {
	from, err := normalizeCurrency(from)
	if err != nil {
		return nil, err
	}
	to, err = normalizeCurrency(to)
	if err != nil {
		return nil, err
	}

	if from == to {
		return &RateQuote{From: from, To: to, Rate: 1}, nil
	}

	table, err := s.rateTable(ctx)
	if err != nil {
		return nil, err
	}

	rate, ok := table.Rate(from, to)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrUnsupportedCurrency, from, to)
	}

	return &RateQuote{From: from, To: to, Rate: rate}, nil
}

// Conversion is the result of converting an amount between currencies.
type Conversion struct {
	From            string
	To              string
	Amount          float64
	Rate            float64
	ConvertedAmount float64
}

// Convert converts amount from one currency to another at the current rate.
func (s *FXService) Convert(ctx context.Context, amount float64, from, to string) (*Conversion, error) {
	if !isPositiveAmount(amount) {
		return nil, ErrInvalidPaymentAmount
	}

	quote, err := s.Quote(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return &Conversion{
		From:            quote.From,
		To:              quote.To,
		Amount:          amount,
		Rate:            quote.Rate,
		ConvertedAmount: multiply(amount, quote.Rate),
	}, nil
}

// rateTable returns the cached table while it is fresh, otherwise fetches and
// replaces it.
func (s *FXService) rateTable(ctx context.Context) (*domain.RateTable, error) {
	cached, err := s.cache.Load(ctx)
	if err != nil {
		// A broken cache degrades to fetching on every call.
		s.logger.WarnContext(ctx, "rate cache load failed", "error", err)
		cached = nil
	}

	now := s.clock.Now()
	if cached != nil && now.Sub(cached.FetchedAt) <= s.ttl {
		return cached, nil
	}

	started := time.Now()
	table, err := s.source.FetchRates(ctx)
	s.metrics.RecordFetch(started, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "rate table fetch failed", "source", s.source.Name(), "error", err)
		if errors.Is(err, ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	table.FetchedAt = now
	if err := s.cache.Store(ctx, table); err != nil {
		s.logger.WarnContext(ctx, "rate cache store failed", "error", err)
	}

	s.logger.InfoContext(ctx, "rate table refreshed", "source", s.source.Name(), "base", table.Base, "count", len(table.Rates))
	return table, nil
}

// normalizeCurrency upper-cases a code and checks it is three ASCII letters.
func normalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, code)
		}
	}
	return code, nil
}

// multiply computes amount*rate in decimal so that e.g. 100*1.1 is exactly 110.
func multiply(amount, rate float64) float64 {
	v, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Float64()
	return v
}
