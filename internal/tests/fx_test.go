package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"realty/internal/service"
)

// ──────────────────────────────────────────────
// 1. EXCHANGE RATES AND CACHING
// ──────────────────────────────────────────────

func newFXFixture() (*service.FXService, *MockRateSource, *FakeClock) {
	source := NewMockRateSource("USD", map[string]float64{
		"USD": 1,
		"EUR": 0.8,
		"GBP": 0.5,
		"JPY": 150,
	})
	clock := NewFakeClock(testEpoch)
	svc := service.NewFXService(service.FXServiceDeps{
		Source: source,
		Clock:  clock,
		TTL:    10 * time.Minute,
		Logger: discardLogger(),
	})
	return svc, source, clock
}

func TestFX_CrossRateThroughBase(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFXFixture()
	ctx := context.Background()

	tests := []struct {
		from, to string
		want     float64
	}{
		{"EUR", "USD", 1.25},
		{"USD", "EUR", 0.8},
		{"EUR", "GBP", 0.625},
		{"GBP", "JPY", 300},
	}

	for _, tt := range tests {
		got, err := svc.GetRate(ctx, tt.from, tt.to)
		if err != nil {
			t.Fatalf("GetRate(%s, %s): %v", tt.from, tt.to, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("GetRate(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestFX_InverseRatesMultiplyToOne(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFXFixture()
	ctx := context.Background()

	pairs := [][2]string{{"EUR", "USD"}, {"GBP", "EUR"}, {"JPY", "GBP"}}
	for _, p := range pairs {
		forward, err := svc.GetRate(ctx, p[0], p[1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		backward, err := svc.GetRate(ctx, p[1], p[0])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(forward*backward-1) > 1e-9 {
			t.Errorf("%s/%s * %s/%s = %v, want 1", p[0], p[1], p[1], p[0], forward*backward)
		}
	}
}

func TestFX_SameCurrencyNeverFetches(t *testing.T) {
	t.Parallel()

	svc, source, _ := newFXFixture()

	rate, err := svc.GetRate(context.Background(), "eur", "EUR")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rate != 1 {
		t.Errorf("expected rate 1, got %v", rate)
	}
	if source.Fetches() != 0 {
		t.Errorf("expected no upstream fetch, got %d", source.Fetches())
	}
}

func TestFX_CachedTableReusedWithinTTL(t *testing.T) {
	t.Parallel()

	svc, source, clock := newFXFixture()
	ctx := context.Background()

	if _, err := svc.GetRate(ctx, "EUR", "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.Advance(5 * time.Minute)
	if _, err := svc.GetRate(ctx, "GBP", "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Fetches() != 1 {
		t.Errorf("expected 1 fetch within TTL, got %d", source.Fetches())
	}

	// 11 minutes after the first fetch.
	clock.Advance(6 * time.Minute)
	if _, err := svc.GetRate(ctx, "EUR", "USD"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if source.Fetches() != 2 {
		t.Errorf("expected refetch after TTL, got %d fetches", source.Fetches())
	}
}

func TestFX_UnsupportedCurrency(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFXFixture()

	_, err := svc.GetRate(context.Background(), "XYZ", "USD")
	if !errors.Is(err, service.ErrUnsupportedCurrency) {
		t.Errorf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestFX_MalformedCurrencyCode(t *testing.T) {
	t.Parallel()

	svc, source, _ := newFXFixture()

	for _, code := range []string{"", "US", "EURO", "E1R"} {
		_, err := svc.GetRate(context.Background(), code, "USD")
		if !errors.Is(err, service.ErrInvalidCurrency) {
			t.Errorf("GetRate(%q): expected ErrInvalidCurrency, got %v", code, err)
		}
	}
	if source.Fetches() != 0 {
		t.Errorf("expected no fetch for malformed codes, got %d", source.Fetches())
	}
}

func TestFX_UpstreamFailureIsNotCached(t *testing.T) {
	t.Parallel()

	svc, source, _ := newFXFixture()
	ctx := context.Background()

	source.Err = errors.New("connection refused")
	_, err := svc.GetRate(ctx, "EUR", "USD")
	if !errors.Is(err, service.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}

	source.Err = nil
	rate, err := svc.GetRate(ctx, "EUR", "USD")
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if math.Abs(rate-1.25) > 1e-9 {
		t.Errorf("expected 1.25, got %v", rate)
	}
	if source.Fetches() != 2 {
		t.Errorf("expected 2 fetches, got %d", source.Fetches())
	}
}

func TestFX_Convert(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFXFixture()

	conversion, err := svc.Convert(context.Background(), 100, "eur", "usd")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conversion.From != "EUR" || conversion.To != "USD" {
		t.Errorf("expected EUR->USD, got %s->%s", conversion.From, conversion.To)
	}
	if conversion.ConvertedAmount != 125 {
		t.Errorf("expected 125, got %v", conversion.ConvertedAmount)
	}

	if _, err := svc.Convert(context.Background(), 0, "EUR", "USD"); !errors.Is(err, service.ErrInvalidPaymentAmount) {
		t.Errorf("expected ErrInvalidPaymentAmount for zero amount, got %v", err)
	}
}

func TestFX_QuoteReturnsNormalizedCodes(t *testing.T) {
	t.Parallel()

	svc, _, _ := newFXFixture()

	quote, err := svc.Quote(context.Background(), " eur", "usd ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.From != "EUR" || quote.To != "USD" {
		t.Errorf("expected EUR/USD, got %s/%s", quote.From, quote.To)
	}
	if math.Abs(quote.Rate-1.25) > 1e-9 {
		t.Errorf("expected 1.25, got %v", quote.Rate)
	}
}
