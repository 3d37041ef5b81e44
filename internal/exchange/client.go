package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"realty/internal/domain"
)

// HTTPSource fetches the latest rate table from an exchangerate-api v6
// compatible endpoint: GET {baseURL}/{apiKey}/latest/{base}.
type HTTPSource struct {
	baseURL string
	apiKey  string
	base    string
	client  *http.Client
}

// latestResponse is the subset of the upstream payload we consume.
type latestResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ErrorType       string             `json:"error-type,omitempty"`
}

// NewHTTPSource creates a new HTTPSource. A zero timeout falls back to 5s.
func NewHTTPSource(baseURL, apiKey, base string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		base:    base,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPSource) Name() string {
	return "exchangerate-api"
}

// FetchRates performs a single GET and returns the full table.
// Every failure is wrapped in ErrUpstreamUnavailable.
func (s *HTTPSource) FetchRates(ctx context.Context) (*domain.RateTable, error) {
	endpoint := fmt.Sprintf("%s/%s/latest/%s", s.baseURL, s.apiKey, s.base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %s", ErrUpstreamUnavailable, s.redact(err.Error()))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// The request URL carries the API key; report only the cause.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, s.redact(err.Error()))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstreamUnavailable, resp.StatusCode, s.redact(strings.TrimSpace(string(body))))
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode response: %s", ErrUpstreamUnavailable, s.redact(err.Error()))
	}

	if payload.Result != "success" {
		return nil, fmt.Errorf("%w: result=%s %s", ErrUpstreamUnavailable, payload.Result, payload.ErrorType)
	}

	if len(payload.ConversionRates) == 0 {
		return nil, fmt.Errorf("%w: empty rate table", ErrUpstreamUnavailable)
	}

	base := payload.BaseCode
	if base == "" {
		base = s.base
	}

	return &domain.RateTable{
		Base:      strings.ToUpper(base),
		Rates:     payload.ConversionRates,
		FetchedAt: time.Now(),
	}, nil
}

// redact removes the API key from text that may echo the request.
func (s *HTTPSource) redact(text string) string {
	if s.apiKey == "" {
		return text
	}
	return strings.ReplaceAll(text, s.apiKey, "[redacted]")
}
