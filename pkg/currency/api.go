package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// APIConfig configures the exchange-rate API source
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

// APISource fetches exchange rates from an exchange-rate HTTP API. The API
// returns a rate table keyed by target currency; only the reference currency
// entry is used.
type APISource struct {
	config APIConfig
	client *http.Client
}

// NewAPISource creates a new APISource
func NewAPISource(cfg APIConfig) *APISource {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://open.er-api.com/v6/latest"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &APISource{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

type rateResponse struct {
	Rates map[string]float64 `json:"rates"`
}

// Rate fetches the rate from fromCurrency into the reference currency
func (s *APISource) Rate(ctx context.Context, fromCurrency string) (float64, error) {
	url := fmt.Sprintf("%s/%s", s.config.BaseURL, fromCurrency)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("rate API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate API returned status %d", resp.StatusCode)
	}

	var parsed rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("failed to decode rate response: %w", err)
	}

	rate, ok := parsed.Rates[ReferenceCurrency]
	if !ok {
		return 0, fmt.Errorf("rate response missing %s entry", ReferenceCurrency)
	}
	return rate, nil
}
