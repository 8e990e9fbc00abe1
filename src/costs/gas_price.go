package costs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// DefaultGasPriceGwei is the per-network fallback used when no explicit gas
// price is configured and a live lookup is unavailable.
var DefaultGasPriceGwei = map[string]float64{
	"ethereum": 25.0,
	"arbitrum": 0.1,
	"optimism": 0.05,
	"base":     0.05,
	"polygon":  40.0,
}

// GasPriceSource resolves a current gas price for a network. Implementations
// may hit the network; the calculator caches the result for the remainder of
// the run.
type GasPriceSource interface {
	FetchGasPriceGwei(ctx context.Context, network string) (float64, error)
}

// StaticGasPriceSource serves fixed prices, for tests and offline runs.
type StaticGasPriceSource map[string]float64

func (s StaticGasPriceSource) FetchGasPriceGwei(_ context.Context, network string) (float64, error) {
	price, found := s[network]
	if !found {
		return 0, fmt.Errorf("no static gas price for network %s", network)
	}

	return price, nil
}

type gasOracleResponse struct {
	Result struct {
		ProposeGasPrice string `json:"ProposeGasPrice"`
	} `json:"result"`
}

// HTTPGasPriceSource queries an etherscan-style gas oracle per network.
type HTTPGasPriceSource struct {
	Client    *http.Client
	Endpoints map[string]string
}

func NewHTTPGasPriceSource(endpoints map[string]string) *HTTPGasPriceSource {
	return &HTTPGasPriceSource{
		Client:    &http.Client{Timeout: 10 * time.Second},
		Endpoints: endpoints,
	}
}

func (s *HTTPGasPriceSource) FetchGasPriceGwei(ctx context.Context, network string) (float64, error) {
	endpoint, found := s.Endpoints[network]
	if !found {
		return 0, fmt.Errorf("no gas oracle endpoint for network %s", network)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create gas oracle request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("gas oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("gas oracle returned status %d", resp.StatusCode)
	}

	var dto gasOracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return 0, fmt.Errorf("failed to decode gas oracle response: %w", err)
	}

	price, err := strconv.ParseFloat(dto.Result.ProposeGasPrice, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse gas price %q: %w", dto.Result.ProposeGasPrice, err)
	}

	return price, nil
}
