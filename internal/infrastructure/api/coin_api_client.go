package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	coinsPath      = "/coins"
	conversionPath = "/conversion"

	// DefaultTimeout bounds every request when no http.Client is supplied
	DefaultTimeout = 10 * time.Second
)

// Options configures the coin API client
type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64
	Logger            logger.Logger
}

// CoinAPIClient implements the CoinAPI interface over HTTP
type CoinAPIClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	logger     logger.Logger
}

// NewCoinAPIClient creates a new coin API client
func NewCoinAPIClient(opts Options) *CoinAPIClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: DefaultTimeout,
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	log := opts.Logger
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CoinAPIClient{
		baseURL:    opts.BaseURL,
		httpClient: httpClient,
		limiter:    limiter,
		logger:     log.WithField("component", "coin_api"),
	}
}

// coinID accepts both numeric and string identifiers
type coinID string

func (id *coinID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = coinID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("coin id must be a number or string: %w", err)
	}
	*id = coinID(n.String())
	return nil
}

// coinResponse represents one entry of the /coins response
type coinResponse struct {
	ID     coinID `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ConversionResponse represents the response structure of the /conversion endpoint
type ConversionResponse struct {
	Rate float64 `json:"rate"`
}

// ListCoins retrieves the full coin list. Concurrent callers share one request.
func (c *CoinAPIClient) ListCoins(ctx context.Context) ([]entity.Coin, error) {
	v, err, shared := c.group.Do(coinsPath, func() (interface{}, error) {
		return c.listCoins(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch coins: %w", err)
	}

	coins := v.([]entity.Coin)
	if shared {
		// Each caller gets its own slice
		coins = append([]entity.Coin(nil), coins...)
	}
	return coins, nil
}

func (c *CoinAPIClient) listCoins(ctx context.Context) ([]entity.Coin, error) {
	body, err := c.get(ctx, c.baseURL+coinsPath)
	if err != nil {
		return nil, err
	}

	var resp []coinResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	coins := make([]entity.Coin, 0, len(resp))
	for _, r := range resp {
		coins = append(coins, entity.Coin{
			ID:     string(r.ID),
			Symbol: r.Symbol,
			Name:   r.Name,
		})
	}

	c.logger.Debug("Coins fetched", map[string]interface{}{
		"count": len(coins),
	})

	return coins, nil
}

// GetConversionRate retrieves the rate between two coin ids
func (c *CoinAPIClient) GetConversionRate(ctx context.Context, params entity.ConversionParams) (float64, error) {
	query := url.Values{}
	query.Set("from", params.From)
	query.Set("to", params.To)
	query.Set("fromAmount", strconv.FormatFloat(params.FromAmount, 'f', -1, 64))

	body, err := c.get(ctx, c.baseURL+conversionPath+"?"+query.Encode())
	if err != nil {
		return 0, fmt.Errorf("failed to fetch conversion rate: %w", err)
	}

	var resp ConversionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to fetch conversion rate: failed to decode response: %w", err)
	}

	// Validate the rate is positive
	if resp.Rate <= 0 {
		return 0, fmt.Errorf("failed to fetch conversion rate: invalid rate value: %f", resp.Rate)
	}

	c.logger.Debug("Conversion rate fetched", map[string]interface{}{
		"from": params.From,
		"to":   params.To,
		"rate": resp.Rate,
	})

	return resp.Rate, nil
}

// get performs a rate-limited GET and returns the body of a 200 response
func (c *CoinAPIClient) get(ctx context.Context, reqURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Add Accept header to ensure JSON response
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.logger.Warn("Error closing response body", map[string]interface{}{
				"error": closeErr.Error(),
			})
		}
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Coin API returned error status", map[string]interface{}{
			"url":    reqURL,
			"status": resp.StatusCode,
		})
		return nil, fmt.Errorf("API returned error status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	return bodyBytes, nil
}
