// internal/infrastructure/api/coin_api_client_test.go
package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *CoinAPIClient {
	return NewCoinAPIClient(Options{
		BaseURL: serverURL,
		Logger:  logger.NewNopLogger(),
	})
}

func TestListCoins(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/coins", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[
			{"id": 1, "symbol": "BTC", "name": "Bitcoin"},
			{"id": "eth-2", "symbol": "ETH", "name": "Ethereum"},
			{"id": 825, "symbol": "USDT", "name": "Tether"}
		]`))
	}))
	defer mockServer.Close()

	client := newTestClient(mockServer.URL)

	coins, err := client.ListCoins(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []entity.Coin{
		{ID: "1", Symbol: "BTC", Name: "Bitcoin"},
		{ID: "eth-2", Symbol: "ETH", Name: "Ethereum"},
		{ID: "825", Symbol: "USDT", Name: "Tether"},
	}, coins)
}

func TestListCoinsErrors(t *testing.T) {
	t.Run("Error status", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte("upstream down"))
		}))
		defer mockServer.Close()

		_, err := newTestClient(mockServer.URL).ListCoins(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch coins")
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("Malformed body", func(t *testing.T) {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not": "a list"}`))
		}))
		defer mockServer.Close()

		_, err := newTestClient(mockServer.URL).ListCoins(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode response")
	})

	t.Run("Unreachable server", func(t *testing.T) {
		mockServer := httptest.NewServer(http.NotFoundHandler())
		url := mockServer.URL
		mockServer.Close()

		_, err := newTestClient(url).ListCoins(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to execute request")
	})
}

func TestGetConversionRate(t *testing.T) {
	var calls int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/conversion", r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("fromAmount"))

		switch {
		case q.Get("from") == "1" && q.Get("to") == "2":
			w.Write([]byte(`{"rate": 16.25}`))
		case q.Get("from") == "1" && q.Get("to") == "3":
			w.Write([]byte(`{"rate": 0}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer mockServer.Close()

	client := newTestClient(mockServer.URL)
	ctx := context.Background()

	t.Run("Successful request", func(t *testing.T) {
		rate, err := client.GetConversionRate(ctx, entity.ConversionParams{From: "1", To: "2", FromAmount: 1})
		require.NoError(t, err)
		assert.Equal(t, 16.25, rate)
	})

	t.Run("Non-positive rate", func(t *testing.T) {
		_, err := client.GetConversionRate(ctx, entity.ConversionParams{From: "1", To: "3", FromAmount: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid rate value")
	})

	t.Run("Unknown pair", func(t *testing.T) {
		_, err := client.GetConversionRate(ctx, entity.ConversionParams{From: "9", To: "2", FromAmount: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch conversion rate")
		assert.Contains(t, err.Error(), "404")
	})

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestCancelledContext(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"rate": 1}`))
	}))
	defer mockServer.Close()

	client := NewCoinAPIClient(Options{
		BaseURL:           mockServer.URL,
		RequestsPerSecond: 1,
		Logger:            logger.NewNopLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetConversionRate(ctx, entity.ConversionParams{From: "1", To: "2", FromAmount: 1})
	assert.Error(t, err)
}
