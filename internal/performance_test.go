package internal

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/application/service"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/cache"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/db"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
	"github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCoinAPI implements the CoinAPI interface with fixed USD prices and a small random latency
type fakeCoinAPI struct {
	mu    sync.Mutex
	calls int
}

var fakePrices = map[string]float64{
	"1": 60000, // BTC
	"2": 3000,  // ETH
	"3": 1,     // USDT
}

func (f *fakeCoinAPI) ListCoins(ctx context.Context) ([]entity.Coin, error) {
	return []entity.Coin{
		{ID: "1", Symbol: "BTC", Name: "Bitcoin"},
		{ID: "2", Symbol: "ETH", Name: "Ethereum"},
		{ID: "3", Symbol: "USDT", Name: "Tether"},
	}, nil
}

func (f *fakeCoinAPI) GetConversionRate(ctx context.Context, params entity.ConversionParams) (float64, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	time.Sleep(time.Duration(rand.Intn(3)) * time.Millisecond)

	from, okFrom := fakePrices[params.From]
	to, okTo := fakePrices[params.To]
	if !okFrom || !okTo {
		return 0, fmt.Errorf("unknown coin id %s or %s", params.From, params.To)
	}
	return from / to * params.FromAmount, nil
}

func (f *fakeCoinAPI) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestPerformance(t *testing.T) {
	// Skip in short mode or CI
	if testing.Short() {
		t.Skip("Skipping performance test in short mode")
	}

	// Setup test database
	dbPath, err := os.MkdirTemp("", "badger-perf-test")
	if err != nil {
		t.Fatalf("Failed to create temp directory: %v", err)
	}
	defer os.RemoveAll(dbPath)

	badgerOpts := badger.DefaultOptions(dbPath).WithLogger(nil)
	badgerDB, err := badger.Open(badgerOpts)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer badgerDB.Close()

	ctx := context.Background()
	coinAPI := &fakeCoinAPI{}
	sessions := db.NewBadgerSessionRepository(badgerDB, db.DefaultSessionKey)
	directory := service.NewCoinDirectory(coinAPI, logger.NewNopLogger())
	store := service.NewConversionStore(ctx, directory, coinAPI, sessions, cache.NewRateCache(time.Minute),
		service.StoreConfig{DefaultFrom: "BTC", DefaultTo: "ETH"}, logger.NewNopLogger())
	defer store.Close()

	store.Start(ctx)
	require.Equal(t, 20.0, store.State().Result)

	// Performance test configuration
	numEdits := 200
	concurrency := 10
	symbols := []string{"BTC", "ETH", "USDT"}

	t.Run("Concurrent Edits", func(t *testing.T) {
		startTime := time.Now()

		wg := sync.WaitGroup{}
		wg.Add(concurrency)

		editsPerWorker := numEdits / concurrency

		for i := 0; i < concurrency; i++ {
			go func(workerID int) {
				defer wg.Done()

				for j := 0; j < editsPerWorker; j++ {
					switch (workerID + j) % 4 {
					case 0:
						store.SetAmount(ctx, 1+float64(rand.Intn(10000))/100.0, entity.SideFrom)
					case 1:
						store.SetAmount(ctx, 1+float64(rand.Intn(10000))/100.0, entity.SideTo)
					case 2:
						store.SetToCurrency(ctx, symbols[rand.Intn(len(symbols))])
					default:
						store.SwapCurrencies(ctx)
					}
				}
			}(i)
		}

		wg.Wait()
		duration := time.Since(startTime)

		// Calculate throughput
		throughput := float64(numEdits) / duration.Seconds()
		t.Logf("Store edits: %d edits in %v (%.2f edits/sec), %d network calls",
			numEdits, duration, throughput, coinAPI.Calls())

		// Whatever order responses landed in, the snapshot is self-consistent
		state := store.State()
		assert.False(t, state.Loading)
		assert.Empty(t, state.Error)
		assert.InDelta(t, state.Amount*state.Rate, state.Result, 1e-6*math.Max(1, state.Result))

		// The persisted slot matches the last snapshot
		saved, err := sessions.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, state.FromCurrency, saved.FromCurrency)
		assert.Equal(t, state.ToCurrency, saved.ToCurrency)
		assert.Equal(t, state.Amount, saved.Amount)
		assert.Equal(t, state.Result, saved.Result)
	})

	t.Run("Cached Conversions", func(t *testing.T) {
		// Warm every directional pair so the edit loop below never hits the network
		for _, from := range symbols {
			for _, to := range symbols {
				if from != to {
					store.SetFromCurrency(ctx, from)
					store.SetToCurrency(ctx, to)
				}
			}
		}

		before := coinAPI.Calls()
		startTime := time.Now()

		for i := 0; i < numEdits; i++ {
			store.SetAmount(ctx, float64(i+1), entity.SideFrom)
		}

		duration := time.Since(startTime)
		t.Logf("Cached conversions: %d edits in %v", numEdits, duration)
		assert.Equal(t, before, coinAPI.Calls())
	})
}
