package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	domainservice "github.com/damon-houk/coin-exchange-widget/internal/domain/service"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
)

// CoinDirectory holds the list of tradable coins, loaded once per process
type CoinDirectory struct {
	api    domainservice.CoinAPI
	logger logger.Logger

	mu      sync.RWMutex
	coins   []entity.Coin
	loading bool
	err     error
	onReady []func()
}

// NewCoinDirectory creates an empty coin directory
func NewCoinDirectory(api domainservice.CoinAPI, log logger.Logger) *CoinDirectory {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &CoinDirectory{
		api:    api,
		logger: log.WithField("component", "coin_directory"),
	}
}

// FetchAll loads the coin list. It is a no-op while a fetch is in flight or once coins are loaded.
// A failure is recorded on the directory and returned; there is no automatic retry.
func (d *CoinDirectory) FetchAll(ctx context.Context) error {
	d.mu.Lock()
	if d.loading || len(d.coins) > 0 {
		d.mu.Unlock()
		return nil
	}
	d.loading = true
	d.err = nil
	d.mu.Unlock()

	d.logger.Info("Fetching coin list", nil)

	coins, err := d.api.ListCoins(ctx)

	d.mu.Lock()
	d.loading = false
	if err != nil {
		d.err = fmt.Errorf("%w: %v", entity.ErrDirectoryFetch, err)
		d.mu.Unlock()

		d.logger.Error("Failed to fetch coin list", map[string]interface{}{
			"error": err.Error(),
		})
		return d.Err()
	}

	d.coins = coins
	var callbacks []func()
	if len(coins) > 0 {
		callbacks = d.onReady
		d.onReady = nil
	}
	d.mu.Unlock()

	d.logger.Info("Coin list loaded", map[string]interface{}{
		"count": len(coins),
	})

	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// OnReady registers fn to run once the directory becomes non-empty.
// It runs immediately when the directory is already populated.
func (d *CoinDirectory) OnReady(fn func()) {
	d.mu.Lock()
	if len(d.coins) == 0 {
		d.onReady = append(d.onReady, fn)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	fn()
}

// LookupID returns the id of the coin with exactly this symbol (case-sensitive)
func (d *CoinDirectory) LookupID(symbol string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, c := range d.coins {
		if c.Symbol == symbol {
			return c.ID, true
		}
	}
	return "", false
}

// Search returns coins whose symbol or name contains term (case-insensitive),
// skipping excludeSymbol, in directory order
func (d *CoinDirectory) Search(term, excludeSymbol string) []entity.Coin {
	d.mu.RLock()
	defer d.mu.RUnlock()

	needle := strings.ToLower(term)
	matches := make([]entity.Coin, 0, len(d.coins))
	for _, c := range d.coins {
		if c.Symbol == excludeSymbol {
			continue
		}
		if strings.Contains(strings.ToLower(c.Symbol), needle) ||
			strings.Contains(strings.ToLower(c.Name), needle) {
			matches = append(matches, c)
		}
	}
	return matches
}

// SearchForSide searches for the given input, excluding the currency picked on the other side
func (d *CoinDirectory) SearchForSide(term string, side entity.InputSide, state entity.ConversionState) []entity.Coin {
	return d.Search(term, state.Currency(side.Opposite()))
}

// Coins returns a copy of the loaded list
func (d *CoinDirectory) Coins() []entity.Coin {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]entity.Coin(nil), d.coins...)
}

// Ready reports whether the directory holds any coins. Empty means not ready, not "no coins".
func (d *CoinDirectory) Ready() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.coins) > 0
}

// Loading reports whether a fetch is in flight
func (d *CoinDirectory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.loading
}

// Err returns the last fetch error, nil after a successful fetch
func (d *CoinDirectory) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.err
}
