// Package service internal/application/service/conversion_store.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/repository"
	domainservice "github.com/damon-houk/coin-exchange-widget/internal/domain/service"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/cache"
	"github.com/damon-houk/coin-exchange-widget/internal/infrastructure/logger"
)

// Directory is the part of the coin directory the store depends on
type Directory interface {
	LookupID(symbol string) (string, bool)
	Ready() bool
	OnReady(fn func())
	FetchAll(ctx context.Context) error
}

// StoreConfig holds the conversion store settings
type StoreConfig struct {
	// CacheTTL is used to build the rate cache when none is supplied
	CacheTTL time.Duration
	// DefaultFrom and DefaultTo fill unset currencies once coins are available
	DefaultFrom string
	DefaultTo   string
}

// ConversionStore reconciles the two linked inputs, the fetched rate, the rate cache
// and the persisted session. Every mutation publishes a snapshot to subscribers.
type ConversionStore struct {
	directory Directory
	api       domainservice.CoinAPI
	sessions  repository.SessionRepository
	rates     *cache.RateCache
	cfg       StoreConfig
	logger    logger.Logger
	subs      *broadcaster

	mu    sync.Mutex
	state entity.ConversionState
	// generation is bumped by every conversion evaluation; responses from older generations are dropped
	generation uint64
	// pendingGen is the generation of the network request that owns the loading flag
	pendingGen uint64
	closed     bool
}

// NewConversionStore creates the store and hydrates it from the session repository.
// No network call is made until Start or a mutation.
func NewConversionStore(
	ctx context.Context,
	directory Directory,
	api domainservice.CoinAPI,
	sessions repository.SessionRepository,
	rates *cache.RateCache,
	cfg StoreConfig,
	log logger.Logger,
) *ConversionStore {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if rates == nil {
		rates = cache.NewRateCache(cfg.CacheTTL)
	}

	s := &ConversionStore{
		directory: directory,
		api:       api,
		sessions:  sessions,
		rates:     rates,
		cfg:       cfg,
		logger:    log.WithField("component", "conversion_store"),
		subs:      newBroadcaster(),
		state: entity.ConversionState{
			Amount: 1,
			Result: 1,
			Rate:   1,
		},
	}

	s.logger.Debug("Conversion store created", map[string]interface{}{
		"cache_ttl": rates.TTL().String(),
	})

	s.loadState(ctx)
	return s
}

// loadState hydrates from the persisted slot. Any failure falls back to defaults.
func (s *ConversionStore) loadState(ctx context.Context) {
	session, err := s.sessions.Load(ctx)
	if errors.Is(err, entity.ErrSessionNotFound) {
		s.logger.Debug("No persisted session, using defaults", nil)
		return
	}
	if err != nil {
		s.logger.Error("Failed to load persisted session", map[string]interface{}{
			"error": fmt.Errorf("%w: %v", entity.ErrPersistence, err).Error(),
		})
		return
	}

	s.state.FromCurrency = session.FromCurrency
	s.state.ToCurrency = session.ToCurrency
	s.state.Amount = session.Amount
	s.state.Result = session.Result
	s.state.Rate = 1
	if !s.state.SameCurrency() && session.Amount > 0 && session.Result > 0 {
		s.state.Rate = session.Result / session.Amount
	}

	s.logger.Info("Session restored", map[string]interface{}{
		"from":   session.FromCurrency,
		"to":     session.ToCurrency,
		"amount": session.Amount,
		"result": session.Result,
	})
}

// Start runs the startup conversion. With coins already loaded it fetches right away;
// otherwise it waits for the directory, defaults unset currencies and fetches once.
func (s *ConversionStore) Start(ctx context.Context) {
	if s.directory.Ready() {
		s.applyDefaultPair(ctx)
		s.FetchConversion(ctx)
		return
	}

	s.directory.OnReady(func() {
		s.applyDefaultPair(ctx)
		s.FetchConversion(ctx)
	})

	if err := s.directory.FetchAll(ctx); err != nil {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.setErrorLocked(err)
		s.publishLocked()
		s.mu.Unlock()
	}
}

func (s *ConversionStore) applyDefaultPair(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	changed := false
	if s.state.FromCurrency == "" && s.cfg.DefaultFrom != "" {
		s.state.FromCurrency = s.cfg.DefaultFrom
		changed = true
	}
	if s.state.ToCurrency == "" && s.cfg.DefaultTo != "" {
		s.state.ToCurrency = s.cfg.DefaultTo
		changed = true
	}
	if !changed {
		return
	}

	s.logger.Info("Defaulted currency pair", map[string]interface{}{
		"from": s.state.FromCurrency,
		"to":   s.state.ToCurrency,
	})
	s.persistLocked(ctx)
	s.publishLocked()
}

// State returns the current snapshot
func (s *ConversionStore) State() entity.ConversionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Rate returns the effective To-per-From rate behind the current result
func (s *ConversionStore) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Rate
}

// Subscribe registers fn for every published snapshot and returns the unsubscribe func.
// fn runs while the store is locked: it must not call back into the store.
func (s *ConversionStore) Subscribe(fn func(entity.ConversionState)) func() {
	return s.subs.subscribe(fn)
}

// SetAmount records a new amount typed on the given side. Negative or non-finite values are ignored.
// A zero amount, or equal currencies, are resolved locally; otherwise a conversion is fetched.
func (s *ConversionStore) SetAmount(ctx context.Context, value float64, side entity.InputSide) {
	if !validAmount(value) {
		s.logger.Debug("Rejected amount", map[string]interface{}{
			"value": value,
			"side":  string(side),
		})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	base := value
	if side == entity.SideTo {
		rate := s.state.Rate
		if rate <= 0 || math.IsNaN(rate) {
			rate = 1
		}
		base = value / rate
	}

	s.state.Amount = base

	if base == 0 {
		s.generation++
		s.state.Result = 0
		s.persistLocked(ctx)
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	// Persist before any network call so a reload sees the typed value
	s.persistLocked(ctx)
	s.publishLocked()
	s.evaluateLocked(ctx, base)
}

// SetFromCurrency selects the base currency and refreshes the conversion
func (s *ConversionStore) SetFromCurrency(ctx context.Context, symbol string) {
	s.setCurrency(ctx, entity.SideFrom, symbol)
}

// SetToCurrency selects the quote currency and refreshes the conversion
func (s *ConversionStore) SetToCurrency(ctx context.Context, symbol string) {
	s.setCurrency(ctx, entity.SideTo, symbol)
}

func (s *ConversionStore) setCurrency(ctx context.Context, side entity.InputSide, symbol string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	if side == entity.SideTo {
		s.state.ToCurrency = symbol
	} else {
		s.state.FromCurrency = symbol
	}
	s.persistLocked(ctx)
	s.publishLocked()

	s.evaluateLocked(ctx, s.state.Amount)
}

// SwapCurrencies exchanges both currencies in one write and refreshes the conversion
func (s *ConversionStore) SwapCurrencies(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.state.FromCurrency, s.state.ToCurrency = s.state.ToCurrency, s.state.FromCurrency
	s.persistLocked(ctx)
	s.publishLocked()

	s.evaluateLocked(ctx, s.state.Amount)
}

// FetchConversion converts the current amount
func (s *ConversionStore) FetchConversion(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.evaluateLocked(ctx, s.state.Amount)
}

// FetchConversionFor converts the given amount with the current pair.
// Negative or non-finite amounts are ignored.
func (s *ConversionStore) FetchConversionFor(ctx context.Context, amount float64) {
	if !validAmount(amount) {
		s.logger.Debug("Rejected amount", map[string]interface{}{
			"value": amount,
		})
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.evaluateLocked(ctx, amount)
}

// evaluateLocked is entered with s.mu held and releases it before returning.
// The lock is dropped for the duration of the network call.
func (s *ConversionStore) evaluateLocked(ctx context.Context, amount float64) {
	s.generation++
	gen := s.generation

	if amount <= 0 || !validAmount(amount) {
		s.mu.Unlock()
		return
	}

	from, to := s.state.FromCurrency, s.state.ToCurrency

	if from == to {
		s.applyResultLocked(ctx, 1, amount)
		s.mu.Unlock()
		return
	}

	if rate, ok := s.rates.Get(from, to); ok {
		s.logger.Debug("Using cached rate", map[string]interface{}{
			"from": from,
			"to":   to,
			"rate": rate,
		})
		s.applyResultLocked(ctx, rate, amount)
		s.mu.Unlock()
		return
	}

	fromID, okFrom := s.directory.LookupID(from)
	toID, okTo := s.directory.LookupID(to)
	if !okFrom || !okTo {
		s.logger.Warn("Unresolved currency pair", map[string]interface{}{
			"from": from,
			"to":   to,
		})
		s.setErrorLocked(entity.ErrInvalidCurrencyPair)
		s.publishLocked()
		s.mu.Unlock()
		return
	}

	s.state.Loading = true
	s.state.Error = ""
	s.state.Err = nil
	s.pendingGen = gen
	s.publishLocked()
	s.mu.Unlock()

	s.logger.Info("Fetching conversion rate", map[string]interface{}{
		"from":       from,
		"to":         to,
		"generation": gen,
	})

	rate, err := s.api.GetConversionRate(ctx, entity.ConversionParams{
		From:       fromID,
		To:         toID,
		FromAmount: 1,
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	if s.pendingGen == gen {
		s.pendingGen = 0
		s.state.Loading = false
		changed = true
	}

	if err == nil && !s.closed {
		// The rate is valid for its pair whether or not this response is still current
		s.rates.Put(from, to, rate)
	}

	if gen != s.generation || s.closed {
		s.logger.Debug("Discarding stale conversion response", map[string]interface{}{
			"from":       from,
			"to":         to,
			"generation": gen,
			"latest":     s.generation,
		})
		if changed && !s.closed {
			s.publishLocked()
		}
		return
	}

	if err != nil {
		s.logger.Error("Failed to fetch conversion rate", map[string]interface{}{
			"from":  from,
			"to":    to,
			"error": err.Error(),
		})
		s.setErrorLocked(fmt.Errorf("%w: %v", entity.ErrConversionFetch, err))
		s.publishLocked()
		return
	}

	s.applyResultLocked(ctx, rate, amount)
}

// applyResultLocked sets the result for a resolved rate, persists and publishes
func (s *ConversionStore) applyResultLocked(ctx context.Context, rate, amount float64) {
	s.state.Rate = rate
	s.state.Result = rate * amount
	s.state.Error = ""
	s.state.Err = nil
	s.persistLocked(ctx)
	s.publishLocked()
}

func (s *ConversionStore) setErrorLocked(err error) {
	s.state.Err = err
	s.state.Error = err.Error()
}

// persistLocked writes the session slot. Failures are logged and never surfaced.
func (s *ConversionStore) persistLocked(ctx context.Context) {
	session := &entity.Session{
		FromCurrency: s.state.FromCurrency,
		ToCurrency:   s.state.ToCurrency,
		Amount:       s.state.Amount,
		Result:       s.state.Result,
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("Failed to persist session", map[string]interface{}{
			"error": fmt.Errorf("%w: %v", entity.ErrPersistence, err).Error(),
		})
	}
}

func (s *ConversionStore) publishLocked() {
	s.state.Version++
	s.subs.publish(s.state)
}

// Close stops the store: late responses are discarded, subscribers dropped and cached rates cleared
func (s *ConversionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.logger.Debug("Closing conversion store", map[string]interface{}{
		"cached_pairs": s.rates.Size(),
	})

	s.closed = true
	s.generation++
	s.subs.clear()
	s.rates.Clear()
}

// validAmount reports whether v can be a base amount: finite and not negative
func validAmount(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
