package handler

import (
	"github.com/damon-houk/coin-exchange-widget/internal/application/input"
	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
)

// SetAmountRequest represents the request body for an amount edit.
// Value is the raw field text; it is sanitized before use.
type SetAmountRequest struct {
	Value string `json:"value"`
	Side  string `json:"side"`
}

// SetCurrencyRequest represents the request body for a currency selection
type SetCurrencyRequest struct {
	Side   string `json:"side"`
	Symbol string `json:"symbol"`
}

// CoinResponse represents a single coin in the directory
type CoinResponse struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// CoinListResponse represents the response for the coin search endpoint
type CoinListResponse struct {
	Coins []CoinResponse `json:"coins"`
	Count int            `json:"count"`
}

// ConversionResponse represents a conversion snapshot with the derived field texts
type ConversionResponse struct {
	FromCurrency string  `json:"from_currency"`
	ToCurrency   string  `json:"to_currency"`
	Amount       float64 `json:"amount"`
	Result       float64 `json:"result"`
	Rate         float64 `json:"rate"`
	Loading      bool    `json:"loading"`
	Error        string  `json:"error,omitempty"`
	Version      uint64  `json:"version"`
	FromDisplay  string  `json:"from_display"`
	ToDisplay    string  `json:"to_display"`
}

// SettingsResponse represents the input settings the view needs
type SettingsResponse struct {
	MaxDecimals     int   `json:"max_decimals"`
	DebounceDelayMS int64 `json:"debounce_delay_ms"`
	CacheTTLSeconds int64 `json:"cache_ttl_seconds"`
}

func newCoinListResponse(coins []entity.Coin) CoinListResponse {
	resp := CoinListResponse{
		Coins: make([]CoinResponse, 0, len(coins)),
		Count: len(coins),
	}
	for _, c := range coins {
		resp.Coins = append(resp.Coins, CoinResponse{ID: c.ID, Symbol: c.Symbol, Name: c.Name})
	}
	return resp
}

func newConversionResponse(state entity.ConversionState) ConversionResponse {
	from, to := input.Displays(state)
	return ConversionResponse{
		FromCurrency: state.FromCurrency,
		ToCurrency:   state.ToCurrency,
		Amount:       state.Amount,
		Result:       state.Result,
		Rate:         state.Rate,
		Loading:      state.Loading,
		Error:        state.Error,
		Version:      state.Version,
		FromDisplay:  from,
		ToDisplay:    to,
	}
}
