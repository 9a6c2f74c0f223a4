package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// InputSide identifies which of the two linked inputs an edit came from
type InputSide string

const (
	// SideFrom is the base currency input
	SideFrom InputSide = "from"
	// SideTo is the quote currency input
	SideTo InputSide = "to"
)

// Valid reports whether the side is one of the two known inputs
func (s InputSide) Valid() bool {
	return s == SideFrom || s == SideTo
}

// Opposite returns the other input side
func (s InputSide) Opposite() InputSide {
	if s == SideTo {
		return SideFrom
	}
	return SideTo
}

// ConversionState is an immutable snapshot of the conversion store.
// Amount is always in FromCurrency units and Result in ToCurrency units.
type ConversionState struct {
	FromCurrency string  `json:"fromCurrency"`
	ToCurrency   string  `json:"toCurrency"`
	Amount       float64 `json:"amount"`
	Result       float64 `json:"result"`
	Rate         float64 `json:"rate"`
	Loading      bool    `json:"loading"`
	Error        string  `json:"error,omitempty"`
	Version      uint64  `json:"version"`

	// Err keeps the wrapped error behind Error for errors.Is checks
	Err error `json:"-"`
}

// SameCurrency reports whether both sides hold the same symbol
func (s ConversionState) SameCurrency() bool {
	return s.FromCurrency == s.ToCurrency
}

// Currency returns the symbol selected on the given side
func (s ConversionState) Currency(side InputSide) string {
	if side == SideTo {
		return s.ToCurrency
	}
	return s.FromCurrency
}

// Session is the persisted subset of the conversion state
type Session struct {
	FromCurrency string  `json:"fromCurrency"`
	ToCurrency   string  `json:"toCurrency"`
	Amount       float64 `json:"amount"`
	Result       float64 `json:"result"`
}

// Default values used when a persisted session is missing fields
const (
	DefaultSessionFrom   = "BTC"
	DefaultSessionTo     = "ETH"
	DefaultSessionAmount = 1.0
)

// storedSession mirrors Session with optional fields so missing keys can be told apart from zero
type storedSession struct {
	FromCurrency *string  `json:"fromCurrency"`
	ToCurrency   *string  `json:"toCurrency"`
	Amount       *float64 `json:"amount"`
	Result       *float64 `json:"result"`
}

// DecodeSession parses a persisted session, filling missing fields with defaults
func DecodeSession(data []byte) (*Session, error) {
	var raw storedSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session := &Session{
		FromCurrency: DefaultSessionFrom,
		ToCurrency:   DefaultSessionTo,
		Amount:       DefaultSessionAmount,
		Result:       DefaultSessionAmount,
	}
	if raw.FromCurrency != nil {
		session.FromCurrency = *raw.FromCurrency
	}
	if raw.ToCurrency != nil {
		session.ToCurrency = *raw.ToCurrency
	}
	if raw.Amount != nil {
		session.Amount = *raw.Amount
	}
	if raw.Result != nil {
		session.Result = *raw.Result
	}

	if err := session.Validate(); err != nil {
		return nil, err
	}
	return session, nil
}

// Validate rejects sessions with values the store cannot hold
func (s *Session) Validate() error {
	if !nonNegative(s.Amount) {
		return errors.New("amount must be a non-negative number")
	}
	if !nonNegative(s.Result) {
		return errors.New("result must be a non-negative number")
	}
	return nil
}

func nonNegative(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
