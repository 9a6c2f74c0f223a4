package entity

import "errors"

var (
	// ErrDirectoryFetch marks a failure to load the coin list
	ErrDirectoryFetch = errors.New("failed to load coins")

	// ErrConversionFetch marks a failure to fetch a conversion rate
	ErrConversionFetch = errors.New("conversion failed")

	// ErrInvalidCurrencyPair is returned when a symbol is missing from the coin directory
	ErrInvalidCurrencyPair = errors.New("invalid currencies")

	// ErrPersistence marks a session storage read or write failure. Logged, never surfaced.
	ErrPersistence = errors.New("session persistence failed")

	// ErrSessionNotFound is returned when nothing has been persisted yet
	ErrSessionNotFound = errors.New("session not found")
)
