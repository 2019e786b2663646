// Package source adapts upstream price providers to model.PriceSource.
package source

import "errors"

var (
	// ErrCircuitOpen is returned while the breaker rejects calls to a failing upstream.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrUnknownSymbol is returned for a blank or malformed ticker.
	ErrUnknownSymbol = errors.New("unknown symbol")
)
