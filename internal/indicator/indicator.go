// Package indicator computes technical indicator series over daily price data.
//
// Every function here is pure: it reads an ordered slice of closes and returns
// a slice of the same length where each entry is either a value or None when
// the trailing window does not yet hold enough history. Short and empty inputs
// are valid and simply produce more None entries.
package indicator

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// Smoothing selects how RSI averages gains and losses over its window.
type Smoothing string

const (
	// SmoothingSimple is the arithmetic mean of the trailing window.
	SmoothingSimple Smoothing = "simple"
	// SmoothingWilder seeds with the simple mean, then applies Wilder's
	// recursive average avg = (prev*(n-1) + x) / n.
	SmoothingWilder Smoothing = "wilder"
)

// Defaults used when no configuration overrides them.
const (
	DefaultBollingerWindow = 20
	DefaultBollingerK      = 2.0
	DefaultRSIWindow       = 14
)

// Params configures the engine.
type Params struct {
	BollingerWindow int       `json:"bollinger_window" mapstructure:"bollinger_window" validate:"gte=1"`
	BollingerK      float64   `json:"bollinger_k" mapstructure:"bollinger_k" validate:"gt=0"`
	RSIWindow       int       `json:"rsi_window" mapstructure:"rsi_window" validate:"gte=1"`
	RSISmoothing    Smoothing `json:"rsi_smoothing" mapstructure:"rsi_smoothing" validate:"oneof=simple wilder"`
}

// DefaultParams returns Bollinger(20, 2) and a simple-mean RSI(14).
func DefaultParams() Params {
	return Params{
		BollingerWindow: DefaultBollingerWindow,
		BollingerK:      DefaultBollingerK,
		RSIWindow:       DefaultRSIWindow,
		RSISmoothing:    SmoothingSimple,
	}
}

var validate = validator.New()

// Validate rejects parameter sets the engine cannot honour.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(err, "invalid indicator params")
	}
	return nil
}
