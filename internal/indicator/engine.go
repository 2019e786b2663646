package indicator

import "stockdash/internal/model"

// Engine computes the dashboard's indicator set with a fixed parameter set.
// It holds no per-series state and is safe for concurrent use.
type Engine struct {
	params Params
}

// NewEngine validates params and returns an Engine.
func NewEngine(params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: params}, nil
}

// Params returns the engine's parameters.
func (e *Engine) Params() Params { return e.params }

// Process derives the indicator series for series.
func (e *Engine) Process(series *model.PriceSeries) model.IndicatorSeries {
	return Compute(series, e.params)
}

// Compute runs Bollinger Bands and RSI over series and merges them into one
// IndicatorSeries aligned with the input by index and date. A nil or empty
// series yields an empty, non-nil result. The input is never modified.
func Compute(series *model.PriceSeries, params Params) model.IndicatorSeries {
	n := series.Len()
	out := make(model.IndicatorSeries, n)
	if n == 0 {
		return out
	}

	closes := series.Closes()
	bands := ComputeBollinger(closes, params.BollingerWindow, params.BollingerK)
	rsi := ComputeRSI(closes, params.RSIWindow, params.RSISmoothing)

	for i, bar := range series.Bars {
		out[i] = model.IndicatorPoint{
			Date:      bar.Date,
			SMA:       bands[i].SMA,
			StdDev:    bands[i].StdDev,
			UpperBand: bands[i].Upper,
			LowerBand: bands[i].Lower,
			RSI:       rsi[i],
		}
	}
	return out
}
