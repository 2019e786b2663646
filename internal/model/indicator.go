package model

import (
	"time"

	"github.com/moznion/go-optional"
)

// IndicatorPoint holds the derived values for one bar. A value is None while
// its rolling window does not yet have enough history.
type IndicatorPoint struct {
	Date      time.Time                `json:"date"`
	SMA       optional.Option[float64] `json:"sma"`
	StdDev    optional.Option[float64] `json:"stddev"`
	UpperBand optional.Option[float64] `json:"upper_band"`
	LowerBand optional.Option[float64] `json:"lower_band"`
	RSI       optional.Option[float64] `json:"rsi"`
}

// IndicatorSeries is aligned one-to-one by index and date with its PriceSeries.
type IndicatorSeries []IndicatorPoint
