package model

import "time"

// PriceBar is one daily OHLCV bar as returned by a price source.
type PriceBar struct {
	Date   time.Time `json:"date"` // trading day, midnight in the exchange's zone
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// PriceSeries is the ordered daily history of one symbol over a contiguous range.
// Bars are strictly increasing by Date. A nil *PriceSeries means the source
// had nothing for the symbol, which callers treat the same as an empty one.
type PriceSeries struct {
	Symbol string     `json:"symbol"`
	Bars   []PriceBar `json:"bars"`
}

// Len returns the number of bars; safe on a nil series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// IsEmpty reports whether the series is absent or has no bars.
func (s *PriceSeries) IsEmpty() bool {
	return s.Len() == 0
}

// Closes returns a fresh slice of closing prices.
func (s *PriceSeries) Closes() []float64 {
	if s == nil {
		return nil
	}
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// ICT is the exchange time zone of HOSE and HNX (UTC+7, no DST).
var ICT = time.FixedZone("ICT", 7*60*60)

// TradingDay normalises t to midnight of its calendar day in ICT.
func TradingDay(t time.Time) time.Time {
	y, m, d := t.In(ICT).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, ICT)
}

// DateKey formats a bar date as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
