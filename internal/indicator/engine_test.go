package indicator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/model"
)

func makeSeries(closes []float64) *model.PriceSeries {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.PriceBar, len(closes))
	for i, c := range closes {
		bars[i] = model.PriceBar{
			Date:   start.AddDate(0, 0, i),
			Open:   c,
			High:   c + 100,
			Low:    c - 100,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return &model.PriceSeries{Symbol: "VNM", Bars: bars}
}

func TestCompute_AlignedWithInput(t *testing.T) {
	series := makeSeries(randomWalk(3, 250))
	out := Compute(series, DefaultParams())
	require.Len(t, out, 250)

	for i, p := range out {
		assert.True(t, p.Date.Equal(series.Bars[i].Date), "date mismatch at %d", i)
		assert.Equal(t, i >= 19, p.SMA.IsSome(), "sma defined at %d", i)
		assert.Equal(t, i >= 19, p.UpperBand.IsSome(), "upper defined at %d", i)
		assert.Equal(t, i >= 14, p.RSI.IsSome(), "rsi defined at %d", i)
	}
}

func TestCompute_EmptyAndNil(t *testing.T) {
	out := Compute(&model.PriceSeries{Symbol: "FPT"}, DefaultParams())
	require.NotNil(t, out)
	assert.Len(t, out, 0)

	out = Compute(nil, DefaultParams())
	require.NotNil(t, out)
	assert.Len(t, out, 0)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	series := makeSeries(randomWalk(11, 60))
	before := make([]model.PriceBar, len(series.Bars))
	copy(before, series.Bars)

	Compute(series, DefaultParams())
	assert.Equal(t, before, series.Bars)
}

func TestCompute_Idempotent(t *testing.T) {
	series := makeSeries(randomWalk(5, 365))
	first := Compute(series, DefaultParams())
	second := Compute(series, DefaultParams())
	assert.Equal(t, first, second)
}

func TestCompute_CustomParams(t *testing.T) {
	series := makeSeries(randomWalk(9, 30))
	params := Params{BollingerWindow: 5, BollingerK: 1.5, RSIWindow: 3, RSISmoothing: SmoothingWilder}
	out := Compute(series, params)

	assert.True(t, out[3].SMA.IsNone())
	assert.True(t, out[4].SMA.IsSome())
	assert.True(t, out[2].RSI.IsNone())
	assert.True(t, out[3].RSI.IsSome())
}

func TestEngine_RejectsInvalidParams(t *testing.T) {
	cases := map[string]Params{
		"zero bollinger window": {BollingerWindow: 0, BollingerK: 2, RSIWindow: 14, RSISmoothing: SmoothingSimple},
		"zero multiplier":       {BollingerWindow: 20, BollingerK: 0, RSIWindow: 14, RSISmoothing: SmoothingSimple},
		"negative rsi window":   {BollingerWindow: 20, BollingerK: 2, RSIWindow: -1, RSISmoothing: SmoothingSimple},
		"unknown smoothing":     {BollingerWindow: 20, BollingerK: 2, RSIWindow: 14, RSISmoothing: "ema"},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(p)
			assert.Error(t, err)
		})
	}
}

func TestEngine_Process(t *testing.T) {
	engine, err := NewEngine(DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, DefaultParams(), engine.Params())

	series := makeSeries(constant(25, 100))
	out := engine.Process(series)
	require.Len(t, out, 25)
	assert.Equal(t, 100.0, out[24].SMA.Unwrap())
	assert.Equal(t, 0.0, out[24].StdDev.Unwrap())
	assert.Equal(t, 100.0, out[24].RSI.Unwrap())
}
