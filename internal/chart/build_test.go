package chart

import (
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/model"
)

func fixture() (*model.PriceSeries, model.IndicatorSeries) {
	d0 := time.Date(2025, 10, 1, 0, 0, 0, 0, model.ICT)
	series := &model.PriceSeries{Symbol: "VNM", Bars: []model.PriceBar{
		{Date: d0, Open: 10, High: 12, Low: 9, Close: 11, Volume: 1000},
		{Date: d0.AddDate(0, 0, 1), Open: 11, High: 13, Low: 10, Close: 12, Volume: 2000},
	}}
	ind := model.IndicatorSeries{
		{Date: d0},
		{Date: d0.AddDate(0, 0, 1), SMA: optional.Some(11.5), UpperBand: optional.Some(12.9), LowerBand: optional.Some(10.1), RSI: optional.Some(100.0)},
	}
	return series, ind
}

func TestBuild_Candlestick(t *testing.T) {
	series, ind := fixture()
	fig := Build(series, ind, Options{SMAWindow: 20}).Candlestick

	assert.Equal(t, "Biểu đồ nến VNM", fig.Layout.Title.Text)
	assert.Equal(t, "Ngày", fig.Layout.XAxis.Title.Text)
	assert.Equal(t, "Giá", fig.Layout.YAxis.Title.Text)
	assert.Equal(t, CandlestickHeight, fig.Layout.Height)

	require.Len(t, fig.Data, 4)
	assert.Equal(t, "candlestick", fig.Data[0].Type)
	assert.Equal(t, []string{"2025-10-01", "2025-10-02"}, fig.Data[0].X)
	assert.Equal(t, []float64{11, 12}, fig.Data[0].Close)

	upper, lower, sma := fig.Data[1], fig.Data[2], fig.Data[3]
	assert.Equal(t, "Upper Band", upper.Name)
	assert.Equal(t, Line{Color: "red", Dash: "dash"}, *upper.Line)
	assert.Equal(t, "Lower Band", lower.Name)
	assert.Equal(t, Line{Color: "green", Dash: "dash"}, *lower.Line)
	assert.Equal(t, "SMA20", sma.Name)
	assert.Equal(t, "orange", sma.Line.Color)
	assert.True(t, sma.Y[0].IsNone())
	assert.Equal(t, 11.5, sma.Y[1].Unwrap())
}

func TestBuild_RSIGuides(t *testing.T) {
	series, ind := fixture()
	fig := Build(series, ind, Options{}).RSI

	assert.Equal(t, "Chỉ số RSI", fig.Layout.Title.Text)
	assert.Equal(t, RSIHeight, fig.Layout.Height)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "purple", fig.Data[0].Line.Color)

	require.Len(t, fig.Layout.Shapes, 2)
	assert.Equal(t, 70.0, fig.Layout.Shapes[0].Y0)
	assert.Equal(t, "red", fig.Layout.Shapes[0].Line.Color)
	assert.Equal(t, 30.0, fig.Layout.Shapes[1].Y0)
	assert.Equal(t, "green", fig.Layout.Shapes[1].Line.Color)
	assert.Equal(t, "Overbought", fig.Layout.Annotations[0].Text)
	assert.Equal(t, "Oversold", fig.Layout.Annotations[1].Text)
}

func TestBuild_Volume(t *testing.T) {
	series, ind := fixture()
	fig := Build(series, ind, Options{}).Volume

	assert.Equal(t, "Khối lượng giao dịch", fig.Layout.Title.Text)
	assert.Equal(t, "Volume", fig.Layout.YAxis.Title.Text)
	assert.Equal(t, VolumeHeight, fig.Layout.Height)
	require.Len(t, fig.Data, 1)
	assert.Equal(t, "bar", fig.Data[0].Type)
	assert.Equal(t, "Khối lượng", fig.Data[0].Name)
	assert.Equal(t, "blue", fig.Data[0].Marker.Color)
	assert.Equal(t, 2000.0, fig.Data[0].Y[1].Unwrap())
}

func TestBuild_UndefinedMarshalsAsNull(t *testing.T) {
	series, ind := fixture()
	raw, err := sonic.Marshal(Build(series, ind, Options{}).RSI)
	require.NoError(t, err)

	var decoded struct {
		Data []struct {
			Y []*float64 `json:"y"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(raw, &decoded))
	require.Len(t, decoded.Data[0].Y, 2)
	assert.Nil(t, decoded.Data[0].Y[0])
	assert.Equal(t, 100.0, *decoded.Data[0].Y[1])
}

func TestEmpty(t *testing.T) {
	charts := Empty("FPT")
	assert.True(t, charts.Candlestick.IsEmpty())
	assert.True(t, charts.RSI.IsEmpty())
	assert.True(t, charts.Volume.IsEmpty())
	assert.NotNil(t, charts.Candlestick.Data)
	assert.Equal(t, "Biểu đồ nến FPT", charts.Candlestick.Layout.Title.Text)
}
