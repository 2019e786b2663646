package chart

import (
	"fmt"

	"github.com/moznion/go-optional"

	"stockdash/internal/model"
)

// Figure heights in pixels.
const (
	CandlestickHeight = 500
	RSIHeight         = 300
	VolumeHeight      = 300
)

// RSI guide levels.
const (
	Overbought = 70.0
	Oversold   = 30.0
)

// Dark theme, close to plotly_dark.
const (
	darkPaper = "#111111"
	darkPlot  = "#111111"
	darkFont  = "#f2f5fa"
	darkGrid  = "#283442"
)

// Charts is the set of three figures the dashboard renders.
type Charts struct {
	Candlestick Figure `json:"candlestick"`
	RSI         Figure `json:"rsi"`
	Volume      Figure `json:"volume"`
}

// Options tweaks labels that depend on indicator parameters.
type Options struct {
	SMAWindow int // used for the "SMA20" trace name
}

// Build renders the three figures. series and indicators must be aligned
// index by index, as indicator.Compute returns them.
func Build(series *model.PriceSeries, indicators model.IndicatorSeries, opts Options) Charts {
	if opts.SMAWindow <= 0 {
		opts.SMAWindow = 20
	}
	x := dates(series)
	return Charts{
		Candlestick: buildCandlestick(series, indicators, x, opts),
		RSI:         buildRSI(indicators, x),
		Volume:      buildVolume(series, x),
	}
}

// Empty returns three figures with no traces, used when there is nothing to draw.
func Empty(symbol string) Charts {
	return Charts{
		Candlestick: Figure{Data: []Trace{}, Layout: darkLayout(candlestickTitle(symbol), "Giá", CandlestickHeight)},
		RSI:         Figure{Data: []Trace{}, Layout: darkLayout("Chỉ số RSI", "RSI", RSIHeight)},
		Volume:      Figure{Data: []Trace{}, Layout: darkLayout("Khối lượng giao dịch", "Volume", VolumeHeight)},
	}
}

func candlestickTitle(symbol string) string {
	if symbol == "" {
		return "Biểu đồ nến"
	}
	return "Biểu đồ nến " + symbol
}

func buildCandlestick(series *model.PriceSeries, ind model.IndicatorSeries, x []string, opts Options) Figure {
	n := series.Len()
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range series.Bars {
		open[i], high[i], low[i], closes[i] = b.Open, b.High, b.Low, b.Close
	}

	upper := make([]optional.Option[float64], len(ind))
	lower := make([]optional.Option[float64], len(ind))
	sma := make([]optional.Option[float64], len(ind))
	for i, p := range ind {
		upper[i], lower[i], sma[i] = p.UpperBand, p.LowerBand, p.SMA
	}

	layout := darkLayout(candlestickTitle(series.Symbol), "Giá", CandlestickHeight)
	layout.XAxis.RangeSlider = &Toggle{Visible: false}

	return Figure{
		Data: []Trace{
			{Type: "candlestick", Name: "Candlestick", X: x, Open: open, High: high, Low: low, Close: closes},
			{Type: "scatter", Mode: "lines", Name: "Upper Band", X: x, Y: upper, Line: &Line{Color: "red", Dash: "dash"}},
			{Type: "scatter", Mode: "lines", Name: "Lower Band", X: x, Y: lower, Line: &Line{Color: "green", Dash: "dash"}},
			{Type: "scatter", Mode: "lines", Name: fmt.Sprintf("SMA%d", opts.SMAWindow), X: x, Y: sma, Line: &Line{Color: "orange"}},
		},
		Layout: layout,
	}
}

func buildRSI(ind model.IndicatorSeries, x []string) Figure {
	rsi := make([]optional.Option[float64], len(ind))
	for i, p := range ind {
		rsi[i] = p.RSI
	}

	layout := darkLayout("Chỉ số RSI", "RSI", RSIHeight)
	layout.Shapes = []Shape{guide(Overbought, "red"), guide(Oversold, "green")}
	layout.Annotations = []Annotation{guideLabel(Overbought, "Overbought"), guideLabel(Oversold, "Oversold")}

	return Figure{
		Data:   []Trace{{Type: "scatter", Mode: "lines", Name: "RSI", X: x, Y: rsi, Line: &Line{Color: "purple"}}},
		Layout: layout,
	}
}

func buildVolume(series *model.PriceSeries, x []string) Figure {
	vol := make([]optional.Option[float64], series.Len())
	for i, b := range series.Bars {
		vol[i] = optional.Some(float64(b.Volume))
	}
	return Figure{
		Data:   []Trace{{Type: "bar", Name: "Khối lượng", X: x, Y: vol, Marker: &Marker{Color: "blue"}}},
		Layout: darkLayout("Khối lượng giao dịch", "Volume", VolumeHeight),
	}
}

func dates(series *model.PriceSeries) []string {
	x := make([]string, series.Len())
	for i, b := range series.Bars {
		x[i] = model.DateKey(b.Date)
	}
	return x
}

func darkLayout(title, yTitle string, height int) Layout {
	return Layout{
		Title:        Text{Text: title},
		Height:       height,
		PaperBGColor: darkPaper,
		PlotBGColor:  darkPlot,
		Font:         Font{Color: darkFont},
		XAxis:        Axis{Title: Text{Text: "Ngày"}, GridColor: darkGrid, Type: "date"},
		YAxis:        Axis{Title: Text{Text: yTitle}, GridColor: darkGrid},
		ShowLegend:   true,
	}
}

func guide(y float64, color string) Shape {
	return Shape{
		Type: "line",
		XRef: "paper", X0: 0, X1: 1,
		YRef: "y", Y0: y, Y1: y,
		Line: Line{Color: color, Dash: "dash"},
	}
}

func guideLabel(y float64, text string) Annotation {
	return Annotation{
		Text: text,
		XRef: "paper", X: 1,
		YRef: "y", Y: y,
		XAnchor: "right", YAnchor: "bottom",
		ShowArrow: false,
	}
}
