// Package chart turns a price series and its indicators into Plotly figure
// descriptions. A Figure marshals to the {"data": [...], "layout": {...}}
// object that Plotly.newPlot accepts directly in the browser.
package chart

import "github.com/moznion/go-optional"

// Figure is one Plotly chart.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is a single Plotly trace. Only the fields the dashboard uses are
// modelled; None values in Y marshal to null and Plotly leaves a gap.
type Trace struct {
	Type string   `json:"type"`
	Name string   `json:"name,omitempty"`
	Mode string   `json:"mode,omitempty"`
	X    []string `json:"x"`

	Y []optional.Option[float64] `json:"y,omitempty"`

	Open  []float64 `json:"open,omitempty"`
	High  []float64 `json:"high,omitempty"`
	Low   []float64 `json:"low,omitempty"`
	Close []float64 `json:"close,omitempty"`

	Line   *Line   `json:"line,omitempty"`
	Marker *Marker `json:"marker,omitempty"`
}

type Line struct {
	Color string  `json:"color,omitempty"`
	Dash  string  `json:"dash,omitempty"`
	Width float64 `json:"width,omitempty"`
}

type Marker struct {
	Color string `json:"color,omitempty"`
}

// Layout carries titles, size and the dark theme colours.
type Layout struct {
	Title        Text         `json:"title"`
	Height       int          `json:"height"`
	PaperBGColor string       `json:"paper_bgcolor"`
	PlotBGColor  string       `json:"plot_bgcolor"`
	Font         Font         `json:"font"`
	XAxis        Axis         `json:"xaxis"`
	YAxis        Axis         `json:"yaxis"`
	Shapes       []Shape      `json:"shapes,omitempty"`
	Annotations  []Annotation `json:"annotations,omitempty"`
	ShowLegend   bool         `json:"showlegend"`
	UIRevision   string       `json:"uirevision,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

type Font struct {
	Color string `json:"color"`
}

type Axis struct {
	Title       Text    `json:"title"`
	GridColor   string  `json:"gridcolor,omitempty"`
	Type        string  `json:"type,omitempty"`
	RangeSlider *Toggle `json:"rangeslider,omitempty"`
}

type Toggle struct {
	Visible bool `json:"visible"`
}

// Shape is a horizontal guide line spanning the plot width.
type Shape struct {
	Type string  `json:"type"`
	XRef string  `json:"xref"`
	X0   float64 `json:"x0"`
	X1   float64 `json:"x1"`
	YRef string  `json:"yref"`
	Y0   float64 `json:"y0"`
	Y1   float64 `json:"y1"`
	Line Line    `json:"line"`
}

type Annotation struct {
	Text      string  `json:"text"`
	XRef      string  `json:"xref"`
	X         float64 `json:"x"`
	YRef      string  `json:"yref"`
	Y         float64 `json:"y"`
	XAnchor   string  `json:"xanchor"`
	YAnchor   string  `json:"yanchor"`
	ShowArrow bool    `json:"showarrow"`
}

// IsEmpty reports whether the figure has no traces.
func (f Figure) IsEmpty() bool { return len(f.Data) == 0 }
