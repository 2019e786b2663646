package gateway

import (
	"math"
	"sort"
	"sync"
	"time"
)

// Render transports. Each keeps its own latency window.
const (
	TransportWS   = "ws"
	TransportREST = "rest"
)

// RenderLatency keeps the most recent dashboard render durations for each
// transport so /api/status can show WS and REST side by side.
type RenderLatency struct {
	mu      sync.Mutex
	size    int
	windows map[string]*latencyWindow
}

// latencyWindow is a fixed-size ring of durations in milliseconds.
type latencyWindow struct {
	ms    []float64
	next  int
	total int64 // renders observed since start
}

// LatencySummary describes one transport's recent renders.
type LatencySummary struct {
	P50   float64 `json:"p50_ms"`
	P95   float64 `json:"p95_ms"`
	P99   float64 `json:"p99_ms"`
	Max   float64 `json:"max_ms"`
	Count int     `json:"count"` // samples in the window
	Total int64   `json:"total"` // renders since start
}

// NewRenderLatency keeps up to size samples per transport.
func NewRenderLatency(size int) *RenderLatency {
	if size <= 0 {
		size = 500
	}
	return &RenderLatency{size: size, windows: make(map[string]*latencyWindow)}
}

// Observe records one render served over transport.
func (l *RenderLatency) Observe(transport string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w := l.windows[transport]
	if w == nil {
		w = &latencyWindow{ms: make([]float64, 0, l.size)}
		l.windows[transport] = w
	}
	v := float64(d.Microseconds()) / 1000
	if len(w.ms) < l.size {
		w.ms = append(w.ms, v)
	} else {
		w.ms[w.next] = v
	}
	w.next = (w.next + 1) % l.size
	w.total++
}

// Total returns how many renders transport has served.
func (l *RenderLatency) Total(transport string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if w := l.windows[transport]; w != nil {
		return w.total
	}
	return 0
}

// Summary returns one entry per transport seen so far.
func (l *RenderLatency) Summary() map[string]LatencySummary {
	l.mu.Lock()
	samples := make(map[string][]float64, len(l.windows))
	totals := make(map[string]int64, len(l.windows))
	for name, w := range l.windows {
		samples[name] = append([]float64(nil), w.ms...)
		totals[name] = w.total
	}
	l.mu.Unlock()

	out := make(map[string]LatencySummary, len(samples))
	for name, xs := range samples {
		sort.Float64s(xs)
		out[name] = LatencySummary{
			P50:   nearestRank(xs, 50),
			P95:   nearestRank(xs, 95),
			P99:   nearestRank(xs, 99),
			Max:   xs[len(xs)-1],
			Count: len(xs),
			Total: totals[name],
		}
	}
	return out
}

// nearestRank returns the p-th percentile of sorted, non-empty xs: the
// smallest sample with at least p percent of samples at or below it.
func nearestRank(xs []float64, p float64) float64 {
	rank := int(math.Ceil(p / 100 * float64(len(xs))))
	if rank < 1 {
		rank = 1
	}
	return xs[rank-1]
}
