// Package metrics exposes the dashboard's Prometheus metrics and the /health probe.
package metrics

import (
	"context"
	"database/sql"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Render outcomes used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeEmpty         = "empty"
	OutcomeError         = "error"
	OutcomeUnknownSymbol = "unknown_symbol"
)

// Metrics holds all Prometheus metrics for the dashboard.
type Metrics struct {
	RenderDur    prometheus.Histogram
	FetchDur     *prometheus.HistogramVec // labels: source
	ComputeDur   prometheus.Histogram
	RendersTotal *prometheus.CounterVec // labels: outcome
	BarsServed   prometheus.Histogram

	HTTPRequests *prometheus.CounterVec // labels: route, code

	WSClients       prometheus.Gauge
	WSMessagesTotal *prometheus.CounterVec // labels: type

	// Circuit breaker on the upstream source
	BreakerState prometheus.Gauge // 0=closed, 1=open, 2=half-open
	BreakerTrips prometheus.Counter

	MarketOpen prometheus.Gauge // 0=closed, 1=open

	gatherer prometheus.Gatherer
}

// NewMetrics registers all metrics on reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		RenderDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_render_duration_seconds",
			Help:    "End-to-end latency of one dashboard render (fetch, compute, charts)",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		FetchDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dashboard_fetch_duration_seconds",
			Help:    "Price source fetch latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		ComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_indicator_compute_duration_seconds",
			Help:    "Indicator engine compute latency per series",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}),
		RendersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_renders_total",
			Help: "Dashboard renders by outcome (ok, empty, error, unknown_symbol)",
		}, []string{"outcome"}),
		BarsServed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dashboard_bars_per_render",
			Help:    "Number of daily bars in each rendered series",
			Buckets: []float64{0, 20, 50, 100, 200, 250, 300},
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_ws_clients",
			Help: "Connected WebSocket clients",
		}),
		WSMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dashboard_ws_messages_total",
			Help: "Inbound WebSocket messages by type",
		}, []string{"type"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_source_circuit_breaker_state",
			Help: "Upstream source circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dashboard_source_circuit_breaker_trips_total",
			Help: "Times the upstream circuit breaker tripped open",
		}),
		MarketOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dashboard_market_open",
			Help: "HOSE session state (0=closed, 1=open)",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.RenderDur,
		m.FetchDur,
		m.ComputeDur,
		m.RendersTotal,
		m.BarsServed,
		m.HTTPRequests,
		m.WSClients,
		m.WSMessagesTotal,
		m.BreakerState,
		m.BreakerTrips,
		m.MarketOpen,
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveBreaker records a breaker transition; to follows source.State values.
func (m *Metrics) ObserveBreaker(to int) {
	m.BreakerState.Set(float64(to))
	if to == 1 {
		m.BreakerTrips.Inc()
	}
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	RedisEnabled   bool    `json:"redis_enabled"`
	RedisConnected bool    `json:"redis_connected"`
	RedisLatencyMs float64 `json:"redis_latency_ms"`

	SQLiteEnabled   bool    `json:"sqlite_enabled"`
	SQLiteOK        bool    `json:"sqlite_ok"`
	SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`

	Source       string `json:"source"`
	BreakerState string `json:"breaker_state"`

	LastCheckAt time.Time `json:"last_check_at"`
	StartedAt   time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status for the named source.
func NewHealthStatus(source string) *HealthStatus {
	return &HealthStatus{
		Source:       source,
		BreakerState: "closed",
		StartedAt:    time.Now(),
	}
}

func (h *HealthStatus) SetBreakerState(s string) {
	h.mu.Lock()
	h.BreakerState = s
	h.mu.Unlock()
}

// Uptime returns the time since the status was created.
func (h *HealthStatus) Uptime() time.Duration {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return time.Since(h.StartedAt)
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisEnabled = true
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the archive and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteEnabled = true
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// Probe runs every configured dependency check once.
func (h *HealthStatus) Probe(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB) {
	if rdb != nil {
		h.CheckRedis(ctx, rdb)
	}
	if sqlDB != nil {
		h.CheckSQLite(ctx, sqlDB)
	}
}

// StartLivenessChecker probes once, then periodically until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	probe := func() {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		h.Probe(probeCtx, rdb, sqlDB)
		cancel()
	}
	probe()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probe()
			}
		}
	}()
}

// ServeHTTP handles the /health endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK

	redisDown := h.RedisEnabled && !h.RedisConnected
	sqliteDown := h.SQLiteEnabled && !h.SQLiteOK
	if redisDown || sqliteDown || h.BreakerState == "open" {
		overallStatus = "degraded"
	}
	if sqliteDown && h.Source == "sqlite" {
		overallStatus = "unhealthy"
		httpCode = http.StatusServiceUnavailable
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		Source          string  `json:"source"`
		BreakerState    string  `json:"breaker_state"`
		RedisEnabled    bool    `json:"redis_enabled"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteEnabled   bool    `json:"sqlite_enabled"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		Source:          h.Source,
		BreakerState:    h.BreakerState,
		RedisEnabled:    h.RedisEnabled,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteEnabled:   h.SQLiteEnabled,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(status)
}
