package metrics

import (
	"context"
	"database/sql"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics(prometheus.NewRegistry())
	b := NewMetrics(prometheus.NewRegistry())

	a.RendersTotal.WithLabelValues(OutcomeOK).Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(a.RendersTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RendersTotal.WithLabelValues(OutcomeOK)))
}

func TestObserveBreaker(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveBreaker(1)
	m.ObserveBreaker(2)
	m.ObserveBreaker(0)
	m.ObserveBreaker(1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BreakerState))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BreakerTrips))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.WSClients.Set(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(body), "dashboard_ws_clients 3")
}

func decodeHealth(t *testing.T, h *HealthStatus) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var out map[string]any
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &out))
	return rec.Code, out
}

func TestHealth_HealthyByDefault(t *testing.T) {
	code, body := decodeHealth(t, NewHealthStatus("tcbs"))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "tcbs", body["source"])
}

func TestHealth_BreakerOpenIsDegraded(t *testing.T) {
	h := NewHealthStatus("tcbs")
	h.SetBreakerState("open")

	code, body := decodeHealth(t, h)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", body["status"])
}

func TestHealth_SQLiteProbe(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "h.db"))
	require.NoError(t, err)

	h := NewHealthStatus("sqlite")
	h.Probe(context.Background(), nil, db)
	_, body := decodeHealth(t, h)
	assert.Equal(t, true, body["sqlite_ok"])
	assert.Equal(t, "healthy", body["status"])

	db.Close()
	h.Probe(context.Background(), nil, db)
	code, body := decodeHealth(t, h)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body["status"])
}
