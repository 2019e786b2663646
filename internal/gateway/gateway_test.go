package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockdash/internal/dashboard"
	"stockdash/internal/indicator"
	"stockdash/internal/metrics"
	"stockdash/internal/model"
)

var testNow = time.Date(2026, 10, 19, 10, 30, 0, 0, model.ICT)

type stubSource struct {
	err error
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) FetchDaily(ctx context.Context, symbol string, start, end time.Time) (*model.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	series := &model.PriceSeries{Symbol: symbol}
	day := time.Date(2026, 8, 3, 0, 0, 0, 0, model.ICT)
	for i := 0; i < 40; i++ {
		c := 100 + float64(i)
		series.Bars = append(series.Bars, model.PriceBar{
			Date: day.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000,
		})
	}
	return series, nil
}

type memPersister struct {
	mu    sync.Mutex
	saved []dashboard.Settings
}

func (p *memPersister) LoadSettings(ctx context.Context) (dashboard.Settings, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.saved) == 0 {
		return dashboard.Settings{}, false, nil
	}
	return p.saved[len(p.saved)-1], true, nil
}

func (p *memPersister) SaveSettings(ctx context.Context, s dashboard.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.saved = append(p.saved, s)
	return nil
}

type fixture struct {
	hub     *Hub
	srv     *httptest.Server
	metrics *metrics.Metrics
	store   *memPersister
}

func newFixture(t *testing.T, src model.PriceSource) *fixture {
	t.Helper()
	m := metrics.NewMetrics(prometheus.NewRegistry())
	svc, err := dashboard.NewService(src, dashboard.Config{
		Settings: dashboard.Settings{DefaultSymbol: "VNM", Params: indicator.DefaultParams()},
	}, dashboard.WithClock(func() time.Time { return testNow }), dashboard.WithMetrics(m))
	require.NoError(t, err)

	store := &memPersister{}
	hub := NewHub(svc, store, m, nil)
	srv := httptest.NewServer(NewRouter(hub, metrics.NewHealthStatus(src.Name()), m))
	t.Cleanup(srv.Close)
	return &fixture{hub: hub, srv: srv, metrics: m, store: store}
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]interface{}) {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]interface{}
	_ = sonic.Unmarshal(body, &out)
	return resp.StatusCode, out
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readType reads messages until one of the wanted type arrives.
func readType(t *testing.T, conn *websocket.Conn, want string) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var msg map[string]interface{}
		require.NoError(t, sonic.Unmarshal(data, &msg))
		if msg["type"] == want {
			return msg
		}
	}
}

func TestSymbols(t *testing.T) {
	f := newFixture(t, &stubSource{})

	resp, err := http.Get(f.srv.URL + "/api/symbols")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var symbols []model.Symbol
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, sonic.Unmarshal(body, &symbols))
	assert.Equal(t, model.DefaultSymbols(), symbols)
}

func TestDashboard_REST(t *testing.T) {
	f := newFixture(t, &stubSource{})

	code, body := f.get(t, "/api/dashboard?symbol=fpt")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "FPT", body["symbol"])
	assert.Equal(t, "", body["error"])
	assert.EqualValues(t, 40, body["bars"])
	assert.Contains(t, body, "candlestick")
	assert.Contains(t, body, "rsi")
	assert.Contains(t, body, "volume")
	assert.EqualValues(t, 1, f.hub.Latency.Total(TransportREST))
}

func TestDashboard_FetchErrorIsMessage(t *testing.T) {
	f := newFixture(t, &stubSource{err: errors.New("upstream down")})

	code, body := f.get(t, "/api/dashboard?symbol=VCB")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Lỗi khi tải dữ liệu: upstream down", body["error"])
}

func TestIndicators(t *testing.T) {
	f := newFixture(t, &stubSource{})

	code, body := f.get(t, "/api/indicators?symbol=VNM")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["bars"], 40)
	assert.Len(t, body["indicators"], 40)

	code, _ = f.get(t, "/api/indicators?symbol=AAA")
	assert.Equal(t, http.StatusNotFound, code)

	bad := newFixture(t, &stubSource{err: errors.New("boom")})
	code, _ = bad.get(t, "/api/indicators?symbol=VNM")
	assert.Equal(t, http.StatusBadGateway, code)
}

func TestConfig_GetAndPost(t *testing.T) {
	f := newFixture(t, &stubSource{})

	code, body := f.get(t, "/api/config")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "VNM", body["default_symbol"])

	conn := f.dial(t)
	readType(t, conn, MsgMarket)

	payload := `{"default_symbol":"fpt","params":{"bollinger_window":10,"bollinger_k":2,"rsi_window":14,"rsi_smoothing":"wilder"}}`
	resp, err := http.Post(f.srv.URL+"/api/config", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "FPT", f.hub.Svc.Settings().DefaultSymbol)
	assert.Equal(t, indicator.SmoothingWilder, f.hub.Svc.Settings().Params.RSISmoothing)
	require.Len(t, f.store.saved, 1)
	assert.Equal(t, 10, f.store.saved[0].Params.BollingerWindow)

	update := readType(t, conn, MsgConfigUpdate)
	settings := update["settings"].(map[string]interface{})
	assert.Equal(t, "FPT", settings["default_symbol"])
}

func TestConfig_PostPartialKeepsOmittedFields(t *testing.T) {
	f := newFixture(t, &stubSource{})

	post := func(payload string) int {
		resp, err := http.Post(f.srv.URL+"/api/config", "application/json", strings.NewReader(payload))
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	require.Equal(t, http.StatusOK, post(`{"default_symbol":"FPT"}`))
	got := f.hub.Svc.Settings()
	assert.Equal(t, "FPT", got.DefaultSymbol)
	assert.Equal(t, indicator.DefaultParams(), got.Params)

	require.Equal(t, http.StatusOK, post(`{"params":{"rsi_window":9}}`))
	got = f.hub.Svc.Settings()
	assert.Equal(t, "FPT", got.DefaultSymbol)
	assert.Equal(t, 9, got.Params.RSIWindow)
	assert.Equal(t, indicator.DefaultBollingerWindow, got.Params.BollingerWindow)
	assert.Equal(t, indicator.SmoothingSimple, got.Params.RSISmoothing)
}

func TestConfig_PostInvalid(t *testing.T) {
	f := newFixture(t, &stubSource{})

	for name, payload := range map[string]string{
		"bad json":       `{`,
		"unknown symbol": `{"default_symbol":"XYZ","params":{"bollinger_window":20,"bollinger_k":2,"rsi_window":14,"rsi_smoothing":"simple"}}`,
		"zero window":    `{"default_symbol":"VNM","params":{"bollinger_window":0,"bollinger_k":2,"rsi_window":14,"rsi_smoothing":"simple"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			resp, err := http.Post(f.srv.URL+"/api/config", "application/json", strings.NewReader(payload))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Equal(t, "VNM", f.hub.Svc.Settings().DefaultSymbol)
	assert.Empty(t, f.store.saved)
}

func TestConfigStore_Load(t *testing.T) {
	f := newFixture(t, &stubSource{})
	assert.False(t, f.hub.ConfigStore.Load(context.Background()))

	s := f.hub.Svc.Settings()
	s.DefaultSymbol = "VCB"
	require.NoError(t, f.store.SaveSettings(context.Background(), s))
	assert.True(t, f.hub.ConfigStore.Load(context.Background()))
	assert.Equal(t, "VCB", f.hub.ConfigStore.Get().DefaultSymbol)
}

func TestStatus(t *testing.T) {
	f := newFixture(t, &stubSource{})

	code, body := f.get(t, "/api/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "stub", body["source"])
	assert.EqualValues(t, 0, body["ws_clients"])
	assert.Contains(t, body, "render_latency")
	assert.Contains(t, body, "market")
	assert.Contains(t, body, "runtime")
}

func TestIndexPage(t *testing.T) {
	f := newFixture(t, &stubSource{})

	resp, err := http.Get(f.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(body), `id="candlestick"`)
	// REST and WS replies share one request token; stale REST replies are dropped.
	assert.Contains(t, string(body), "if (token !== pending) return;")
	assert.Contains(t, string(body), "reqId: nextToken()")
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, &stubSource{})

	code, body := f.get(t, "/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])

	f.get(t, "/api/symbols")
	resp, err := http.Get(f.srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	text, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(text), "dashboard_http_requests_total")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.HTTPRequests.WithLabelValues("/api/symbols", "200")))
}

func TestWS_SelectReturnsDashboard(t *testing.T) {
	f := newFixture(t, &stubSource{})
	conn := f.dial(t)

	market := readType(t, conn, MsgMarket)
	assert.Contains(t, market, "market")
	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(SelectMsg{Type: MsgSelect, ReqID: "r1", Symbol: "VCB"}))
	msg := readType(t, conn, MsgDashboard)
	assert.Equal(t, "r1", msg["reqId"])
	assert.Equal(t, "VCB", msg["symbol"])
	assert.Equal(t, "Vietcombank (VCB)", msg["label"])
	assert.Equal(t, "", msg["error"])
	assert.EqualValues(t, 1, f.hub.Latency.Total(TransportWS))
	assert.Zero(t, f.hub.Latency.Total(TransportREST))
}

func TestWS_UnknownSymbolMessage(t *testing.T) {
	f := newFixture(t, &stubSource{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteJSON(SelectMsg{Type: MsgSelect, ReqID: "r2", Symbol: "AAA"}))
	msg := readType(t, conn, MsgDashboard)
	assert.Equal(t, "r2", msg["reqId"])
	assert.Equal(t, "Mã AAA không có trong danh sách.", msg["error"])
}

func TestWS_PingAndUnknownType(t *testing.T) {
	f := newFixture(t, &stubSource{})
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"ping":42}`)))
	pong := readType(t, conn, MsgPong)
	assert.EqualValues(t, 42, pong["ping"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SUBSCRIBE"}`)))
	errMsg := readType(t, conn, MsgError)
	assert.Contains(t, errMsg["error"], "unknown message type")
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	f := newFixture(t, &stubSource{})
	conn := f.dial(t)
	readType(t, conn, MsgMarket)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.WSClients))
}
