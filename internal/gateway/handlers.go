package gateway

import (
	"bufio"
	"embed"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"stockdash/internal/dashboard"
	"stockdash/internal/logger"
	"stockdash/internal/metrics"
)

//go:embed web/index.html
var webFS embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// NewRouter registers all HTTP routes. health and m may be nil.
func NewRouter(hub *Hub, health http.Handler, m *metrics.Metrics) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument(hub.log, m))

	r.HandleFunc("/", serveIndex).Methods(http.MethodGet)

	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", zap.Error(err))
			return
		}
		hub.HandleWSRequest(conn)
	})

	api := r.PathPrefix("/api").Subrouter()
	api.Use(cors)
	api.HandleFunc("/symbols", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.Svc.Symbols())
	}).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		resp, err := hub.Svc.Render(r.Context(), r.URL.Query().Get("symbol"))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		hub.Latency.Observe(TransportREST, time.Since(started))
		writeJSON(w, http.StatusOK, resp)
	}).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/indicators", func(w http.ResponseWriter, r *http.Request) {
		resp, err := hub.Svc.Indicators(r.Context(), r.URL.Query().Get("symbol"))
		switch {
		case errors.Is(err, dashboard.ErrUnknownSymbol):
			writeError(w, http.StatusNotFound, err.Error())
		case err != nil:
			logger.For(r.Context(), hub.log).Warn("indicators failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, err.Error())
		default:
			writeJSON(w, http.StatusOK, resp)
		}
	}).Methods(http.MethodGet, http.MethodOptions)

	api.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			// Omitted fields keep their current values.
			req := hub.ConfigStore.Get()
			if err := sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid JSON")
				return
			}
			if err := hub.ConfigStore.Set(r.Context(), req); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			logger.For(r.Context(), hub.log).Info("settings updated",
				zap.String("default_symbol", req.DefaultSymbol))
		}
		writeJSON(w, http.StatusOK, hub.ConfigStore.Get())
	}).Methods(http.MethodGet, http.MethodPost, http.MethodOptions)

	api.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, CollectStatus(hub, time.Now()))
	}).Methods(http.MethodGet, http.MethodOptions)

	if health != nil {
		r.Handle("/health", health).Methods(http.MethodGet)
	}
	if m != nil {
		r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	}
	return r
}

func serveIndex(w http.ResponseWriter, r *http.Request) {
	page, err := webFS.ReadFile("web/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		SetCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// instrument tags each request with a trace id and counts it by route
// template and status code.
func instrument(log *zap.Logger, m *metrics.Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := logger.GenerateTraceID(r.URL.Path, time.Now())
			ctx := logger.WithTraceID(r.Context(), traceID)
			w.Header().Set("X-Trace-Id", traceID)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r.WithContext(ctx))

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			if m != nil {
				m.HTTPRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
			}
			if rec.status >= http.StatusInternalServerError {
				log.Warn("request failed",
					zap.String("route", route),
					zap.Int("status", rec.status),
					zap.String("trace_id", traceID))
			}
		})
	}
}

// statusRecorder captures the response code. It forwards Hijack so the
// WebSocket upgrade keeps working behind the middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encode failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(data)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
