package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stockdash/internal/dashboard"
	"stockdash/internal/markethours"
	"stockdash/internal/metrics"
)

// Hub owns the WebSocket clients. It delegates rendering to the dashboard
// service and settings to the ConfigStore.
type Hub struct {
	Svc         *dashboard.Service
	Metrics     *metrics.Metrics // optional
	Latency     *RenderLatency
	ConfigStore *ConfigStore

	log       *zap.Logger
	startedAt time.Time

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a Hub. store may be nil, in which case settings live only
// in memory.
func NewHub(svc *dashboard.Service, store SettingsPersister, m *metrics.Metrics, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Hub{
		Svc:       svc,
		Metrics:   m,
		Latency:   NewRenderLatency(500),
		log:       log.Named("gateway"),
		startedAt: time.Now(),
		clients:   make(map[*Client]bool),
	}
	h.ConfigStore = NewConfigStore(h, store)
	return h
}

// HandleWSRequest registers an upgraded connection and starts its pumps.
func (h *Hub) HandleWSRequest(conn *websocket.Conn) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		conn:   conn,
		send:   make(chan []byte, 64),
		done:   make(chan struct{}),
		hub:    h,
		ctx:    ctx,
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}

	h.log.Info("ws client connected", zap.Int("clients", count))

	SendJSON(client, MarketUpdate{Type: MsgMarket, Market: markethours.StatusAt(time.Now())})
	go client.writePump()
	go client.readPump()
	return client
}

// RemoveClient unregisters c and stops its writer.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	if h.Metrics != nil {
		h.Metrics.WSClients.Set(float64(count))
	}
	c.close()
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast marshals v once and queues it for every client.
func (h *Hub) Broadcast(v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.log.Error("broadcast marshal error", zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.enqueue(data)
	}
}

// Uptime returns the time since the hub was created.
func (h *Hub) Uptime() time.Duration { return time.Since(h.startedAt) }

// StartMarketBroadcast checks the HOSE session every interval and tells all
// clients when the phase changes. Blocks until ctx is cancelled.
func (h *Hub) StartMarketBroadcast(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := markethours.CurrentPhase(time.Now())
	h.observeMarket(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			h.observeMarket(now)
			phase := markethours.CurrentPhase(now)
			if phase == last {
				continue
			}
			last = phase
			h.log.Info("market phase changed", zap.String("phase", string(phase)))
			h.Broadcast(MarketUpdate{Type: MsgMarket, Market: markethours.StatusAt(now)})
		}
	}
}

func (h *Hub) observeMarket(now time.Time) {
	if h.Metrics == nil {
		return
	}
	if markethours.IsMarketOpen(now) {
		h.Metrics.MarketOpen.Set(1)
	} else {
		h.Metrics.MarketOpen.Set(0)
	}
}

// Shutdown closes every client connection. Used on graceful server stop.
func (h *Hub) Shutdown(ctx context.Context) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		select {
		case <-ctx.Done():
			return
		default:
		}
		h.RemoveClient(c)
	}
}
