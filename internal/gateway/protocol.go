package gateway

import (
	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"stockdash/internal/dashboard"
	"stockdash/internal/markethours"
)

// ── WS Protocol Message Types ──

const (
	MsgSelect       = "SELECT"
	MsgDashboard    = "DASHBOARD"
	MsgError        = "ERROR"
	MsgPing         = "PING"
	MsgPong         = "pong"
	MsgConfigUpdate = "config_update"
	MsgMarket       = "market"
)

// SelectMsg is the client → server request to render a symbol.
type SelectMsg struct {
	Type   string `json:"type"`   // "SELECT"
	ReqID  string `json:"reqId"`  // client-generated request ID
	Symbol string `json:"symbol"` // e.g. "FPT"; blank selects the default
}

// DashboardMessage is the server → client answer to a SELECT.
type DashboardMessage struct {
	Type  string `json:"type"` // "DASHBOARD"
	ReqID string `json:"reqId"`
	*dashboard.Response
}

// ErrorResponse is the server → client ERROR message.
type ErrorResponse struct {
	Type  string `json:"type"` // "ERROR"
	ReqID string `json:"reqId,omitempty"`
	Error string `json:"error"`
}

// ConfigUpdate is broadcast when the dashboard settings change.
type ConfigUpdate struct {
	Type     string             `json:"type"` // "config_update"
	Settings dashboard.Settings `json:"settings"`
	TS       string             `json:"ts"`
}

// MarketUpdate is broadcast when the HOSE session phase changes.
type MarketUpdate struct {
	Type   string             `json:"type"` // "market"
	Market markethours.Status `json:"market"`
}

// PongMessage answers a client keepalive.
type PongMessage struct {
	Type     string `json:"type"` // "pong"
	Ping     int64  `json:"ping"`
	ServerTS int64  `json:"server_ts"`
}

// SendJSON marshals and queues a message for the client. Messages to a full
// or closed client are dropped.
func SendJSON(c *Client, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		c.hub.log.Error("ws marshal error", zap.Error(err))
		return
	}
	c.enqueue(data)
}

// SendError sends an error response to the client.
func SendError(c *Client, reqID, errMsg string) {
	SendJSON(c, ErrorResponse{
		Type:  MsgError,
		ReqID: reqID,
		Error: errMsg,
	})
}
