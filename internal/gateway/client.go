package gateway

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"stockdash/internal/logger"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	readLimit    = 4096
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// done is closed once the client is gone; send is never closed so late
	// renders cannot panic on it.
	done      chan struct{}
	closeOnce sync.Once

	// ctx is cancelled on disconnect and aborts in-flight renders.
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *Client) enqueue(data []byte) {
	select {
	case <-c.done:
		return
	default:
	}
	select {
	case c.send <- data:
	default:
		c.hub.log.Warn("client send buffer full, dropping message")
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		c.hub.log.Info("ws client disconnected")
	}()

	c.conn.SetReadLimit(readLimit)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if sonic.Unmarshal(msg, &base) != nil {
			SendError(c, "", "invalid JSON")
			continue
		}
		msgType := strings.ToUpper(base.Type)
		if c.hub.Metrics != nil {
			c.hub.Metrics.WSMessagesTotal.WithLabelValues(messageLabel(msgType, base.Ping)).Inc()
		}

		switch msgType {
		case MsgSelect:
			var sel SelectMsg
			if err := sonic.Unmarshal(msg, &sel); err != nil {
				SendError(c, "", "invalid SELECT: "+err.Error())
				continue
			}
			go c.handleSelect(sel)

		case MsgPing:
			c.pong(base.Ping)

		default:
			// Bare {"ping": n} keepalives
			if base.Ping > 0 {
				c.pong(base.Ping)
				continue
			}
			SendError(c, "", "unknown message type: "+base.Type)
		}
	}
}

// messageLabel bounds the metric label set to known message types.
func messageLabel(msgType string, ping int64) string {
	switch {
	case msgType == MsgSelect:
		return "select"
	case msgType == MsgPing, msgType == "" && ping > 0:
		return "ping"
	default:
		return "unknown"
	}
}

func (c *Client) pong(ping int64) {
	SendJSON(c, PongMessage{Type: MsgPong, Ping: ping, ServerTS: time.Now().UnixMilli()})
}

// handleSelect renders the requested symbol and answers with a DASHBOARD or
// ERROR message carrying the same reqId.
func (c *Client) handleSelect(msg SelectMsg) {
	started := time.Now()
	ctx := logger.WithTraceID(c.ctx, logger.GenerateTraceID("ws-"+msg.Symbol, started))

	resp, err := c.hub.Svc.Render(ctx, msg.Symbol)
	if err != nil {
		c.hub.log.Warn("render aborted", append(logger.Fields(ctx), zap.Error(err))...)
		SendError(c, msg.ReqID, err.Error())
		return
	}
	c.hub.Latency.Observe(TransportWS, time.Since(started))

	SendJSON(c, DashboardMessage{Type: MsgDashboard, ReqID: msg.ReqID, Response: resp})
}
