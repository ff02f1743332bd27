package stream

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/threadwarden/threadwarden/internal/common/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one attached WebSocket consumer. The stream is one-way; inbound
// frames are read only to service pings and detect disconnects.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	sendCh chan []byte
	logger *logger.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		sendCh: make(chan []byte, sendBuffer),
		logger: log,
	}
}

// send queues a payload for delivery. Returns false when the client's buffer
// is full; the event is dropped rather than blocking the broadcaster.
func (c *Client) send(payload []byte) bool {
	select {
	case c.sendCh <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.conn.Close()
}

// readPump discards inbound frames until the connection drops.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

// writePump drains the send buffer and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			// Flush whatever else is queued into the same frame.
			n := len(c.sendCh)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.sendCh)
			}

			if err := w.Close(); err != nil {
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
