// Package ws is the WebSocket bridge between the exam page and the
// agent. The page pushes camera frames and browser state changes in;
// the agent pushes warnings and the termination notice out.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vaishnavipawardottech/anticheating-sub000/internal/browser"
	"github.com/vaishnavipawardottech/anticheating-sub000/internal/domain/model"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/logger"
	"github.com/vaishnavipawardottech/anticheating-sub000/pkg/metrics"
)

// Default bridge configuration constants.
const (
	defaultSendBuffer   = 64
	writeTimeout        = 10 * time.Second
	pongTimeout         = 60 * time.Second
	pingInterval        = 30 * time.Second
	maxInboundFrameSize = 4 << 20 // 4 MiB, generous for one JPEG
)

// FramePublisher receives camera frames from the page.
type FramePublisher interface {
	Publish(ctx context.Context, frame model.Frame)
}

// Inbound message types.
const (
	typeFrame   = "frame"
	typeBrowser = "browser"
)

// inboundMessage is one message from the exam page.
type inboundMessage struct {
	Type string `json:"type"`

	// Frame payload, set when Type is "frame". JPEG arrives
	// base64-encoded in the JSON.
	JPEG   []byte `json:"jpeg,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`

	// Browser event, set when Type is "browser".
	Event browser.Event `json:"event,omitempty"`
}

// outboundMessage is one message pushed to the exam page.
type outboundMessage struct {
	Type     string `json:"type"` // "warning" or "terminated"
	Category string `json:"category,omitempty"`
	Count    int    `json:"count,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// client is one connected exam page.
type client struct {
	conn *websocket.Conn
	send chan outboundMessage
}

// Bridge upgrades connections and pumps messages both ways.
type Bridge struct {
	frames  FramePublisher
	monitor *browser.Monitor

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	logger logger.Logger
}

// NewBridge creates the bridge feeding frames and browser events into
// the given targets.
func NewBridge(frames FramePublisher, monitor *browser.Monitor) *Bridge {
	return &Bridge{
		frames:  frames,
		monitor: monitor,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The agent serves the exam page itself; same-host pages only.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
		logger:  logger.Get().Named("ws"),
	}
}

// ServeHTTP upgrades one connection and runs its pumps.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan outboundMessage, defaultSendBuffer),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.mu.Unlock()
	metrics.UpdateWSConnections(n)

	b.logger.Info(r.Context(), "exam page connected")

	go b.writePump(c)
	b.readPump(r.Context(), c)

	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	n = len(b.clients)
	b.mu.Unlock()
	metrics.UpdateWSConnections(n)

	_ = conn.Close()
	b.logger.Info(r.Context(), "exam page disconnected")
}

// BroadcastWarning pushes one warning to every connected page.
func (b *Bridge) BroadcastWarning(category model.ViolationCategory, count int) {
	b.broadcast(outboundMessage{
		Type:     "warning",
		Category: string(category),
		Count:    count,
	})
}

// BroadcastTermination pushes the termination notice. The page reacts
// by exiting fullscreen and locking the exam UI.
func (b *Bridge) BroadcastTermination(reason string) {
	b.broadcast(outboundMessage{
		Type:   "terminated",
		Reason: reason,
	})
}

// Close disconnects every page.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for c := range b.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(b.clients, c)
	}
	metrics.UpdateWSConnections(0)
	return nil
}

// broadcast queues a message to all clients, dropping it for clients
// whose send buffer is full.
func (b *Bridge) broadcast(msg outboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// readPump consumes inbound messages until the connection drops.
func (b *Bridge) readPump(ctx context.Context, c *client) {
	c.conn.SetReadLimit(maxInboundFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		var msg inboundMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Warn(ctx, "websocket read failed", logger.Error(err))
			}
			return
		}

		switch msg.Type {
		case typeFrame:
			b.frames.Publish(ctx, model.Frame{
				Width:  msg.Width,
				Height: msg.Height,
				JPEG:   msg.JPEG,
			})

		case typeBrowser:
			b.monitor.Apply(ctx, msg.Event)

		default:
			b.logger.Warn(ctx, "unknown message type", logger.String("type", msg.Type))
		}
	}
}

// writePump flushes queued messages and keeps the connection alive.
func (b *Bridge) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
