package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/coregx/parcelhub"
)

// Conn is a parcelhub.Conn backed by a WebSocket.
//
// Outbound frames go through a buffered queue drained by a single writer
// goroutine. Close stops accepting frames; the writer flushes what is queued,
// sends a close frame and releases the socket.
type Conn struct {
	id          string
	fingerprint string
	ws          *websocket.Conn
	cfg         config

	mu     sync.Mutex
	closed bool
	send   chan []byte

	writerDone chan struct{}
}

var _ parcelhub.Conn = (*Conn)(nil)

func newConn(id, fingerprint string, ws *websocket.Conn, cfg config) *Conn {
	return &Conn{
		id:          id,
		fingerprint: fingerprint,
		ws:          ws,
		cfg:         cfg,
		send:        make(chan []byte, cfg.sendBuffer),
		writerDone:  make(chan struct{}),
	}
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// Fingerprint returns the client's User-Agent.
func (c *Conn) Fingerprint() string { return c.fingerprint }

// Send encodes the event and queues it for the writer.
func (c *Conn) Send(event parcelhub.Event) error {
	frame, err := json.Marshal(event)
	if err != nil {
		return parcelhub.NewErrorWithCause(parcelhub.ErrCodeValidation, "failed to encode event", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return parcelhub.ErrConnectionClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return parcelhub.ErrSendQueueFull
	}
}

// Close stops accepting frames. Frames already queued are still written.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
	return nil
}

// Done is closed once the writer has released the socket.
func (c *Conn) Done() <-chan struct{} {
	return c.writerDone
}

// writePump is the only goroutine that writes to the socket.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
		_ = c.ws.Close()
		close(c.writerDone)
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.writeWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				c.cfg.logger.Debugf("ws: write to %s failed: %v", c.id, err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
