package live

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/pulse/pkg/telemetry"
)

// maxMessageSize bounds what a client may send. Clients only send control
// frames, so anything large is a misbehaving peer.
const maxMessageSize = 512

type client struct {
	conn   *websocket.Conn
	remote string
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

// hub tracks connected clients. Queues are never closed; done signals the
// writer instead, so a late send cannot panic.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}

	buffer       int
	writeTimeout time.Duration
	pingInterval time.Duration
	metrics      *telemetry.Metrics
	logger       *slog.Logger
}

func newHub(cfg Config, logger *slog.Logger) *hub {
	return &hub{
		clients:      make(map[*client]struct{}),
		buffer:       cfg.SendBuffer,
		writeTimeout: cfg.WriteTimeout,
		pingInterval: cfg.PingInterval,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

func (h *hub) add(conn *websocket.Conn) *client {
	c := &client{
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		send:   make(chan []byte, h.buffer),
		done:   make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.ClientConnected()
	}
	h.logger.Debug("client connected", "remote", c.remote)
	return c
}

// remove unregisters c once. dropped marks a client cut off for being slow.
func (h *hub) remove(c *client, dropped bool) {
	c.once.Do(func() {
		close(c.done)
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		if h.metrics != nil {
			h.metrics.ClientDisconnected(dropped)
		}
		h.logger.Debug("client disconnected", "remote", c.remote, "dropped", dropped)
	})
}

// enqueue queues msg for c without blocking. A full queue drops c.
func (h *hub) enqueue(c *client, msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		h.logger.Warn("dropping slow client", "remote", c.remote)
		h.remove(c, true)
		return false
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *hub) closeAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		h.remove(c, false)
	}
}

// writeLoop drains c's queue and keeps the connection alive with pings.
// It owns all writes to the connection.
func (h *hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.logger.Debug("write error", "error", err)
				h.remove(c, false)
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(h.writeTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				h.remove(c, false)
				return
			}

		case <-c.done:
			deadline := time.Now().Add(h.writeTimeout)
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), deadline)
			return
		}
	}
}

// readLoop discards client messages until the connection ends. Pongs
// extend the read deadline.
func (h *hub) readLoop(c *client) {
	defer h.remove(c, false)

	wait := 2 * h.pingInterval
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Error("read error", "error", err)
			}
			return
		}
	}
}
