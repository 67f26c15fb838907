// Package hub keeps the live WebSocket connections of authenticated users and
// pushes newly created messages to their recipients.
package hub

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mohammad-safakhou/prizm/internal/telemetry"
	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
)

const (
	DefaultPingInterval = 30 * time.Second
	writeWait           = 10 * time.Second
	sendBuffer          = 16
)

// authFrame is the only inbound frame the hub understands.
type authFrame struct {
	Type   string `json:"type"`
	UserID int    `json:"userId"`
}

type Option func(*Hub)

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithMetrics counts deliveries under the given broker label.
func WithMetrics(m *telemetry.Metrics, broker string) Option {
	return func(h *Hub) {
		h.metrics = m
		h.broker = broker
	}
}

// Hub maps user IDs to their open sockets. A user may hold several sockets.
type Hub struct {
	logger       *zap.Logger
	metrics      *telemetry.Metrics
	broker       string
	pingInterval time.Duration
	upgrader     websocket.Upgrader

	mu      sync.RWMutex
	clients map[int]map[*client]struct{}
	all     map[*client]struct{}
	closed  bool
	wg      sync.WaitGroup
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	userID int
	done   chan struct{}
	once   sync.Once
}

func (c *client) stop() {
	c.once.Do(func() { close(c.done) })
}

func New(logger *zap.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		logger:       logger,
		broker:       "local",
		pingInterval: DefaultPingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[int]map[*client]struct{}),
		all:     make(map[*client]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the request and serves the socket until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer), done: make(chan struct{})}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.all[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	go h.writeLoop(c)
	go h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	defer h.wg.Done()
	defer h.drop(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.Int("user_id", c.userID), zap.Error(err))
			}
			return
		}
		var frame authFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.logger.Debug("ignoring malformed frame", zap.Error(err))
			continue
		}
		if frame.Type == "auth" && frame.UserID > 0 {
			h.bind(c, frame.UserID)
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	defer h.wg.Done()
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.stop()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.stop()
				return
			}
		}
	}
}

func (h *Hub) bind(c *client, userID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.all[c]; !ok {
		return
	}
	if c.userID != 0 {
		h.unbindLocked(c)
	}
	c.userID = userID
	set, ok := h.clients[userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[userID] = set
	}
	set[c] = struct{}{}
	h.logger.Info("user authenticated via websocket", zap.Int("user_id", userID))
}

func (h *Hub) unbindLocked(c *client) {
	if set, ok := h.clients[c.userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	if _, ok := h.all[c]; ok {
		delete(h.all, c)
		if c.userID != 0 {
			h.unbindLocked(c)
		}
	}
	h.mu.Unlock()
	c.stop()
}

// Deliver pushes msg to every socket bound to msg.ToID and returns how many received it.
// It has the bus.Handler signature.
func (h *Hub) Deliver(_ context.Context, msg models.Message) int {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.Error(err))
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients[msg.ToID] {
		select {
		case c.send <- data:
			n++
		default:
			h.logger.Warn("dropping message for slow socket", zap.Int("user_id", msg.ToID), zap.Int("message_id", msg.ID))
		}
	}
	for i := 0; i < n; i++ {
		h.metrics.Delivered(h.broker)
	}
	return n
}

// Handle adapts Deliver to bus.Handler.
func (h *Hub) Handle(ctx context.Context, msg models.Message) { h.Deliver(ctx, msg) }

// Connected reports whether userID holds at least one bound socket.
func (h *Hub) Connected(userID int) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Close disconnects every socket and waits for their goroutines.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.all))
	for c := range h.all {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.stop()
	}
	h.wg.Wait()
}
