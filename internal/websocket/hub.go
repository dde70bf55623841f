package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pi-assistant/internal/expression"
	"pi-assistant/internal/models"
)

// ExpressionChannel is the Redis channel face changes are fanned out on.
const ExpressionChannel = "assistant:expression"

const (
	writeWait   = 5 * time.Second
	eventBuffer = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// client serializes writes; gorilla allows one concurrent writer per conn.
type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub streams expression changes to websocket clients. With Redis configured
// every change goes through ExpressionChannel, so several processes can share
// one face; without it changes are broadcast directly.
type Hub struct {
	mu        sync.RWMutex
	clients   map[*websocket.Conn]*client
	last      []byte
	publisher *redis.Client
	pubsub    *redis.Client
	events    chan models.ExpressionEvent
	ready     chan struct{}
	readyOnce sync.Once
	wg        sync.WaitGroup
	logger    *zap.Logger
	now       func() time.Time
}

// NewHub builds a hub. publisher and pubsub may both be nil.
func NewHub(publisher, pubsub *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		clients:   make(map[*websocket.Conn]*client),
		publisher: publisher,
		pubsub:    pubsub,
		events:    make(chan models.ExpressionEvent, eventBuffer),
		ready:     make(chan struct{}),
		logger:    logger,
		now:       time.Now,
	}
}

// ExpressionChanged implements expression.Observer. It never blocks the
// controller; events are dropped when the buffer is full.
func (h *Hub) ExpressionChanged(state expression.State) {
	ev := models.ExpressionEvent{
		Type:      "expression",
		State:     string(state),
		Timestamp: h.now().Format(time.RFC3339Nano),
	}
	select {
	case h.events <- ev:
	default:
		h.logger.Debug("expression event dropped", zap.String("state", ev.State))
	}
}

// Ready is closed once Run is delivering events.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Run delivers events until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	defer h.closeAll()

	if h.pubsub != nil {
		sub := h.pubsub.Subscribe(ctx, ExpressionChannel)
		defer sub.Close()
		if _, err := sub.Receive(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			h.logger.Warn("redis subscribe failed, broadcasting locally", zap.Error(err))
			h.pubsub = nil
			h.publisher = nil
		} else {
			h.wg.Add(1)
			go func() {
				defer h.wg.Done()
				h.relay(ctx, sub.Channel())
			}()
		}
	}
	h.readyOnce.Do(func() { close(h.ready) })

	for {
		select {
		case <-ctx.Done():
			h.wg.Wait()
			return nil
		case ev := <-h.events:
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Error("failed to encode expression event", zap.Error(err))
				continue
			}
			if h.publisher != nil {
				if err := h.publisher.Publish(ctx, ExpressionChannel, data).Err(); err == nil {
					continue
				} else if ctx.Err() == nil {
					h.logger.Warn("redis publish failed, broadcasting locally", zap.Error(err))
				}
			}
			h.broadcast(data)
		}
	}
}

func (h *Hub) relay(ctx context.Context, ch <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast([]byte(msg.Payload))
		}
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := h.register(conn)

	h.mu.RLock()
	last := h.last
	h.mu.RUnlock()
	if last != nil {
		if err := c.write(last); err != nil {
			h.unregister(conn)
			return
		}
	}

	// Reads only detect the disconnect; clients never send anything useful.
	go func() {
		defer h.unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Clients reports the number of connected websockets.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(conn *websocket.Conn) *client {
	h.mu.Lock()
	defer h.mu.Unlock()

	c := &client{conn: conn}
	h.clients[conn] = c
	h.logger.Debug("websocket connected", zap.Int("clients", len(h.clients)))
	return c
}

func (h *Hub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		h.logger.Debug("websocket disconnected", zap.Int("clients", len(h.clients)))
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	h.last = data
	targets := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.logger.Debug("websocket write failed", zap.Error(err))
			h.unregister(c.conn)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		h.unregister(conn)
	}
}
