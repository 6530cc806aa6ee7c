package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/invoice_review_app/internal/core/ports"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Event is the JSON frame pushed to connected clients.
type Event struct {
	Kind    ports.NotificationKind `json:"kind"`
	Payload map[string]string      `json:"payload"`
	SentAt  time.Time              `json:"sentAt"`
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub pushes notifications to users' open websocket connections. A user may hold several
// connections (one per tab); users with none are skipped silently.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[string]map[*wsClient]struct{}
	closed  bool
}

var _ ports.Notifier = (*Hub)(nil)

// NewHub creates a hub. An empty allowedOrigins accepts any origin.
func NewHub(logger *slog.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		logger:  logger.With(slog.String("component", "ws_hub")),
		clients: make(map[string]map[*wsClient]struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
		},
	}
	return h
}

// Serve upgrades the request and registers the connection for userID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("websocket upgrade failed: %w", err)
	}

	c := &wsClient{conn: conn}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("websocket hub is closed")
	}
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*wsClient]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()

	h.logger.Debug("Websocket connected", slog.String("user_id", userID))

	done := make(chan struct{})
	go h.pingLoop(userID, c, done)
	go h.readLoop(userID, c, done)
	return nil
}

func (h *Hub) pingLoop(userID string, c *wsClient, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			h.write(userID, c, func(conn *websocket.Conn) error {
				return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			})
		}
	}
}

// readLoop only services control frames and the client's "ping" keepalives.
func (h *Hub) readLoop(userID string, c *wsClient, done chan<- struct{}) {
	defer close(done)
	defer h.remove(userID, c)

	c.conn.SetReadLimit(4 << 10)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		if mt == websocket.TextMessage && strings.EqualFold(strings.TrimSpace(string(message)), "ping") {
			h.write(userID, c, func(conn *websocket.Conn) error {
				return conn.WriteMessage(websocket.TextMessage, []byte("pong"))
			})
		}
	}
}

func (h *Hub) remove(userID string, c *wsClient) {
	_ = c.conn.Close()
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, userID)
		}
	}
}

func (h *Hub) write(userID string, c *wsClient, fn func(*websocket.Conn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := fn(c.conn); err != nil {
		h.logger.Debug("Websocket write failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		_ = c.conn.Close()
		return err
	}
	return nil
}

// Connections returns the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) Notify(_ context.Context, userID string, kind ports.NotificationKind, payload map[string]string) error {
	data, err := json.Marshal(Event{Kind: kind, Payload: payload, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", kind, err)
	}

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients[userID]))
	for c := range h.clients[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var failed int
	for _, c := range targets {
		if err := h.write(userID, c, func(conn *websocket.Conn) error {
			return conn.WriteMessage(websocket.TextMessage, data)
		}); err != nil {
			failed++
		}
	}
	if failed > 0 && failed == len(targets) {
		return fmt.Errorf("failed to push %s to %s on %d connection(s)", kind, userID, failed)
	}
	return nil
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*wsClient
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.Unlock()

	for _, c := range all {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	}
}
