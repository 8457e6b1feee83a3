package relay

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/castcore/internal/cast"
	"github.com/muurk/castcore/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; clients only ever send control frames
	maxMessageSize = 512

	// Messages queued per client before it is dropped as too slow
	sendBuffer = 64
)

// Hub fans engine events out to websocket clients. New clients are greeted
// with the last status and media status so they need not wait for a change.
type Hub struct {
	device   string
	upgrader websocket.Upgrader

	mu        sync.Mutex
	clients   map[*client]struct{}
	lastState map[string][]byte
	closed    bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	addr string
}

// NewHub creates a hub labelling every message with device
func NewHub(device string) *Hub {
	return &Hub{
		device: device,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local tool; browsers on other origins may watch too
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[*client]struct{}),
		lastState: make(map[string][]byte),
	}
}

// ServeHTTP upgrades the request and streams events until the peer leaves
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("WebSocket upgrade failed",
			zap.String("remote_addr", r.RemoteAddr),
			zap.Error(err),
		)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer), addr: r.RemoteAddr}
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "relay closed"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	logging.LogConnection(c.addr, "relay_client_connected")

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	for _, kind := range []string{cast.EventStatusChanged.String(), cast.EventMediaStatusChanged.String()} {
		if data, ok := h.lastState[kind]; ok {
			c.send <- data
		}
	}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards anything the client sends and notices when it leaves
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		logging.LogConnection(c.addr, "relay_client_disconnected")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("Relay client read error",
					zap.String("remote_addr", c.addr),
					zap.Error(err),
				)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Publish sends e to every connected client. Clients whose queue is full
// are disconnected.
func (h *Hub) Publish(e cast.Event) {
	data, err := json.Marshal(NewMessage(h.device, e))
	if err != nil {
		logging.Error("Failed to marshal relay message", zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	switch e.Kind {
	case cast.EventStatusChanged, cast.EventMediaStatusChanged:
		h.lastState[e.Kind.String()] = data
	case cast.EventDisconnected, cast.EventConnectionFailed:
		clear(h.lastState)
	}

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Warn("Relay client too slow, disconnecting", zap.String("remote_addr", c.addr))
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Run publishes events until the channel closes or ctx ends
func (h *Hub) Run(ctx context.Context, events <-chan cast.Event) {
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			h.Publish(e)
		case <-ctx.Done():
			return
		}
	}
}

// Clients returns the number of connected clients
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ListenAndServe serves the hub at /events on addr until ctx ends
func ListenAndServe(ctx context.Context, addr string, h *Hub) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logging.Info("Relay listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	h.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
