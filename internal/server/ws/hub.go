// Package ws pushes dashboard state to browsers over WebSocket. Every frame
// is a JSON text message {"type": ..., "payload": ...}: "status" once on
// connect, "error" for a bad client request, and one type per dashboard
// channel ("market", "counter") carrying that dashboard's full state.
package ws

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

	"github.com/alanyoungcy/coindash/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Client request actions.
const (
	actionSubscribe   = "subscribe"
	actionUnsubscribe = "unsubscribe"
	actionSnapshot    = "snapshot"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS middleware decides which origins reach the API at all.
	CheckOrigin: func(*http.Request) bool { return true },
}

// SnapshotFunc returns the current state of one dashboard channel.
type SnapshotFunc func() any

// frame is one outgoing message.
type frame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// statusPayload is sent once, first, on every connection.
type statusPayload struct {
	Mode          string   `json:"mode"`
	ClientID      string   `json:"client_id"`
	Channels      []string `json:"channels"`
	UptimeSeconds int64    `json:"uptime_seconds"`
}

// request is a message from the browser. Channels defaults to every bridged
// channel for subscribe and snapshot.
type request struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

// Config captures the dashboard channels the hub bridges and the runtime
// metadata sent to clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
	// Snapshots maps each bridged channel to the function producing its
	// current state. Only market and counter entries are bridged.
	Snapshots map[string]SnapshotFunc
}

// Hub relays dashboard updates published on the signal bus to the browsers
// subscribed to each channel.
type Hub struct {
	bus       domain.SignalBus
	logger    *slog.Logger
	mode      string
	startedAt time.Time
	channels  []string
	snapshots map[string]SnapshotFunc

	broadcast  chan update
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]bool
}

// update is a published dashboard state on its way to clients.
type update struct {
	channel string
	data    []byte
}

// NewHub creates a Hub over bus.
func NewHub(bus domain.SignalBus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	var channels []string
	for _, ch := range []string{domain.ChannelMarket, domain.ChannelCounter} {
		if _, ok := cfg.Snapshots[ch]; ok {
			channels = append(channels, ch)
		}
	}

	return &Hub{
		bus:        bus,
		logger:     logger.With(slog.String("component", "ws_hub")),
		mode:       mode,
		startedAt:  startedAt,
		channels:   channels,
		snapshots:  cfg.Snapshots,
		broadcast:  make(chan update, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]bool),
	}
}

// Run subscribes to every bridged channel and routes updates to clients
// until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for _, ch := range h.channels {
		go h.relay(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				c.close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: dashboard client connected", slog.String("client_id", c.id), slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if h.clients[c] {
				delete(h.clients, c)
				c.close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: dashboard client disconnected", slog.String("client_id", c.id), slog.Int("clients", n))

		case u := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(u.channel) && !c.offer(u.data) {
					// The next update carries the full state again.
					h.logger.Warn("ws: dropping dashboard update for slow client",
						slog.String("client_id", c.id),
						slog.String("channel", u.channel),
					)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// relay forwards one bus channel into the broadcast loop. Publishers already
// send complete frames, so the data is passed through untouched.
func (h *Hub) relay(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: subscribe to dashboard channel",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: dashboard channel closed", slog.String("channel", channel))
				return
			}
			select {
			case h.broadcast <- update{channel: channel, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// bridged reports whether channel is one the hub relays.
func (h *Hub) bridged(channel string) bool {
	return slices.Contains(h.channels, channel)
}

// HandleWS upgrades the request and subscribes the new client to every
// bridged channel. The client first receives a status frame and the current
// state of each channel, so it renders without waiting for the next poll.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn)
	c.push("status", statusPayload{
		Mode:          h.mode,
		ClientID:      c.id,
		Channels:      h.channels,
		UptimeSeconds: max(int64(time.Since(h.startedAt).Seconds()), 0),
	})
	c.subscribe(h.channels)

	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// client is one browser connection.
type client struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	sendMu sync.Mutex
	closed bool

	mu   sync.RWMutex
	subs map[string]bool
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	return &client{
		id:   uuid.NewString(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}
}

// offer queues data without blocking and reports whether it was queued.
// Both the hub and the client's read loop queue frames, so sends are guarded
// against the hub closing the queue.
func (c *client) offer(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close closes the send queue, which makes writePump say goodbye and exit.
func (c *client) close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// push marshals a frame and queues it.
func (c *client) push(typ string, payload any) {
	data, err := json.Marshal(frame{Type: typ, Payload: payload})
	if err != nil {
		c.hub.logger.Error("ws: marshal frame", slog.String("type", typ), slog.String("error", err.Error()))
		return
	}
	c.offer(data)
}

func (c *client) pushError(format string, args ...any) {
	c.push("error", map[string]string{"error": fmt.Sprintf(format, args...)})
}

// subscribe adds channels and pushes the current state of each newly added
// one.
func (c *client) subscribe(channels []string) {
	for _, ch := range channels {
		c.mu.Lock()
		added := !c.subs[ch]
		c.subs[ch] = true
		c.mu.Unlock()
		if added {
			c.pushSnapshot(ch)
		}
	}
}

func (c *client) unsubscribe(channels []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range channels {
		delete(c.subs, ch)
	}
}

func (c *client) pushSnapshot(channel string) {
	if fn := c.hub.snapshots[channel]; fn != nil {
		c.push(channel, fn())
	}
}

func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subs[channel]
}

// handle applies one client request. Unknown actions and channels are
// answered with an error frame and otherwise ignored.
func (c *client) handle(req request) {
	channels := req.Channels
	if len(channels) == 0 && req.Action != actionUnsubscribe {
		channels = c.hub.channels
	}
	for _, ch := range channels {
		if !c.hub.bridged(ch) {
			c.pushError("unknown channel %q (available: %s)", ch, strings.Join(c.hub.channels, ", "))
			return
		}
	}

	switch req.Action {
	case actionSubscribe:
		c.subscribe(channels)
	case actionUnsubscribe:
		c.unsubscribe(channels)
	case actionSnapshot:
		for _, ch := range channels {
			c.pushSnapshot(ch)
		}
	default:
		c.pushError("unknown action %q", req.Action)
	}
}

// readPump handles client requests until the connection fails, then
// unregisters the client.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close",
					slog.String("client_id", c.id),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var req request
		if err := json.Unmarshal(message, &req); err != nil {
			c.pushError("malformed request: %v", err)
			continue
		}
		c.handle(req)
	}
}

// writePump writes queued frames as text messages and pings to keep the
// connection alive.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
