// Package wsbridge shares a prop with WebSocket clients.
//
// Every client receives the prop's current cell on connect and every later
// cell as a JSON Frame. Text frames sent by a client are decoded as JSON and
// stored with Next, so all clients, the sender included, see the change.
package wsbridge

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	properrors "github.com/vango-dev/prop/internal/errors"
	"github.com/vango-dev/prop/pkg/prop"
)

// Frame is the JSON message exchanged with clients.
type Frame struct {
	Value   any    `json:"value"`
	Error   string `json:"error,omitempty"`
	Pending bool   `json:"pending,omitempty"`
}

// ErrHubClosed is returned to connecting clients once the prop has ended.
var ErrHubClosed = errors.New("wsbridge: hub closed")

// Default settings.
const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultReadLimit    = 64 * 1024
	DefaultSendBuffer   = 16
)

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithCheckOrigin sets the origin check of the upgrader. The default rejects
// cross-origin requests.
func WithCheckOrigin(check func(*http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

// WithWriteTimeout bounds every frame write.
func WithWriteTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.writeTimeout = d
	}
}

// WithReadLimit caps the size of inbound messages in bytes.
func WithReadLimit(n int64) Option {
	return func(h *Hub) {
		h.readLimit = n
	}
}

// WithSendBuffer sets how many frames may queue per client. A client that
// falls further behind is disconnected.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		h.sendBuffer = n
	}
}

// WithReadOnly makes the hub ignore inbound frames.
func WithReadOnly(readOnly bool) Option {
	return func(h *Hub) {
		h.readOnly = readOnly
	}
}

// Hub is an http.Handler bridging one prop to any number of clients.
type Hub struct {
	p            *prop.Prop[any]
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	writeTimeout time.Duration
	readLimit    int64
	sendBuffer   int
	readOnly     bool

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
}

var _ http.Handler = (*Hub)(nil)

// NewHub creates a hub for p. Ending p disconnects every client and makes
// the hub refuse new ones.
func NewHub(p *prop.Prop[any], opts ...Option) *Hub {
	h := &Hub{
		p:            p,
		writeTimeout: DefaultWriteTimeout,
		readLimit:    DefaultReadLimit,
		sendBuffer:   DefaultSendBuffer,
		clients:      make(map[string]*client),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	p.OnEnd(h.shutdown)
	return h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and serves the client until either side
// closes the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		http.Error(w, ErrHubClosed.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", properrors.New("E040").Wrap(err))
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan Frame, h.sendBuffer),
		done: make(chan struct{}),
	}
	if !h.register(c) {
		c.closeWith(websocket.CloseGoingAway)
		c.writeLoop(h.writeTimeout)
		return
	}
	h.logger.Debug("websocket client connected", "client", c.id, "prop", h.p.ID(), "remote", r.RemoteAddr)

	sub := h.p.Subscribe(func(cell prop.Cell[any]) {
		h.push(c, frameOf(cell))
	}, prop.NotifyImmediately(false))
	h.push(c, frameOf(h.p.Last()))

	go c.writeLoop(h.writeTimeout)
	h.readLoop(c)

	sub.Cancel()
	h.unregister(c)
	c.close()
	h.logger.Debug("websocket client disconnected", "client", c.id, "prop", h.p.ID())
}

func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c.id)
}

// push queues f for c, disconnecting c when its buffer is full.
func (h *Hub) push(c *client, f Frame) {
	select {
	case <-c.done:
	case c.send <- f:
	default:
		h.logger.Warn("websocket client too slow, disconnecting", "client", c.id, "buffer", h.sendBuffer)
		c.close()
	}
}

// readLoop feeds inbound frames to the prop until the connection fails.
func (h *Hub) readLoop(c *client) {
	c.conn.SetReadLimit(h.readLimit)
	for {
		kind, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		if h.readOnly || kind != websocket.TextMessage {
			continue
		}

		var v any
		if err := json.Unmarshal(msg, &v); err != nil {
			perr := properrors.New("E041").Wrap(err)
			h.logger.Warn("invalid inbound frame", "client", c.id, "error", perr)
			h.push(c, Frame{Error: perr.Error()})
			continue
		}
		h.p.Next(v)
	}
}

// shutdown disconnects every client. Runs when the prop ends.
func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway)
	}
	h.logger.Debug("websocket hub closed", "prop", h.p.ID(), "clients", len(clients))
}

func frameOf(c prop.Cell[any]) Frame {
	f := Frame{Value: c.Value()}
	if err := c.Err(); err != nil {
		if !c.HasValue() && errors.Is(err, prop.ErrPending) {
			f.Pending = true
		} else {
			f.Error = err.Error()
		}
	}
	return f
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan Frame
	done chan struct{}
	once sync.Once

	// code is the close code sent to the peer. Written once before done is
	// closed.
	code int
}

func (c *client) close() {
	c.closeWith(websocket.CloseNormalClosure)
}

func (c *client) closeWith(code int) {
	c.once.Do(func() {
		c.code = code
		close(c.done)
	})
}

// writeLoop writes queued frames until the client is closed, then flushes
// what is left, sends a close message and closes the connection.
func (c *client) writeLoop(timeout time.Duration) {
	defer c.conn.Close()
	for {
		select {
		case f := <-c.send:
			if err := c.write(f, timeout); err != nil {
				c.close()
				return
			}
		case <-c.done:
			for {
				select {
				case f := <-c.send:
					if err := c.write(f, timeout); err != nil {
						return
					}
				default:
					_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
					_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.code, ""))
					return
				}
			}
		}
	}
}

func (c *client) write(f Frame, timeout time.Duration) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	return c.conn.WriteJSON(f)
}
