// Package relay implements a WebSocket broadcast hub. The agent pushes
// display events into the hub and every connected client receives them;
// messages from clients are handed to an inbound handler (the bridge wires
// this to the agent's stdin).
package relay

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single write to a client.
	writeWait = 10 * time.Second
	// pongWait is how long a client may stay silent before it is dropped.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// sendQueueSize bounds the per-client outbound queue. A client that
	// cannot drain this many messages is considered slow and dropped.
	sendQueueSize = 64
	// broadcastQueueSize bounds the hub's inbound broadcast queue.
	broadcastQueueSize = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast messages out to every connected WebSocket client.
type Hub struct {
	clients    map[*client]bool
	clientN    atomic.Int64
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}

	// onInbound receives messages sent by clients. Nil means inbound
	// messages are discarded.
	onInbound func([]byte)
	trace     func(string)
}

// Option configures a Hub.
type Option func(*Hub)

// WithInbound sets the handler for messages received from clients.
func WithInbound(fn func([]byte)) Option {
	return func(h *Hub) { h.onInbound = fn }
}

// WithTrace sets a diagnostic trace function.
func WithTrace(fn func(string)) Option {
	return func(h *Hub) { h.trace = fn }
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, broadcastQueueSize),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) tracef(format string, args ...interface{}) {
	if h.trace != nil {
		h.trace(fmt.Sprintf(format, args...))
	}
}

// Run owns the client set. It returns when ctx is cancelled, closing every
// client connection.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.clientN.Store(int64(len(h.clients)))
			h.tracef("client connected: %s, total clients: %d", c.conn.RemoteAddr(), len(h.clients))
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.clientN.Store(int64(len(h.clients)))
				close(c.send)
				h.tracef("client disconnected: %s, total clients: %d", c.conn.RemoteAddr(), len(h.clients))
			}
		case msg := <-h.broadcast:
			if len(h.clients) == 0 {
				h.tracef("no clients connected, dropping broadcast")
				continue
			}
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// Slow client: drop it rather than stall the hub.
					delete(h.clients, c)
					h.clientN.Store(int64(len(h.clients)))
					close(c.send)
					h.tracef("client too slow, dropped: %s", c.conn.RemoteAddr())
				}
			}
		case <-ctx.Done():
			// Signal ServeWS and the pumps first so no goroutine is left
			// sending to a channel nobody reads anymore.
			close(h.done)
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientN.Store(0)
			return
		}
	}
}

// ClientCount reports the number of currently connected clients.
func (h *Hub) ClientCount() int {
	return int(h.clientN.Load())
}

// Broadcast queues a message for delivery to all connected clients. It never
// blocks; if the hub's queue is full the message is dropped.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.tracef("broadcast queue full, message dropped")
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and registers
// it with the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "websocket upgrade error: %v\n", err)
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, sendQueueSize)}
	select {
	case h.register <- c:
	case <-h.done:
		// Hub already stopped; refuse the connection instead of blocking.
		conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if c.hub.onInbound != nil {
			c.hub.onInbound(msg)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
