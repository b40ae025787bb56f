package display

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricslide/internal/shared"
	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
)

//go:embed page.html
var page []byte

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// client is one connected browser. Frames are queued on send and written by
// the client's own goroutine.
type client struct {
	conn *websocket.Conn
	send chan string
}

// Hub is a [Display] backed by websocket clients. Register it as an
// [http.Handler] for the display path and serve [Hub.Page] alongside it.
//
// The most recent frame is replayed to clients that connect late.
type Hub struct {
	mu        sync.Mutex
	clients   map[*client]struct{}
	open      bool
	last      string
	connected chan struct{}
	upgrader  websocket.Upgrader
	logger    *log.Logger
}

// NewHub creates a closed Hub.
func NewHub(logger *log.Logger) *Hub {
	return &Hub{
		clients:   make(map[*client]struct{}),
		connected: make(chan struct{}, 1),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// Open marks the display open and waits until at least one browser is
// connected or ctx ends, which yields ErrDisplayUnavailable.
func (h *Hub) Open(ctx context.Context) error {
	h.mu.Lock()
	h.open = true
	ready := len(h.clients) > 0
	h.mu.Unlock()

	if ready {
		return nil
	}

	select {
	case <-h.connected:
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		h.open = false
		h.mu.Unlock()
		return fmt.Errorf("%w: no display connected: %v", shared.ErrDisplayUnavailable, ctx.Err())
	}
}

// IsOpen reports whether frames are being delivered.
func (h *Hub) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// Clients returns the number of connected browsers.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Write queues html for every client. Slow clients drop frames rather than
// block the presenter; a closed hub drops everything.
func (h *Hub) Write(html string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.open {
		return nil
	}
	h.last = html
	for c := range h.clients {
		select {
		case c.send <- html:
		default:
			h.debug("display client lagging, frame dropped")
		}
	}
	return nil
}

// Close disconnects every client and stops delivery. Closing twice is harmless.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.open = false
	var err error
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		err = multierr.Append(err, c.conn.Close())
	}
	return err
}

func (h *Hub) debug(msg string, kv ...any) {
	if h.logger != nil {
		h.logger.Debug(msg, kv...)
	}
}

// Page serves the browser page that renders received frames.
func (h *Hub) Page(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// ServeHTTP upgrades the request to a websocket and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.debug("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan string, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.last != "" && h.open {
		c.send <- h.last
	}
	h.mu.Unlock()

	select {
	case h.connected <- struct{}{}:
	default:
	}
	h.debug("display connected", "remote", r.RemoteAddr)

	go h.writePump(c)
	h.readPump(c)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		c.conn.Close()
	}
}

// readPump discards incoming messages and notices disconnects.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
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
