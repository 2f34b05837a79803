// Package ws broadcasts live per-frame verdicts to websocket clients, the
// service analog of the original on-screen overlay.
package ws

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// FrameStatus is one frame's verdict pushed to subscribers.
type FrameStatus struct {
	FrameIndex     int    `json:"frame_index"`
	Detections     int    `json:"detections"`
	CollisionPairs int    `json:"collision_pairs"`
	Status         string `json:"status"`
	Timestamp      int64  `json:"timestamp"`
}

type client struct {
	conn *websocket.Conn
	send chan interface{}
}

// Hub fans frame statuses out to connected clients. Slow clients drop
// messages instead of stalling the frame loop.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader

	// OnClientChange is called with the connection count after every
	// connect/disconnect. Optional; used to feed the metrics gauge.
	OnClientChange func(count int)
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// BroadcastStatus pushes one frame status to every client.
func (h *Hub) BroadcastStatus(s FrameStatus) {
	s.Timestamp = time.Now().Unix()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- s:
		default:
			// Slow consumer; drop the frame for this client.
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades the request and serves the client until it disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan interface{}, 256),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.notifyChange(count)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) notifyChange(count int) {
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.notifyChange(count)
	c.conn.Close()
}

func (h *Hub) readPump(c *client) {
	defer h.remove(c)

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		c.conn.Close()
		delete(h.clients, c)
	}
}

// Serve runs the hub on its own listener until the server errors.
func (h *Hub) Serve(port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", h.HandleWS)
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%s", port),
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return srv.ListenAndServe()
}
