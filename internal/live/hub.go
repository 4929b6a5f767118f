// Package live pushes attendance events to open dashboard tabs over
// websockets. Connections subscribe to one topic, the operator id.
package live

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32
)

// Message is one pushed event.
type Message struct {
	Action string `json:"action"`
	Data   any    `json:"data,omitempty"`
}

type connection struct {
	conn  *websocket.Conn
	send  chan []byte
	topic string
}

type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]map[*connection]struct{}
}

// NewHub returns a hub. A nil checkOrigin only admits same-origin pages.
func NewHub(checkOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		logger:   slog.With("component", "live"),
		conns:    make(map[string]map[*connection]struct{}),
	}
}

// Serve upgrades the request and subscribes it to topic until the peer
// goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, topic string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &connection{conn: ws, send: make(chan []byte, sendBuffer), topic: topic}
	h.register(c)

	go c.writePump()
	go h.readPump(c)
	return nil
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[c.topic] == nil {
		h.conns[c.topic] = make(map[*connection]struct{})
	}
	h.conns[c.topic][c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.conns[c.topic]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.conns, c.topic)
	}
	close(c.send)
}

// Subscribers reports the number of open connections on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[topic])
}

// Publish sends msg to every connection on topic. Slow peers drop messages
// instead of blocking the publisher.
func (h *Hub) Publish(topic string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Error marshalling live message", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.conns[topic] {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("Dropping live message", "topic", topic, "remote", c.conn.RemoteAddr())
		}
	}
}

// Close disconnects everybody on topic, e.g. after logout.
func (h *Hub) Close(topic string) {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.conns[topic]))
	for c := range h.conns[topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		_ = c.conn.Close()
	}
}

// readPump only services control frames; clients never send data.
func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
