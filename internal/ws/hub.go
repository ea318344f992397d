// Package ws manages the WebSocket clients the overlay and any other UI
// surfaces connect through, and fans transcript results out to them.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Upgrader for /ws. The engine only listens on loopback, so any origin the
// local webview presents is acceptable.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
)

// StartHandler receives the flat config overrides carried by a start frame.
type StartHandler func(config map[string]interface{}) error

// StopHandler tears the pipeline down.
type StopHandler func() error

type client struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return c.conn.WriteJSON(v)
}

// Hub tracks connected clients and owns the broadcast loop.
type Hub struct {
	log *logrus.Entry

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client

	broadcast chan Message
	done      chan struct{}
	closeOnce sync.Once

	onStart StartHandler
	onStop  StopHandler
}

// NewHub builds a hub and starts its broadcast loop.
func NewHub(log *logrus.Entry) *Hub {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := &Hub{
		log:       log,
		clients:   make(map[*websocket.Conn]*client),
		broadcast: make(chan Message, 100),
		done:      make(chan struct{}),
	}
	go h.run()
	return h
}

// OnStart registers the handler invoked for start frames.
func (h *Hub) OnStart(fn StartHandler) { h.onStart = fn }

// OnStop registers the handler invoked for stop frames.
func (h *Hub) OnStop(fn StopHandler) { h.onStop = fn }

func (h *Hub) run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, c := range h.clients {
				go func(c *client, msg Message) {
					if err := c.writeJSON(msg); err != nil {
						h.log.WithField("client", c.id).Debugf("write failed: %v", err)
						h.Remove(c.conn)
					}
				}(c, msg)
			}
			h.mu.RUnlock()

		case <-ticker.C:
			h.mu.RLock()
			for _, c := range h.clients {
				go func(c *client) {
					c.writeMu.Lock()
					err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline))
					c.writeMu.Unlock()
					if err != nil {
						h.log.WithField("client", c.id).Debugf("ping failed: %v", err)
						h.Remove(c.conn)
					}
				}(c)
			}
			h.mu.RUnlock()

		case <-h.done:
			return
		}
	}
}

// Add registers a connection and greets it with a status frame.
func (h *Hub) Add(conn *websocket.Conn) string {
	c := &client{id: uuid.NewString(), conn: conn}

	h.mu.Lock()
	h.clients[conn] = c
	count := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{"client": c.id, "total": count}).Info("client connected")

	if err := c.writeJSON(Message{Type: TypeStatus, Status: "connected"}); err != nil {
		h.log.WithField("client", c.id).Debugf("greeting failed: %v", err)
	}
	return c.id
}

// Remove drops a connection and closes it.
func (h *Hub) Remove(conn *websocket.Conn) {
	h.mu.Lock()
	c, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		conn.Close()
		h.log.WithFields(logrus.Fields{"client": c.id, "total": count}).Info("client removed")
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues a message for every connected client. Messages are
// dropped when the queue is full rather than stalling the pipeline.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.WithField("type", msg.Type).Warn("broadcast queue full, dropping message")
	}
}

// BroadcastTranscript pushes a partial or final transcript line.
func (h *Hub) BroadcastTranscript(text, translation string, final bool) {
	typ := TypePartial
	if final {
		typ = TypeFinal
	}
	h.Broadcast(Message{
		Type:        typ,
		Text:        text,
		Translation: translation,
		IsFinal:     final,
		Timestamp:   float64(time.Now().UnixNano()) / 1e9,
	})
}

// BroadcastError pushes an error description to all clients.
func (h *Hub) BroadcastError(message string) {
	h.Broadcast(Message{Type: TypeError, Message: message})
}

// BroadcastLog implements logging.Broadcaster.
func (h *Hub) BroadcastLog(level, message string) {
	h.Broadcast(Message{Type: TypeLog, Level: level, Message: message})
}

// HandleMessage dispatches one inbound frame. Responses go only to the
// sending client.
func (h *Hub) HandleMessage(conn *websocket.Conn, raw []byte) {
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.log.Warn("received invalid JSON from client")
		c.writeJSON(Message{Type: TypeError, Message: "invalid JSON"})
		return
	}

	switch msg.Type {
	case TypeStart:
		h.log.WithField("config", msg.Config).Info("received start command")
		if h.onStart != nil {
			if err := h.onStart(msg.Config); err != nil {
				c.writeJSON(Message{Type: TypeError, Message: err.Error()})
				return
			}
		}
		c.writeJSON(Message{Type: TypeStatus, Status: "started"})

	case TypeStop:
		h.log.Info("received stop command")
		if h.onStop != nil {
			if err := h.onStop(); err != nil {
				c.writeJSON(Message{Type: TypeError, Message: err.Error()})
				return
			}
		}
		c.writeJSON(Message{Type: TypeStatus, Status: "stopped"})

	default:
		h.log.WithField("type", msg.Type).Warn("unknown message type")
		c.writeJSON(Message{Type: TypeError, Message: "unknown type: " + msg.Type})
	}
}

// Shutdown closes every client connection and stops the broadcast loop.
func (h *Hub) Shutdown() {
	h.closeOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	h.log.Info("websocket hub stopped")
}
