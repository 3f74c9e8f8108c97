// Package stream - Broadcasts live detections to websocket viewers.
package stream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

// ErrHubClosed is returned by Publish once the hub has stopped.
var ErrHubClosed = errors.New("stream hub closed")

// Upgrader accepts viewer connections from any origin.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub fans frame messages out to connected viewers.
//
// A viewer that cannot keep up is disconnected rather than slowing the pipeline.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mutex      sync.RWMutex
	logger     logrus.FieldLogger
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations and broadcasts until ctx is done, then disconnects every
// viewer.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		h.mutex.Lock()
		for c := range h.clients {
			delete(h.clients, c)
			close(c.send)
		}
		h.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.mutex.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{"viewer": c.id, "clients": total}).Info("viewer connected")

		case c := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.WithFields(logrus.Fields{"viewer": c.id, "clients": total}).Info("viewer disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					h.logger.WithField("viewer", c.id).Warn("dropping slow viewer")
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Publish encodes msg as JSON and queues it for every viewer.
func (h *Hub) Publish(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "encode frame message")
	}
	return h.Broadcast(ctx, payload)
}

// Broadcast queues a raw text message for every viewer.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) error {
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Handler upgrades viewer connections and attaches them to the hub.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.WithError(err).Warn("websocket upgrade failed")
			return
		}

		c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
		select {
		case h.register <- c:
		case <-h.done:
			conn.Close()
			return
		}

		go h.writePump(c)
		h.readPump(c)
	}
}

// readPump discards viewer input and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
	}()

	c.conn.SetReadLimit(512)
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

// writePump owns all writes to the connection and closes it when send is closed.
func (h *Hub) writePump(c *client) {
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
				h.logger.WithError(err).WithField("viewer", c.id).Debug("viewer write failed")
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
