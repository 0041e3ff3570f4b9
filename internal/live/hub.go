// Package live pushes tracking updates to websocket subscribers.
package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"avl-svr/internal/dispatcher"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hub registers websocket clients and broadcasts every tracking to them.
// A client may subscribe to a single device with ?imei=.
type Hub struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "live"),
		clients: make(map[*websocket.Conn]string),
	}
}

// ServeHTTP upgrades the request and keeps the client registered until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	h.mu.Lock()
	h.clients[conn] = r.URL.Query().Get("imei")
	h.mu.Unlock()

	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, ok := h.clients[conn]
	delete(h.clients, conn)
	h.mu.Unlock()
	if ok {
		if err := conn.Close(); err != nil {
			h.logger.Debug("failed to close websocket", "err", err)
		}
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Name() string { return "live" }

func (h *Hub) Forward(_ context.Context, ev dispatcher.Event) error {
	if ev.Type != dispatcher.EventBatch {
		return nil
	}
	for _, tr := range ev.Trackings {
		msg, err := json.Marshal(tr)
		if err != nil {
			return err
		}
		h.broadcast(ev.IMEI, msg)
	}
	return nil
}

func (h *Hub) broadcast(imei string, msg []byte) {
	h.mu.Lock()
	var dead []*websocket.Conn
	for c, filter := range h.clients {
		if filter != "" && filter != imei {
			continue
		}
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
			dead = append(dead, c)
		}
	}
	h.mu.Unlock()
	for _, c := range dead {
		h.drop(c)
	}
}
