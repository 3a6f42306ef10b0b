package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/pageforge/pageforge/internal/logging"
	"github.com/pageforge/pageforge/internal/watcher"
)

const writeTimeout = 5 * time.Second

// reloadMessage is pushed to connected clients when page documents
// change on disk.
type reloadMessage struct {
	Type  string   `json:"type"`
	Paths []string `json:"paths"`
}

// reloadHub tracks websocket clients and fans reload events out to
// them. Slow clients are dropped rather than blocking the broadcast.
type reloadHub struct {
	logger  logging.Logger
	mutex   sync.Mutex
	clients map[*websocket.Conn]chan []byte
	ctx     context.Context
}

func newReloadHub(logger logging.Logger) *reloadHub {
	return &reloadHub{
		logger:  logger.WithComponent("reload"),
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

func (h *reloadHub) run(ctx context.Context) {
	h.mutex.Lock()
	h.ctx = ctx
	h.mutex.Unlock()

	<-ctx.Done()

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn := range h.clients {
		_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
	}
	h.clients = make(map[*websocket.Conn]chan []byte)
}

func (h *reloadHub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Debug(r.Context(), "websocket accept failed", "error", err.Error())
		return
	}

	send := make(chan []byte, 16)

	h.mutex.Lock()
	h.clients[conn] = send
	ctx := h.ctx
	h.mutex.Unlock()
	if ctx == nil {
		ctx = r.Context()
	}

	go h.writePump(ctx, conn, send)

	// Reads are discarded; the socket exists only for server pushes.
	// The read loop surfaces client disconnects.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()
}

func (h *reloadHub) writePump(ctx context.Context, conn *websocket.Conn, send chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.drop(conn)
				return
			}
		}
	}
}

func (h *reloadHub) drop(conn *websocket.Conn) {
	h.mutex.Lock()
	send, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
	}
	h.mutex.Unlock()

	if ok {
		close(send)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}
}

// broadcastReload queues a reload message for every connected client.
func (h *reloadHub) broadcastReload(events []watcher.ChangeEvent) {
	paths := make([]string, 0, len(events))
	for _, event := range events {
		paths = append(paths, event.Path)
	}

	msg, err := json.Marshal(reloadMessage{Type: "reload", Paths: paths})
	if err != nil {
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, send := range h.clients {
		select {
		case send <- msg:
		default:
			h.logger.Debug(context.Background(), "dropping slow reload client")
			delete(h.clients, conn)
			close(send)
			go func(c *websocket.Conn) {
				_ = c.Close(websocket.StatusPolicyViolation, "write buffer full")
			}(conn)
		}
	}
}

// clientCount reports the number of connected reload clients.
func (h *reloadHub) clientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}
