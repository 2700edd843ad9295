package app

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const wsWriteTimeout = 10 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// wsHub pushes run notifications to connected operator consoles. A dead
// connection is dropped on the first failed write, never retried.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{conns: map[*websocket.Conn]struct{}{}}
}

func (h *wsHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.conns[conn]; ok {
		delete(h.conns, conn)
		conn.Close()
	}
	h.mu.Unlock()
}

func (h *wsHub) closeAll() {
	h.mu.Lock()
	for conn := range h.conns {
		conn.Close()
		delete(h.conns, conn)
	}
	h.mu.Unlock()
}

// Broadcast implements scheduler.Notifier for connected consoles. The hub
// lock is held across the writes so concurrent broadcasts cannot interleave
// frames on one connection.
func (h *wsHub) Broadcast(_ context.Context, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
			log.Printf("ws: write failed, dropping console: %v", err)
			delete(h.conns, conn)
			conn.Close()
		}
	}
}

func (s *Server) operatorStream(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}
	s.hub.add(conn)

	// Reader loop exists only to notice the peer going away.
	go func() {
		defer s.hub.remove(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
