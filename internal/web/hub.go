package web

import (
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 5 * time.Second
	clientSend = 32 // queued frames per client before it is dropped
)

// Hub fans frame payloads out to websocket clients. Slow clients are
// disconnected rather than allowed to stall the decoder.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *log.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]chan []byte
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]chan []byte),
	}
}

// ServeHTTP upgrades the request and streams frames until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	send := make(chan []byte, clientSend)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[conn] = send
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "remote", r.RemoteAddr, "clients", n)

	go h.writeLoop(conn, send)

	// Clients never send anything useful; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(conn)
}

func (h *Hub) writeLoop(conn *websocket.Conn, send <-chan []byte) {
	for msg := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(conn)
			return
		}
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait))
	conn.Close()
}

// remove unregisters conn; closing its channel ends writeLoop.
func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	send, ok := h.clients[conn]
	if ok {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
	if ok {
		conn.Close()
	}
}

// Broadcast queues payload for every client.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.Lock()
	var slow []*websocket.Conn
	for conn, send := range h.clients {
		select {
		case send <- payload:
		default:
			slow = append(slow, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range slow {
		h.logger.Warn("dropping slow websocket client", "remote", conn.RemoteAddr())
		h.remove(conn)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	for conn, send := range h.clients {
		delete(h.clients, conn)
		close(send)
	}
	h.mu.Unlock()
}
