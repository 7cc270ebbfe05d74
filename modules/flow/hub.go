package flow

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The gateway in front of this service enforces origins.
		return true
	},
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub - pushes wizard state to every socket watching a session
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]map[*wsClient]bool
}

func NewHub() *Hub {
	return &Hub{sessions: make(map[string]map[*wsClient]bool)}
}

// Broadcast - push the current state to a session's watchers
func (h *Hub) Broadcast(sessionID string, state State) {
	payload, err := json.Marshal(map[string]interface{}{
		"type":  "flow_state",
		"state": state,
	})
	if err != nil {
		log.Printf("❌ [Flow] Failed to encode state push: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.sessions[sessionID] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; it will be dropped by its write pump.
		}
	}
}

// HandleWS - upgrade and register a watcher for a session
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request, sessionID string, initial State) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("❌ [Flow] WebSocket upgrade failed: %v", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 16)}
	h.mu.Lock()
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*wsClient]bool)
	}
	h.sessions[sessionID][client] = true
	watchers := len(h.sessions[sessionID])
	h.mu.Unlock()

	log.Printf("👤 [Flow] Watcher joined session %s (watchers: %d)", sessionID, watchers)

	go client.writePump()
	go h.readPump(sessionID, client)

	h.Broadcast(sessionID, initial)
}

func (h *Hub) readPump(sessionID string, client *wsClient) {
	defer h.remove(sessionID, client)

	client.conn.SetReadLimit(maxMessageSize)
	client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		client.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		// Inbound messages are ignored; the socket is push-only.
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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

func (h *Hub) remove(sessionID string, client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if watchers, ok := h.sessions[sessionID]; ok {
		if _, ok := watchers[client]; ok {
			delete(watchers, client)
			close(client.send)
		}
		if len(watchers) == 0 {
			delete(h.sessions, sessionID)
			log.Printf("🧹 [Flow] Session %s has no watchers left", sessionID)
		}
	}
}
