package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/jeongseonghan/ofdm-sync/internal/timing"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local monitoring
	},
}

// WSMessage represents a WebSocket message.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// RangePayload is a half-open sample range.
type RangePayload struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// FramePayload describes one detected frame.
type FramePayload struct {
	Boundary int64          `json:"boundary"`
	Start    int64          `json:"start"`
	Preamble RangePayload   `json:"preamble"`
	Payload  []RangePayload `json:"payload"`
}

// TracePayload is one decimated point of the detection metric trace.
type TracePayload struct {
	Index    int64   `json:"index"`
	Metric   float64 `json:"metric"`
	Filtered float64 `json:"filtered"`
}

// WSHub manages WebSocket connections.
type WSHub struct {
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewWSHub creates a new WebSocket hub.
func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[*websocket.Conn]bool),
	}
}

// AddClient registers a new WebSocket connection.
func (h *WSHub) AddClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = true
	log.Printf("WebSocket client connected (%d total)", len(h.clients))
}

// RemoveClient removes a WebSocket connection.
func (h *WSHub) RemoveClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
	conn.Close()
	log.Printf("WebSocket client disconnected (%d remaining)", len(h.clients))
}

// Broadcast sends a message to all connected clients.
func (h *WSHub) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("WebSocket marshal error: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn := range h.clients {
		err := conn.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			log.Printf("WebSocket write error: %v", err)
			go h.RemoveClient(conn)
		}
	}
}

// BroadcastFrame sends a detected frame to all clients.
func (h *WSHub) BroadcastFrame(f timing.Frame) {
	p := FramePayload{
		Boundary: f.Boundary,
		Start:    f.Start,
		Preamble: RangePayload{Start: f.Preamble.Start, End: f.Preamble.End},
	}
	for _, r := range f.Payload {
		p.Payload = append(p.Payload, RangePayload{Start: r.Start, End: r.End})
	}
	h.Broadcast(WSMessage{Type: "frame", Payload: p})
}

// BroadcastTrace sends a decimated metric trace point to all clients.
func (h *WSHub) BroadcastTrace(index int64, metric, filtered float64) {
	h.Broadcast(WSMessage{
		Type:    "trace",
		Payload: TracePayload{Index: index, Metric: metric, Filtered: filtered},
	})
}

// BroadcastStatus sends a status update to all clients.
func (h *WSHub) BroadcastStatus(status, message string) {
	h.Broadcast(WSMessage{
		Type: "status",
		Payload: map[string]string{
			"status":  status,
			"message": message,
		},
	})
}
