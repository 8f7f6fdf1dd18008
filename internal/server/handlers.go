package server

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jeongseonghan/ofdm-sync/internal/timing"
)

// Status is a snapshot of the running synchronizer, reported by the feed
// loop that owns it.
type Status struct {
	Source       string `json:"source"`
	Samples      int64  `json:"samples"`
	Frames       int64  `json:"frames"`
	LastBoundary int64  `json:"lastBoundary"`
}

// StatusFunc returns the current status snapshot.
type StatusFunc func() Status

// Handlers holds the HTTP and WebSocket handlers.
type Handlers struct {
	hub    *WSHub
	cfg    timing.Config
	status StatusFunc
}

// NewHandlers creates the handler set.
func NewHandlers(hub *WSHub, cfg timing.Config, status StatusFunc) *Handlers {
	return &Handlers{hub: hub, cfg: cfg, status: status}
}

// Hub returns the WebSocket hub for broadcasting.
func (h *Handlers) Hub() *WSHub {
	return h.hub
}

// HandleStatus reports the current feed status.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.status())
}

// HandleConfig reports the synchronizer configuration.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"k":           h.cfg.K,
		"cp":          h.cfg.CP,
		"l":           h.cfg.L,
		"n":           h.cfg.N,
		"threshold":   h.cfg.Threshold,
		"framePeriod": h.cfg.FramePeriod(),
	})
}

// HandleWebSocket upgrades the connection and registers it with the hub.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	h.hub.AddClient(conn)

	// Drain client messages until the connection drops.
	go func() {
		defer h.hub.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("JSON encode error: %v", err)
	}
}
