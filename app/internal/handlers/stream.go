package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// StreamHandler serves GET /v1/quota/stream: a websocket that receives one
// snapshot immediately on connect and a fresh one after every state change.
type StreamHandler struct {
	svc      QuotaService
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler creates a StreamHandler with injected dependencies.
func NewStreamHandler(svc QuotaService, log zerolog.Logger) *StreamHandler {
	return &StreamHandler{
		svc: svc,
		log: log.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			// The dashboard is served from a different origin than the
			// quota API; the stream carries no per-user data.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handle upgrades the connection and forwards snapshots until the client
// disconnects or falls behind.
func (h *StreamHandler) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, ch := h.svc.Subscribe()
	defer h.svc.Unsubscribe(id)

	// Drain client frames so pings and close messages are processed.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				// Dropped by the hub (buffer overflow or shutdown).
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				h.log.Debug().Err(err).Str("subscriber", id).Msg("stream write failed")
				return
			}
		case <-clientGone:
			return
		}
	}
}
