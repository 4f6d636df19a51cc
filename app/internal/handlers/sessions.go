package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// SessionHandler serves the session lifecycle endpoints feeding the presence
// table.
type SessionHandler struct {
	svc QuotaService
	log zerolog.Logger
}

// NewSessionHandler creates a SessionHandler with injected dependencies.
func NewSessionHandler(svc QuotaService, log zerolog.Logger) *SessionHandler {
	return &SessionHandler{svc: svc, log: log.With().Str("component", "handlers").Logger()}
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type touchRequest struct {
	SessionID  string `json:"session_id"`
	IsDeleting bool   `json:"is_deleting"`
}

// HandleRegister serves POST /v1/sessions/register.
func (h *SessionHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSession(w, r)
	if !ok {
		return
	}
	h.svc.RegisterSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleUnregister serves POST /v1/sessions/unregister. Also releases any
// reservation the session still holds.
func (h *SessionHandler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.decodeSession(w, r)
	if !ok {
		return
	}
	h.svc.UnregisterSession(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleTouch serves POST /v1/sessions/touch.
func (h *SessionHandler) HandleTouch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req touchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	h.svc.TouchActivity(req.SessionID, req.IsDeleting)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) decodeSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return "", false
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return "", false
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return "", false
	}
	return req.SessionID, true
}
