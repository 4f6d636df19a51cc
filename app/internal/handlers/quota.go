package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/commentsweep/quota-server/app/domain/entities"
)

// QuotaService is the slice of the admission controller the handlers need.
type QuotaService interface {
	Status() entities.Snapshot
	Reserve(sessionID string, totalPlanned int64) entities.ReserveResult
	Confirm(sessionID string, actualUsed int64) (entities.ConfirmResult, error)
	Release(sessionID string)
	RegisterSession(sessionID string)
	UnregisterSession(sessionID string)
	TouchActivity(sessionID string, isDeleting bool)
	Allowance(sessionID string) int
	EstimateCost(kind entities.OperationKind, itemCount int64) (int64, error)
	Subscribe() (string, <-chan entities.Snapshot)
	Unsubscribe(id string)
}

// QuotaHandler serves the reservation protocol endpoints.
type QuotaHandler struct {
	svc QuotaService
	log zerolog.Logger
}

// NewQuotaHandler creates a QuotaHandler with injected dependencies.
func NewQuotaHandler(svc QuotaService, log zerolog.Logger) *QuotaHandler {
	return &QuotaHandler{svc: svc, log: log.With().Str("component", "handlers").Logger()}
}

type reserveRequest struct {
	SessionID    string `json:"session_id"`
	TotalPlanned int64  `json:"total_planned"`
}

type confirmRequest struct {
	SessionID  string `json:"session_id"`
	ActualUsed int64  `json:"actual_used"`
}

type releaseRequest struct {
	SessionID string `json:"session_id"`
}

// HandleStatus serves GET /v1/quota/status.
func (h *QuotaHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.log, h.svc.Status())
}

// HandleReserve serves POST /v1/quota/reserve. Exhaustion is not an HTTP
// error: the result carries success=false plus a message and snapshot so the
// client can decide whether to wait for the reset or abort.
func (h *QuotaHandler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.log, h.svc.Reserve(req.SessionID, req.TotalPlanned))
}

// HandleConfirm serves POST /v1/quota/confirm. Confirming without a prior
// reservation is a protocol violation and is rejected with 409.
func (h *QuotaHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	result, err := h.svc.Confirm(req.SessionID, req.ActualUsed)
	if err != nil {
		if errors.Is(err, entities.ErrNoReservation) {
			http.Error(w, "No active reservation for session", http.StatusConflict)
			return
		}
		h.log.Error().Err(err).Str("session", req.SessionID).Msg("confirm failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, result)
}

// HandleRelease serves POST /v1/quota/release. Idempotent.
func (h *QuotaHandler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	h.svc.Release(req.SessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleEstimate serves GET /v1/quota/estimate?kind=delete&count=120.
func (h *QuotaHandler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kind := entities.OperationKind(r.URL.Query().Get("kind"))
	count, err := strconv.ParseInt(r.URL.Query().Get("count"), 10, 64)
	if err != nil || count < 0 {
		http.Error(w, "count must be a non-negative integer", http.StatusBadRequest)
		return
	}

	units, err := h.svc.EstimateCost(kind, count)
	if err != nil {
		if errors.Is(err, entities.ErrUnknownOperation) {
			http.Error(w, "Unknown operation kind", http.StatusBadRequest)
			return
		}
		h.log.Error().Err(err).Msg("estimate failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.log, map[string]any{
		"kind":       kind,
		"item_count": count,
		"units":      units,
	})
}

// HandleAllowance serves GET /v1/quota/allowance?session_id=abc.
func (h *QuotaHandler) HandleAllowance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.log, map[string]any{
		"session_id":   sessionID,
		"max_parallel": h.svc.Allowance(sessionID),
	})
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}
