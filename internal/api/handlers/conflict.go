package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ConflictHandler struct {
	svc       *service.BeliefService
	conflicts domain.ConflictStore
}

func NewConflictHandler(svc *service.BeliefService, conflicts domain.ConflictStore) *ConflictHandler {
	return &ConflictHandler{svc: svc, conflicts: conflicts}
}

func (h *ConflictHandler) ListUnresolved(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	conflicts, err := h.conflicts.GetUnresolved(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err, "failed to list conflicts")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts, "count": len(conflicts)})
}

func (h *ConflictHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	conflict, err := h.conflicts.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get conflict")
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}

type resolveConflictRequest struct {
	WinnerBeliefID string `json:"winner_belief_id"`
}

func (h *ConflictHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid conflict id")
		return
	}

	var req resolveConflictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	winnerID, err := uuid.Parse(req.WinnerBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid winner_belief_id")
		return
	}

	conflict, err := h.svc.ResolveManually(r.Context(), id, winnerID)
	if err != nil {
		writeServiceError(w, err, "failed to resolve conflict")
		return
	}
	writeJSON(w, http.StatusOK, conflict)
}
