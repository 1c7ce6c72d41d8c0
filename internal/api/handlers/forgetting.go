package handlers

import (
	"net/http"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type ForgettingHandler struct {
	svc      *service.ForgettingService
	memories domain.MemoryRecordStore
}

func NewForgettingHandler(svc *service.ForgettingService, memories domain.MemoryRecordStore) *ForgettingHandler {
	return &ForgettingHandler{svc: svc, memories: memories}
}

// Run triggers a forgetting cycle synchronously and returns its report.
// Returns 409 when a cycle is already in flight.
func (h *ForgettingHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RunCycle(r.Context())
	if err != nil {
		writeServiceError(w, err, "forgetting cycle failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *ForgettingHandler) RestoreMemory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.svc.RestoreMemory(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to restore memory")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *ForgettingHandler) RestoreBelief(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	if err := h.svc.RestoreBelief(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to restore belief")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (h *ForgettingHandler) GetMemory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	memory, err := h.memories.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get memory")
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

// RecordAccess bumps a memory's access metadata, feeding the frequency
// factor of relevance scoring.
func (h *ForgettingHandler) RecordAccess(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.memories.RecordAccess(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to record access")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recorded"})
}
