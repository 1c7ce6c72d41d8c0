package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type BeliefHandler struct {
	svc      *service.BeliefService
	beliefs  domain.BeliefStore
	memories domain.MemoryRecordStore
}

func NewBeliefHandler(svc *service.BeliefService, beliefs domain.BeliefStore, memories domain.MemoryRecordStore) *BeliefHandler {
	return &BeliefHandler{svc: svc, beliefs: beliefs, memories: memories}
}

type ingestRequest struct {
	AgentID    string  `json:"agent_id"`
	Content    string  `json:"content"`
	Category   string  `json:"category,omitempty"`
	Importance float64 `json:"importance,omitempty"`
	Pinned     bool    `json:"pinned,omitempty"`
}

type ingestResponse struct {
	MemoryID uuid.UUID                `json:"memory_id"`
	Outcomes []service.AnalyzeOutcome `json:"outcomes"`
}

// Ingest stores the raw content as a memory record, then feeds it through
// the belief engine with the new memory as evidence.
func (h *BeliefHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}
	if req.Category != "" && !domain.ValidBeliefCategory(req.Category) {
		writeError(w, http.StatusBadRequest, "invalid category")
		return
	}

	memory := &domain.MemoryRecord{
		AgentID:    req.AgentID,
		Content:    req.Content,
		Category:   domain.BeliefCategory(req.Category),
		Importance: req.Importance,
		Pinned:     req.Pinned,
	}
	if err := h.memories.Create(r.Context(), memory); err != nil {
		writeServiceError(w, err, "failed to store memory")
		return
	}

	outcomes, err := h.svc.Analyze(r.Context(), req.AgentID, req.Content, domain.BeliefCategory(req.Category), &memory.ID)
	if err != nil {
		writeServiceError(w, err, "failed to analyze content")
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{MemoryID: memory.ID, Outcomes: outcomes})
}

func (h *BeliefHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	includeInactive := r.URL.Query().Get("include_inactive") == "true"

	var (
		beliefs []domain.Belief
		err     error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		if !domain.ValidBeliefCategory(category) {
			writeError(w, http.StatusBadRequest, "invalid category")
			return
		}
		beliefs, err = h.beliefs.GetByCategory(r.Context(), agentID, domain.BeliefCategory(category), includeInactive)
	} else {
		beliefs, err = h.beliefs.GetByAgent(r.Context(), agentID, includeInactive)
	}
	if err != nil {
		writeServiceError(w, err, "failed to list beliefs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"beliefs": beliefs, "count": len(beliefs)})
}

func (h *BeliefHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	belief, err := h.beliefs.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get belief")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

type updateConfidenceRequest struct {
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

func (h *BeliefHandler) UpdateConfidence(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req updateConfidenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	belief, err := h.svc.UpdateConfidence(r.Context(), id, req.Confidence, req.Reason)
	if err != nil {
		writeServiceError(w, err, "failed to update confidence")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

type deactivateRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *BeliefHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req deactivateRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	belief, err := h.svc.Deactivate(r.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(w, err, "failed to deactivate belief")
		return
	}
	writeJSON(w, http.StatusOK, belief)
}

func (h *BeliefHandler) Related(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	related, err := h.svc.FindRelated(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err, "failed to find related beliefs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"related": related, "count": len(related)})
}

func (h *BeliefHandler) Search(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	query := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.svc.Search(r.Context(), agentID, query, limit)
	if err != nil {
		writeServiceError(w, err, "failed to search beliefs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

type statsResponse struct {
	*domain.BeliefStats
	Engine *service.EngineStats `json:"engine"`
}

func (h *BeliefHandler) Stats(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	stats, engine, err := h.svc.Stats(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err, "failed to compute stats")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{BeliefStats: stats, Engine: engine})
}

func (h *BeliefHandler) Review(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	conflicts, err := h.svc.ReviewAgent(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err, "failed to review agent")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"new_conflicts": conflicts, "count": len(conflicts)})
}
