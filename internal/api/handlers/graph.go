package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type GraphHandler struct {
	svc *service.GraphService
}

func NewGraphHandler(svc *service.GraphService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

type createRelationshipRequest struct {
	SourceBeliefID string     `json:"source_belief_id"`
	TargetBeliefID string     `json:"target_belief_id"`
	Type           string     `json:"type"`
	Strength       float64    `json:"strength"`
	EffectiveFrom  *time.Time `json:"effective_from,omitempty"`
	EffectiveUntil *time.Time `json:"effective_until,omitempty"`
	Reason         string     `json:"reason,omitempty"`
}

func (h *GraphHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sourceID, err := uuid.Parse(req.SourceBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid source_belief_id")
		return
	}
	targetID, err := uuid.Parse(req.TargetBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid target_belief_id")
		return
	}

	rel := &domain.BeliefRelationship{
		SourceBeliefID:    sourceID,
		TargetBeliefID:    targetID,
		Type:              domain.RelationshipType(req.Type),
		Strength:          req.Strength,
		EffectiveFrom:     req.EffectiveFrom,
		EffectiveUntil:    req.EffectiveUntil,
		DeprecationReason: req.Reason,
	}
	if err := h.svc.AddRelationship(r.Context(), rel); err != nil {
		writeServiceError(w, err, "failed to create relationship")
		return
	}
	writeJSON(w, http.StatusCreated, rel)
}

type deactivateRelationshipRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *GraphHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid relationship id")
		return
	}

	var req deactivateRelationshipRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	if err := h.svc.DeactivateRelationship(r.Context(), id, req.Reason); err != nil {
		writeServiceError(w, err, "failed to deactivate relationship")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (h *GraphHandler) GetForBelief(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	direction := domain.Direction(r.URL.Query().Get("direction"))
	switch direction {
	case domain.DirectionOutgoing, domain.DirectionIncoming, domain.DirectionBoth:
	case "":
		direction = domain.DirectionBoth
	default:
		writeError(w, http.StatusBadRequest, "invalid direction")
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	effectiveOnly := r.URL.Query().Get("effective_only") == "true"

	rels, err := h.svc.GetRelationships(r.Context(), id, direction, includeInactive, effectiveOnly)
	if err != nil {
		writeServiceError(w, err, "failed to get relationships")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"relationships": rels, "count": len(rels)})
}

func (h *GraphHandler) Traverse(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	depth, _ := strconv.Atoi(r.URL.Query().Get("depth"))
	direction := domain.Direction(r.URL.Query().Get("direction"))
	nodes, err := h.svc.Traverse(r.Context(), id, depth, direction)
	if err != nil {
		writeServiceError(w, err, "failed to traverse graph")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes, "count": len(nodes)})
}

func (h *GraphHandler) ShortestPath(w http.ResponseWriter, r *http.Request) {
	fromID, err := uuid.Parse(chi.URLParam(r, "fromID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from belief id")
		return
	}
	toID, err := uuid.Parse(chi.URLParam(r, "toID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to belief id")
		return
	}

	path, err := h.svc.ShortestPath(r.Context(), fromID, toID)
	if err != nil {
		writeServiceError(w, err, "failed to find path")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "length": len(path)})
}

type deprecateRequest struct {
	NewBeliefID string `json:"new_belief_id"`
	Reason      string `json:"reason,omitempty"`
}

func (h *GraphHandler) Deprecate(w http.ResponseWriter, r *http.Request) {
	oldID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid belief id")
		return
	}

	var req deprecateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	newID, err := uuid.Parse(req.NewBeliefID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_belief_id")
		return
	}

	if err := h.svc.DeprecateWith(r.Context(), oldID, newID, req.Reason); err != nil {
		writeServiceError(w, err, "failed to deprecate belief")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deprecated"})
}

func (h *GraphHandler) ListDeprecated(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	deprecated, err := h.svc.FindDeprecatedBeliefs(r.Context(), agentID)
	if err != nil {
		writeServiceError(w, err, "failed to list deprecated beliefs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deprecated": deprecated, "count": len(deprecated)})
}

func (h *GraphHandler) ValidateIntegrity(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	repair := r.URL.Query().Get("repair") == "true"

	issues, err := h.svc.ValidateIntegrity(r.Context(), agentID, repair)
	if err != nil {
		writeServiceError(w, err, "failed to validate graph")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"issues": issues, "count": len(issues)})
}
