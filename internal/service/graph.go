package service

import (
	"context"
	"fmt"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultTraversalDepth = 3

// GraphService maintains the typed, temporal knowledge graph over beliefs:
// edge lifecycle, traversal, deprecation chains, and integrity checks.
type GraphService struct {
	beliefs       domain.BeliefStore
	relationships domain.RelationshipStore
	logger        *zap.Logger
	maxDepth      int
}

func NewGraphService(beliefs domain.BeliefStore, relationships domain.RelationshipStore, maxDepth int, logger *zap.Logger) *GraphService {
	if maxDepth <= 0 {
		maxDepth = defaultTraversalDepth
	}
	return &GraphService{
		beliefs:       beliefs,
		relationships: relationships,
		logger:        logger,
		maxDepth:      maxDepth,
	}
}

// AddRelationship validates and creates an edge. Both endpoints must exist
// and belong to the same agent; self-loops are rejected; strength must be
// within [0,1] and the effective window well-ordered.
func (s *GraphService) AddRelationship(ctx context.Context, r *domain.BeliefRelationship) error {
	if r.SourceBeliefID == r.TargetBeliefID {
		return fmt.Errorf("%w: self-referential edge", ErrInvalidInput)
	}
	if !domain.ValidRelationshipType(string(r.Type)) {
		return fmt.Errorf("%w: unknown relationship type %q", ErrInvalidInput, r.Type)
	}
	if r.Strength < 0 || r.Strength > 1 {
		return fmt.Errorf("%w: strength must be within [0,1]", ErrInvalidInput)
	}
	if r.EffectiveFrom != nil && r.EffectiveUntil != nil && r.EffectiveUntil.Before(*r.EffectiveFrom) {
		return fmt.Errorf("%w: effective window ends before it starts", ErrInvalidInput)
	}

	source, err := s.beliefs.GetByID(ctx, r.SourceBeliefID)
	if err != nil {
		return fmt.Errorf("source belief: %w", err)
	}
	target, err := s.beliefs.GetByID(ctx, r.TargetBeliefID)
	if err != nil {
		return fmt.Errorf("target belief: %w", err)
	}
	if source.AgentID != target.AgentID {
		return fmt.Errorf("%w: edge endpoints belong to different agents", ErrInvalidInput)
	}
	r.AgentID = source.AgentID

	if err := s.relationships.Create(ctx, r); err != nil {
		return err
	}
	s.logger.Info("relationship created",
		zap.String("agent_id", r.AgentID),
		zap.String("relationship_id", r.ID.String()),
		zap.String("type", string(r.Type)))
	return nil
}

// DeactivateRelationship retires an edge, keeping it for history.
func (s *GraphService) DeactivateRelationship(ctx context.Context, id uuid.UUID, reason string) error {
	return s.relationships.Deactivate(ctx, id, reason)
}

// GetRelationships lists a belief's edges in the given direction. When
// effectiveOnly is set, only edges whose effective window contains now are
// returned.
func (s *GraphService) GetRelationships(ctx context.Context, beliefID uuid.UUID, direction domain.Direction, includeInactive, effectiveOnly bool) ([]domain.BeliefRelationship, error) {
	rels, err := s.relationships.GetForBelief(ctx, beliefID, direction, includeInactive)
	if err != nil {
		return nil, err
	}
	if !effectiveOnly {
		return rels, nil
	}

	now := time.Now()
	out := make([]domain.BeliefRelationship, 0, len(rels))
	for _, r := range rels {
		if r.EffectiveAt(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

// Traverse walks the graph breadth-first from a starting belief, following
// active edges in the given direction up to maxDepth (capped by the service
// limit). An empty direction defaults to outgoing. Cycles are broken with a
// visited set; each belief is reported at its shallowest depth. The start node
// is not included.
func (s *GraphService) Traverse(ctx context.Context, startID uuid.UUID, maxDepth int, direction domain.Direction) ([]domain.TraversalNode, error) {
	switch direction {
	case domain.DirectionOutgoing, domain.DirectionIncoming, domain.DirectionBoth:
	case "":
		direction = domain.DirectionOutgoing
	default:
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, direction)
	}
	if maxDepth <= 0 || maxDepth > s.maxDepth {
		maxDepth = s.maxDepth
	}
	if _, err := s.beliefs.GetByID(ctx, startID); err != nil {
		return nil, err
	}

	visited := map[uuid.UUID]bool{startID: true}
	frontier := []domain.TraversalNode{{BeliefID: startID}}
	var result []domain.TraversalNode

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []domain.TraversalNode
		for _, node := range frontier {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			edges, err := s.relationships.GetForBelief(ctx, node.BeliefID, direction, false)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				neighbor := e.TargetBeliefID
				if neighbor == node.BeliefID {
					neighbor = e.SourceBeliefID
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				reached := domain.TraversalNode{BeliefID: neighbor, Depth: depth, Via: e.Type}
				result = append(result, reached)
				next = append(next, reached)
			}
		}
		frontier = next
	}
	return result, nil
}

// ShortestPath returns the edge sequence of a shortest path between two
// beliefs over active edges in either direction, or ErrNotFound when no path
// exists within the traversal depth limit.
func (s *GraphService) ShortestPath(ctx context.Context, fromID, toID uuid.UUID) ([]domain.BeliefRelationship, error) {
	if fromID == toID {
		return nil, fmt.Errorf("%w: path endpoints are the same belief", ErrInvalidInput)
	}

	type hop struct {
		belief uuid.UUID
		edge   *domain.BeliefRelationship
		prev   *hop
	}

	visited := map[uuid.UUID]bool{fromID: true}
	frontier := []*hop{{belief: fromID}}

	for depth := 0; depth < s.maxDepth && len(frontier) > 0; depth++ {
		var next []*hop
		for _, h := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := s.relationships.GetForBelief(ctx, h.belief, domain.DirectionBoth, false)
			if err != nil {
				return nil, err
			}
			for i := range edges {
				e := edges[i]
				neighbor := e.TargetBeliefID
				if neighbor == h.belief {
					neighbor = e.SourceBeliefID
				}
				if visited[neighbor] {
					continue
				}
				visited[neighbor] = true
				reached := &hop{belief: neighbor, edge: &e, prev: h}
				if neighbor == toID {
					var path []domain.BeliefRelationship
					for cur := reached; cur.edge != nil; cur = cur.prev {
						path = append([]domain.BeliefRelationship{*cur.edge}, path...)
					}
					return path, nil
				}
				next = append(next, reached)
			}
		}
		frontier = next
	}
	return nil, store.ErrNotFound
}

// DeprecateWith marks oldID as superseded by newID: the old belief is
// deactivated and a full-strength supersedes edge records the transition and
// its reason.
func (s *GraphService) DeprecateWith(ctx context.Context, oldID, newID uuid.UUID, reason string) error {
	if oldID == newID {
		return fmt.Errorf("%w: a belief cannot supersede itself", ErrInvalidInput)
	}
	oldBelief, err := s.beliefs.GetByID(ctx, oldID)
	if err != nil {
		return fmt.Errorf("deprecated belief: %w", err)
	}
	newBelief, err := s.beliefs.GetByID(ctx, newID)
	if err != nil {
		return fmt.Errorf("superseding belief: %w", err)
	}
	if oldBelief.AgentID != newBelief.AgentID {
		return fmt.Errorf("%w: beliefs belong to different agents", ErrInvalidInput)
	}

	edge := &domain.BeliefRelationship{
		AgentID:           oldBelief.AgentID,
		SourceBeliefID:    newID,
		TargetBeliefID:    oldID,
		Type:              domain.RelSupersedes,
		Strength:          1.0,
		DeprecationReason: reason,
	}
	if err := s.relationships.Create(ctx, edge); err != nil {
		return err
	}

	if oldBelief.Active {
		oldBelief.Active = false
		if err := s.beliefs.Update(ctx, oldBelief); err != nil {
			return err
		}
	}
	s.logger.Info("belief deprecated",
		zap.String("old_belief_id", oldID.String()),
		zap.String("new_belief_id", newID.String()),
		zap.String("reason", reason))
	return nil
}

// FindDeprecatedBeliefs lists an agent's beliefs that sit on the receiving
// end of an active temporal edge, paired with their successor.
func (s *GraphService) FindDeprecatedBeliefs(ctx context.Context, agentID string) ([]domain.DeprecatedBelief, error) {
	edges, err := s.relationships.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool)
	var out []domain.DeprecatedBelief
	for _, e := range edges {
		if !domain.TemporalRelationships[e.Type] || seen[e.TargetBeliefID] {
			continue
		}
		seen[e.TargetBeliefID] = true

		b, err := s.beliefs.GetByID(ctx, e.TargetBeliefID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.DeprecatedBelief{
			Belief:            b,
			SupersededByID:    e.SourceBeliefID,
			DeprecationReason: e.DeprecationReason,
		})
	}
	return out, nil
}

// IntegrityIssue describes one problem found by ValidateIntegrity. Exactly
// one of RelationshipID and BeliefID identifies the offending record.
type IntegrityIssue struct {
	RelationshipID *uuid.UUID `json:"relationship_id,omitempty"`
	BeliefID       *uuid.UUID `json:"belief_id,omitempty"`
	Problem        string     `json:"problem"`
	Repaired       bool       `json:"repaired"`
}

// ValidateIntegrity scans an agent's active edges for dangling endpoints and
// malformed windows, and its deactivated beliefs for a missing superseding
// edge. With repair set, offending edges are deactivated and orphaned
// inactive beliefs reactivated.
func (s *GraphService) ValidateIntegrity(ctx context.Context, agentID string, repair bool) ([]IntegrityIssue, error) {
	edges, err := s.relationships.GetByAgent(ctx, agentID, false)
	if err != nil {
		return nil, err
	}

	var issues []IntegrityIssue
	for i := range edges {
		if err := ctx.Err(); err != nil {
			return issues, err
		}
		e := edges[i]
		problem := s.checkEdge(ctx, &e)
		if problem == "" {
			continue
		}

		issue := IntegrityIssue{RelationshipID: &e.ID, Problem: problem}
		if repair {
			if err := s.relationships.Deactivate(ctx, e.ID, "integrity repair: "+problem); err != nil {
				return issues, err
			}
			issue.Repaired = true
		}
		issues = append(issues, issue)
	}

	beliefIssues, err := s.checkDeactivated(ctx, agentID, repair)
	if err != nil {
		return issues, err
	}
	issues = append(issues, beliefIssues...)

	if len(issues) > 0 {
		s.logger.Warn("graph integrity issues found",
			zap.String("agent_id", agentID),
			zap.Int("issues", len(issues)),
			zap.Bool("repaired", repair))
	}
	return issues, nil
}

// checkDeactivated flags inactive beliefs with no active temporal in-edge:
// every deactivation is supposed to leave a supersession trail, so an orphan
// means the trail was lost. Repair reactivates the belief.
func (s *GraphService) checkDeactivated(ctx context.Context, agentID string, repair bool) ([]IntegrityIssue, error) {
	beliefs, err := s.beliefs.GetByAgent(ctx, agentID, true)
	if err != nil {
		return nil, err
	}

	var issues []IntegrityIssue
	for i := range beliefs {
		if err := ctx.Err(); err != nil {
			return issues, err
		}
		b := beliefs[i]
		if b.Active {
			continue
		}
		superseded, err := s.hasTemporalInEdge(ctx, b.ID)
		if err != nil {
			return issues, err
		}
		if superseded {
			continue
		}

		issue := IntegrityIssue{BeliefID: &b.ID, Problem: "deactivated without a superseding edge"}
		if repair {
			b.Active = true
			if err := s.beliefs.Update(ctx, &b); err != nil {
				return issues, err
			}
			issue.Repaired = true
		}
		issues = append(issues, issue)
	}
	return issues, nil
}

func (s *GraphService) hasTemporalInEdge(ctx context.Context, beliefID uuid.UUID) (bool, error) {
	edges, err := s.relationships.GetForBelief(ctx, beliefID, domain.DirectionIncoming, false)
	if err != nil {
		return false, err
	}
	for _, e := range edges {
		if domain.TemporalRelationships[e.Type] {
			return true, nil
		}
	}
	return false, nil
}

func (s *GraphService) checkEdge(ctx context.Context, e *domain.BeliefRelationship) string {
	if _, err := s.beliefs.GetByID(ctx, e.SourceBeliefID); err != nil {
		return "dangling source belief"
	}
	if _, err := s.beliefs.GetByID(ctx, e.TargetBeliefID); err != nil {
		return "dangling target belief"
	}
	if e.EffectiveFrom != nil && e.EffectiveUntil != nil && e.EffectiveUntil.Before(*e.EffectiveFrom) {
		return "effective window ends before it starts"
	}
	return ""
}
