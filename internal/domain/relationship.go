package domain

import (
	"time"

	"github.com/google/uuid"
)

// RelationshipType is the fixed vocabulary of typed edges between beliefs.
type RelationshipType string

const (
	// Temporal: the source invalidates or revises the target.
	RelSupersedes RelationshipType = "supersedes"
	RelUpdates    RelationshipType = "updates"
	RelDeprecates RelationshipType = "deprecates"
	RelReplaces   RelationshipType = "replaces"

	// Logical
	RelSupports    RelationshipType = "supports"
	RelContradicts RelationshipType = "contradicts"
	RelImplies     RelationshipType = "implies"
	RelReinforces  RelationshipType = "reinforces"
	RelWeakens     RelationshipType = "weakens"

	// Semantic
	RelRelatesTo   RelationshipType = "relates_to"
	RelSpecializes RelationshipType = "specializes"
	RelGeneralizes RelationshipType = "generalizes"
	RelExtends     RelationshipType = "extends"
	RelDerivesFrom RelationshipType = "derives_from"

	// Causal
	RelCauses   RelationshipType = "causes"
	RelCausedBy RelationshipType = "caused_by"
	RelEnables  RelationshipType = "enables"
	RelPrevents RelationshipType = "prevents"

	// Contextual
	RelDependsOn  RelationshipType = "depends_on"
	RelPrecedes   RelationshipType = "precedes"
	RelFollows    RelationshipType = "follows"
	RelContextFor RelationshipType = "context_for"

	// Evidence
	RelEvidencedBy         RelationshipType = "evidenced_by"
	RelProvidesEvidenceFor RelationshipType = "provides_evidence_for"
	RelConflictsWith       RelationshipType = "conflicts_with"

	// Similarity
	RelSimilarTo     RelationshipType = "similar_to"
	RelAnalogousTo   RelationshipType = "analogous_to"
	RelContrastsWith RelationshipType = "contrasts_with"

	RelCustom RelationshipType = "custom"
)

// AllRelationshipTypes lists the full vocabulary, used for validation and the
// SQL check constraint in scripts/schema.sql.
var AllRelationshipTypes = []RelationshipType{
	RelSupersedes, RelUpdates, RelDeprecates, RelReplaces,
	RelSupports, RelContradicts, RelImplies, RelReinforces, RelWeakens,
	RelRelatesTo, RelSpecializes, RelGeneralizes, RelExtends, RelDerivesFrom,
	RelCauses, RelCausedBy, RelEnables, RelPrevents,
	RelDependsOn, RelPrecedes, RelFollows, RelContextFor,
	RelEvidencedBy, RelProvidesEvidenceFor, RelConflictsWith,
	RelSimilarTo, RelAnalogousTo, RelContrastsWith,
	RelCustom,
}

func ValidRelationshipType(r string) bool {
	for _, t := range AllRelationshipTypes {
		if t == RelationshipType(r) {
			return true
		}
	}
	return false
}

// TemporalRelationships mark the source as the current replacement of the
// target; following them from a deprecated belief finds its successor.
var TemporalRelationships = map[RelationshipType]bool{
	RelSupersedes: true,
	RelUpdates:    true,
	RelDeprecates: true,
	RelReplaces:   true,
}

// BeliefRelationship is a directed, strength-weighted, optionally time-bounded
// edge between two beliefs of one agent. Edges are deactivated, never
// hard-deleted, so the graph keeps its history. At most one active edge of a
// given type may exist per ordered (source, target, agent) triple.
type BeliefRelationship struct {
	ID                uuid.UUID        `json:"id"`
	AgentID           string           `json:"agent_id"`
	SourceBeliefID    uuid.UUID        `json:"source_belief_id"`
	TargetBeliefID    uuid.UUID        `json:"target_belief_id"`
	Type              RelationshipType `json:"type"`
	Strength          float64          `json:"strength"`
	EffectiveFrom     *time.Time       `json:"effective_from,omitempty"`
	EffectiveUntil    *time.Time       `json:"effective_until,omitempty"`
	DeprecationReason string           `json:"deprecation_reason,omitempty"`
	Active            bool             `json:"active"`
	CreatedAt         time.Time        `json:"created_at"`
	LastUpdated       time.Time        `json:"last_updated"`
	Version           int64            `json:"version"`
}

// EffectiveAt reports whether the edge is active and its effective window
// [EffectiveFrom, EffectiveUntil) contains t. Nil bounds are open.
func (r *BeliefRelationship) EffectiveAt(t time.Time) bool {
	if !r.Active {
		return false
	}
	if r.EffectiveFrom != nil && t.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveUntil != nil && !t.Before(*r.EffectiveUntil) {
		return false
	}
	return true
}

// Direction selects which edges to follow relative to a belief.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// DeprecatedBelief pairs a superseded belief with its replacement, as
// discovered by following temporal edges.
type DeprecatedBelief struct {
	Belief            *Belief   `json:"belief"`
	SupersededByID    uuid.UUID `json:"superseded_by_id"`
	DeprecationReason string    `json:"deprecation_reason,omitempty"`
}

// TraversalNode is one belief reached during a graph traversal.
type TraversalNode struct {
	BeliefID uuid.UUID        `json:"belief_id"`
	Depth    int              `json:"depth"`
	Via      RelationshipType `json:"via,omitempty"`
}
