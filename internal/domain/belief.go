package domain

import (
	"time"

	"github.com/google/uuid"
)

// BeliefCategory classifies what kind of statement a belief encodes.
// Categories also key the conflict resolution strategy table.
type BeliefCategory string

const (
	CategoryPreference   BeliefCategory = "preference"
	CategoryFact         BeliefCategory = "fact"
	CategoryRelationship BeliefCategory = "relationship"
	CategoryLocation     BeliefCategory = "location"
	CategoryGeneral      BeliefCategory = "general"
)

func ValidBeliefCategory(c string) bool {
	switch BeliefCategory(c) {
	case CategoryPreference, CategoryFact, CategoryRelationship, CategoryLocation, CategoryGeneral:
		return true
	}
	return false
}

// Belief is a confidence-weighted statement held by an agent, derived from
// one or more memories. Confidence is always within [0,1]. Version is a
// monotonic counter used for optimistic concurrency: stores reject updates
// whose version does not match the stored row.
type Belief struct {
	ID                 uuid.UUID      `json:"id"`
	AgentID            string         `json:"agent_id"`
	Statement          string         `json:"statement"`
	Category           BeliefCategory `json:"category"`
	Positive           bool           `json:"positive"`
	Confidence         float64        `json:"confidence"`
	ReinforcementCount int            `json:"reinforcement_count"`
	EvidenceMemoryIDs  []uuid.UUID    `json:"evidence_memory_ids,omitempty"`
	Tags               []string       `json:"tags,omitempty"`
	Embedding          []float32      `json:"-"`
	Active             bool           `json:"active"`
	Pinned             bool           `json:"pinned"`
	ArchivedAt         *time.Time     `json:"archived_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	LastUpdated        time.Time      `json:"last_updated"`
	Version            int64          `json:"version"`
}

// ClampConfidence bounds a confidence or strength value to [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// AddEvidence appends a memory id to the evidence set, keeping it a set.
func (b *Belief) AddEvidence(memoryID uuid.UUID) {
	for _, id := range b.EvidenceMemoryIDs {
		if id == memoryID {
			return
		}
	}
	b.EvidenceMemoryIDs = append(b.EvidenceMemoryIDs, memoryID)
}

// HasTag reports whether the belief carries the given tag.
func (b *Belief) HasTag(tag string) bool {
	for _, t := range b.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// ConfidenceBucket groups beliefs for statistics reporting.
func ConfidenceBucket(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "medium"
	default:
		return "low"
	}
}
