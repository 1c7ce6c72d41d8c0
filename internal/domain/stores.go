package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BeliefWithScore pairs a belief with a similarity score from a search.
type BeliefWithScore struct {
	Belief
	Score float64 `json:"score"`
}

// BatchResult reports the outcome of one item in a best-effort batch
// operation. A batch never partially commits a single item, but the batch as
// a whole may be partially successful.
type BatchResult struct {
	ID  uuid.UUID `json:"id"`
	Err error     `json:"-"`
}

// BeliefStats aggregates counts for one agent (or all agents when empty).
type BeliefStats struct {
	TotalBeliefs          int                    `json:"total_beliefs"`
	ActiveBeliefs         int                    `json:"active_beliefs"`
	InactiveBeliefs       int                    `json:"inactive_beliefs"`
	AverageConfidence     float64                `json:"average_confidence"`
	HighConfidenceBeliefs int                    `json:"high_confidence_beliefs"`
	ByCategory            map[BeliefCategory]int `json:"by_category"`
	ByConfidenceBucket    map[string]int         `json:"by_confidence_bucket"`
}

// BeliefStore is the persistence contract for beliefs. Implementations must
// honor optimistic versioning: Update compares the caller's Version against
// the stored one and fails with a version-conflict error (distinct from
// not-found) on mismatch, incrementing Version on success.
//
// GetByID returns inactive beliefs too; they stay addressable for audit and
// graph purposes. Agent/category queries exclude inactive beliefs unless
// includeInactive is set.
type BeliefStore interface {
	Create(ctx context.Context, b *Belief) error
	CreateBatch(ctx context.Context, beliefs []*Belief) []BatchResult
	Update(ctx context.Context, b *Belief) error
	GetByID(ctx context.Context, id uuid.UUID) (*Belief, error)
	GetByAgent(ctx context.Context, agentID string, includeInactive bool) ([]Belief, error)
	GetByCategory(ctx context.Context, agentID string, category BeliefCategory, includeInactive bool) ([]Belief, error)
	GetLowConfidence(ctx context.Context, agentID string, threshold float64) ([]Belief, error)
	SearchSimilar(ctx context.Context, agentID string, embedding []float32, threshold float64, limit int) ([]BeliefWithScore, error)
	SearchText(ctx context.Context, agentID string, query string, limit int) ([]Belief, error)
	Stats(ctx context.Context, agentID string) (*BeliefStats, error)
	ListAgentIDs(ctx context.Context) ([]string, error)

	// Archival lifecycle, reserved for the forgetting engine.
	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]Belief, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// ConflictStore persists detected conflicts. Resolution updates the row in
// place; resolved conflicts remain queryable as an audit log.
type ConflictStore interface {
	Create(ctx context.Context, c *BeliefConflict) error
	Update(ctx context.Context, c *BeliefConflict) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefConflict, error)
	GetUnresolved(ctx context.Context, agentID string) ([]BeliefConflict, error)
}

// RelationshipStore persists knowledge-graph edges. Create must reject a
// second active edge with the same (source, target, type, agent) with a
// duplicate-edge error. Edges are deactivated, never deleted.
type RelationshipStore interface {
	Create(ctx context.Context, r *BeliefRelationship) error
	Update(ctx context.Context, r *BeliefRelationship) error
	GetByID(ctx context.Context, id uuid.UUID) (*BeliefRelationship, error)
	GetForBelief(ctx context.Context, beliefID uuid.UUID, direction Direction, includeInactive bool) ([]BeliefRelationship, error)
	GetByAgent(ctx context.Context, agentID string, includeInactive bool) ([]BeliefRelationship, error)
	Deactivate(ctx context.Context, id uuid.UUID, reason string) error
}

// MemoryRecordStore is the external memory collaborator: a record store the
// forgetting engine reads access metadata from and archives/deletes.
type MemoryRecordStore interface {
	Create(ctx context.Context, m *MemoryRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MemoryRecord, error)
	GetByAgent(ctx context.Context, agentID string, includeArchived bool) ([]MemoryRecord, error)
	RecordAccess(ctx context.Context, id uuid.UUID) error
	ListAgentIDs(ctx context.Context) ([]string, error)

	Archive(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
	ListArchivedBefore(ctx context.Context, cutoff time.Time) ([]MemoryRecord, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// EmbeddingClient turns text into a vector. Optional: when absent the system
// falls back to lexical similarity.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
