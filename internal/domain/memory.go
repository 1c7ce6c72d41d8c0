package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemoryRecord is the external memory store's view of an ingested memory.
// The forgetting engine reads its age/access metadata and may archive or
// delete it; it is the provenance target of belief evidence ids.
type MemoryRecord struct {
	ID             uuid.UUID      `json:"id"`
	AgentID        string         `json:"agent_id"`
	Content        string         `json:"content"`
	Category       BeliefCategory `json:"category"`
	Importance     float64        `json:"importance"`
	Pinned         bool           `json:"pinned"`
	AccessCount    int            `json:"access_count"`
	LastAccessedAt *time.Time     `json:"last_accessed_at,omitempty"`
	ArchivedAt     *time.Time     `json:"archived_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Age returns how long ago the record was created.
func (m *MemoryRecord) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// RelevanceFactors are the derived inputs to relevance scoring. They are
// computed per evaluation, never stored.
type RelevanceFactors struct {
	Recency       float64 `json:"recency"`
	Frequency     float64 `json:"frequency"`
	Importance    float64 `json:"importance"`
	BeliefSupport float64 `json:"belief_support"`
}
