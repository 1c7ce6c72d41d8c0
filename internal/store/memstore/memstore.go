// Package memstore provides in-memory implementations of the storage
// contracts. It preserves the same invariants as the Postgres stores —
// optimistic versioning, the single-active-edge rule, archive semantics — so
// it can back tests and embedded deployments interchangeably.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/extraction"
	"github.com/credohq/credo/internal/store"
	"github.com/google/uuid"
)

type BeliefStore struct {
	mu      sync.RWMutex
	beliefs map[uuid.UUID]*domain.Belief
}

func NewBeliefStore() *BeliefStore {
	return &BeliefStore{beliefs: make(map[uuid.UUID]*domain.Belief)}
}

func (s *BeliefStore) Create(_ context.Context, b *domain.Belief) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	b.ID = uuid.New()
	b.Active = true
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.LastUpdated.IsZero() {
		b.LastUpdated = now
	}
	b.Version = 1
	s.beliefs[b.ID] = cloneBelief(b)
	return nil
}

func (s *BeliefStore) CreateBatch(ctx context.Context, beliefs []*domain.Belief) []domain.BatchResult {
	results := make([]domain.BatchResult, 0, len(beliefs))
	for _, b := range beliefs {
		if err := ctx.Err(); err != nil {
			results = append(results, domain.BatchResult{ID: b.ID, Err: err})
			continue
		}
		err := s.Create(ctx, b)
		results = append(results, domain.BatchResult{ID: b.ID, Err: err})
	}
	return results
}

func (s *BeliefStore) Update(_ context.Context, b *domain.Belief) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.beliefs[b.ID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != b.Version {
		return store.ErrVersionConflict
	}
	b.Version++
	b.LastUpdated = time.Now()
	s.beliefs[b.ID] = cloneBelief(b)
	return nil
}

func (s *BeliefStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Belief, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.beliefs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneBelief(b), nil
}

func (s *BeliefStore) GetByAgent(_ context.Context, agentID string, includeInactive bool) ([]domain.Belief, error) {
	return s.filter(func(b *domain.Belief) bool {
		return b.AgentID == agentID && b.ArchivedAt == nil && (includeInactive || b.Active)
	}), nil
}

func (s *BeliefStore) GetByCategory(_ context.Context, agentID string, category domain.BeliefCategory, includeInactive bool) ([]domain.Belief, error) {
	return s.filter(func(b *domain.Belief) bool {
		return b.AgentID == agentID && b.Category == category && b.ArchivedAt == nil && (includeInactive || b.Active)
	}), nil
}

func (s *BeliefStore) GetLowConfidence(_ context.Context, agentID string, threshold float64) ([]domain.Belief, error) {
	beliefs := s.filter(func(b *domain.Belief) bool {
		return b.AgentID == agentID && b.Active && b.ArchivedAt == nil && b.Confidence < threshold
	})
	sort.Slice(beliefs, func(i, j int) bool { return beliefs[i].Confidence < beliefs[j].Confidence })
	return beliefs, nil
}

func (s *BeliefStore) SearchSimilar(_ context.Context, agentID string, embedding []float32, threshold float64, limit int) ([]domain.BeliefWithScore, error) {
	if limit <= 0 {
		limit = 10
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var scored []domain.BeliefWithScore
	for _, b := range s.beliefs {
		if b.AgentID != agentID || !b.Active || b.ArchivedAt != nil || len(b.Embedding) == 0 {
			continue
		}
		sim, ok := extraction.CosineSimilarity(embedding, b.Embedding)
		if !ok || sim < threshold {
			continue
		}
		scored = append(scored, domain.BeliefWithScore{Belief: *cloneBelief(b), Score: sim})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *BeliefStore) SearchText(_ context.Context, agentID string, query string, limit int) ([]domain.Belief, error) {
	if limit <= 0 {
		limit = 10
	}
	needle := strings.ToLower(query)
	beliefs := s.filter(func(b *domain.Belief) bool {
		return b.AgentID == agentID && b.Active && b.ArchivedAt == nil &&
			strings.Contains(strings.ToLower(b.Statement), needle)
	})
	sort.Slice(beliefs, func(i, j int) bool { return beliefs[i].Confidence > beliefs[j].Confidence })
	if len(beliefs) > limit {
		beliefs = beliefs[:limit]
	}
	return beliefs, nil
}

func (s *BeliefStore) Stats(ctx context.Context, agentID string) (*domain.BeliefStats, error) {
	beliefs, err := s.GetByAgent(ctx, agentID, true)
	if err != nil {
		return nil, err
	}
	return domain.ComputeBeliefStats(beliefs), nil
}

func (s *BeliefStore) ListAgentIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, b := range s.beliefs {
		if !seen[b.AgentID] {
			seen[b.AgentID] = true
			ids = append(ids, b.AgentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *BeliefStore) Archive(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.beliefs[id]
	if !ok || b.ArchivedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	b.Active = false
	b.ArchivedAt = &now
	b.LastUpdated = now
	b.Version++
	return nil
}

func (s *BeliefStore) Restore(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.beliefs[id]
	if !ok || b.ArchivedAt == nil {
		return store.ErrNotFound
	}
	b.Active = true
	b.ArchivedAt = nil
	b.LastUpdated = time.Now()
	b.Version++
	return nil
}

func (s *BeliefStore) ListArchivedBefore(_ context.Context, cutoff time.Time) ([]domain.Belief, error) {
	return s.filter(func(b *domain.Belief) bool {
		return b.ArchivedAt != nil && b.ArchivedAt.Before(cutoff)
	}), nil
}

func (s *BeliefStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.beliefs[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.beliefs, id)
	return nil
}

func (s *BeliefStore) filter(keep func(*domain.Belief) bool) []domain.Belief {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Belief
	for _, b := range s.beliefs {
		if keep(b) {
			out = append(out, *cloneBelief(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func cloneBelief(b *domain.Belief) *domain.Belief {
	c := *b
	c.EvidenceMemoryIDs = append([]uuid.UUID(nil), b.EvidenceMemoryIDs...)
	c.Tags = append([]string(nil), b.Tags...)
	c.Embedding = append([]float32(nil), b.Embedding...)
	if b.ArchivedAt != nil {
		t := *b.ArchivedAt
		c.ArchivedAt = &t
	}
	return &c
}
