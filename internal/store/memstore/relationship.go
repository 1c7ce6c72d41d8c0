package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/store"
	"github.com/google/uuid"
)

type RelationshipStore struct {
	mu   sync.RWMutex
	rels map[uuid.UUID]*domain.BeliefRelationship
}

func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{rels: make(map[uuid.UUID]*domain.BeliefRelationship)}
}

func (s *RelationshipStore) Create(_ context.Context, r *domain.BeliefRelationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same invariant the partial unique index enforces in Postgres: at most
	// one active edge per (source, target, type, agent).
	for _, existing := range s.rels {
		if existing.Active &&
			existing.AgentID == r.AgentID &&
			existing.SourceBeliefID == r.SourceBeliefID &&
			existing.TargetBeliefID == r.TargetBeliefID &&
			existing.Type == r.Type {
			return store.ErrDuplicateEdge
		}
	}

	now := time.Now()
	r.ID = uuid.New()
	r.Active = true
	r.CreatedAt = now
	r.LastUpdated = now
	r.Version = 1
	s.rels[r.ID] = cloneRelationship(r)
	return nil
}

func (s *RelationshipStore) Update(_ context.Context, r *domain.BeliefRelationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rels[r.ID]
	if !ok {
		return store.ErrNotFound
	}
	if stored.Version != r.Version {
		return store.ErrVersionConflict
	}
	r.Version++
	r.LastUpdated = time.Now()
	s.rels[r.ID] = cloneRelationship(r)
	return nil
}

func (s *RelationshipStore) GetByID(_ context.Context, id uuid.UUID) (*domain.BeliefRelationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rels[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneRelationship(r), nil
}

func (s *RelationshipStore) GetForBelief(_ context.Context, beliefID uuid.UUID, direction domain.Direction, includeInactive bool) ([]domain.BeliefRelationship, error) {
	return s.filter(func(r *domain.BeliefRelationship) bool {
		if !includeInactive && !r.Active {
			return false
		}
		switch direction {
		case domain.DirectionOutgoing:
			return r.SourceBeliefID == beliefID
		case domain.DirectionIncoming:
			return r.TargetBeliefID == beliefID
		default:
			return r.SourceBeliefID == beliefID || r.TargetBeliefID == beliefID
		}
	}), nil
}

func (s *RelationshipStore) GetByAgent(_ context.Context, agentID string, includeInactive bool) ([]domain.BeliefRelationship, error) {
	return s.filter(func(r *domain.BeliefRelationship) bool {
		return r.AgentID == agentID && (includeInactive || r.Active)
	}), nil
}

func (s *RelationshipStore) Deactivate(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rels[id]
	if !ok || !r.Active {
		return store.ErrNotFound
	}
	now := time.Now()
	r.Active = false
	r.EffectiveUntil = &now
	r.DeprecationReason = reason
	r.LastUpdated = now
	r.Version++
	return nil
}

func (s *RelationshipStore) filter(keep func(*domain.BeliefRelationship) bool) []domain.BeliefRelationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BeliefRelationship
	for _, r := range s.rels {
		if keep(r) {
			out = append(out, *cloneRelationship(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Strength > out[j].Strength })
	return out
}

func cloneRelationship(r *domain.BeliefRelationship) *domain.BeliefRelationship {
	clone := *r
	if r.EffectiveFrom != nil {
		t := *r.EffectiveFrom
		clone.EffectiveFrom = &t
	}
	if r.EffectiveUntil != nil {
		t := *r.EffectiveUntil
		clone.EffectiveUntil = &t
	}
	return &clone
}
