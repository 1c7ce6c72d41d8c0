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

type ConflictStore struct {
	mu        sync.RWMutex
	conflicts map[uuid.UUID]*domain.BeliefConflict
}

func NewConflictStore() *ConflictStore {
	return &ConflictStore{conflicts: make(map[uuid.UUID]*domain.BeliefConflict)}
}

func (s *ConflictStore) Create(_ context.Context, c *domain.BeliefConflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = uuid.New()
	c.DetectedAt = time.Now()
	s.conflicts[c.ID] = cloneConflict(c)
	return nil
}

func (s *ConflictStore) Update(_ context.Context, c *domain.BeliefConflict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conflicts[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.conflicts[c.ID] = cloneConflict(c)
	return nil
}

func (s *ConflictStore) GetByID(_ context.Context, id uuid.UUID) (*domain.BeliefConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conflicts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneConflict(c), nil
}

func (s *ConflictStore) GetUnresolved(_ context.Context, agentID string) ([]domain.BeliefConflict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.BeliefConflict
	for _, c := range s.conflicts {
		if c.AgentID == agentID && c.Status == domain.ConflictUnresolved {
			out = append(out, *cloneConflict(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DetectedAt.Before(out[j].DetectedAt) })
	return out, nil
}

func cloneConflict(c *domain.BeliefConflict) *domain.BeliefConflict {
	clone := *c
	if c.Strategy != nil {
		st := *c.Strategy
		clone.Strategy = &st
	}
	if c.WinnerBeliefID != nil {
		id := *c.WinnerBeliefID
		clone.WinnerBeliefID = &id
	}
	if c.ResolvedAt != nil {
		t := *c.ResolvedAt
		clone.ResolvedAt = &t
	}
	return &clone
}
