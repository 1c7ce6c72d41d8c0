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

type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*domain.MemoryRecord
}

func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[uuid.UUID]*domain.MemoryRecord)}
}

func (s *MemoryRecordStore) Create(_ context.Context, m *domain.MemoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.ID = uuid.New()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	s.records[m.ID] = cloneMemory(m)
	return nil
}

func (s *MemoryRecordStore) GetByID(_ context.Context, id uuid.UUID) (*domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneMemory(m), nil
}

func (s *MemoryRecordStore) GetByAgent(_ context.Context, agentID string, includeArchived bool) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MemoryRecord
	for _, m := range s.records {
		if m.AgentID != agentID {
			continue
		}
		if !includeArchived && m.ArchivedAt != nil {
			continue
		}
		out = append(out, *cloneMemory(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryRecordStore) RecordAccess(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	now := time.Now()
	m.AccessCount++
	m.LastAccessedAt = &now
	return nil
}

func (s *MemoryRecordStore) ListAgentIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, m := range s.records {
		if !seen[m.AgentID] {
			seen[m.AgentID] = true
			ids = append(ids, m.AgentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryRecordStore) Archive(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[id]
	if !ok || m.ArchivedAt != nil {
		return store.ErrNotFound
	}
	now := time.Now()
	m.ArchivedAt = &now
	return nil
}

func (s *MemoryRecordStore) Restore(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.records[id]
	if !ok || m.ArchivedAt == nil {
		return store.ErrNotFound
	}
	m.ArchivedAt = nil
	return nil
}

func (s *MemoryRecordStore) ListArchivedBefore(_ context.Context, cutoff time.Time) ([]domain.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MemoryRecord
	for _, m := range s.records {
		if m.ArchivedAt != nil && m.ArchivedAt.Before(cutoff) {
			out = append(out, *cloneMemory(m))
		}
	}
	return out, nil
}

func (s *MemoryRecordStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func cloneMemory(m *domain.MemoryRecord) *domain.MemoryRecord {
	c := *m
	if m.LastAccessedAt != nil {
		t := *m.LastAccessedAt
		c.LastAccessedAt = &t
	}
	if m.ArchivedAt != nil {
		t := *m.ArchivedAt
		c.ArchivedAt = &t
	}
	return &c
}
