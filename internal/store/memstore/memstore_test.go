package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBelief(agentID string) *domain.Belief {
	return &domain.Belief{
		AgentID:    agentID,
		Statement:  "likes: sushi",
		Category:   domain.CategoryPreference,
		Positive:   true,
		Confidence: 0.8,
	}
}

func TestBeliefStore_CreateAndGet(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	b := newBelief("a1")
	require.NoError(t, s.Create(ctx, b))
	require.NotEqual(t, uuid.Nil, b.ID)
	assert.True(t, b.Active)
	assert.EqualValues(t, 1, b.Version)

	got, err := s.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Statement, got.Statement)
}

func TestBeliefStore_UpdateVersionConflict(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	b := newBelief("a1")
	require.NoError(t, s.Create(ctx, b))

	stale := *b
	b.Confidence = 0.9
	require.NoError(t, s.Update(ctx, b))

	// The first writer bumped the version; the stale copy must lose.
	stale.Confidence = 0.1
	err := s.Update(ctx, &stale)
	require.ErrorIs(t, err, store.ErrVersionConflict)

	got, err := s.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.9, got.Confidence)
}

func TestBeliefStore_UpdateNotFound(t *testing.T) {
	s := NewBeliefStore()
	b := newBelief("a1")
	b.ID = uuid.New()
	b.Version = 1
	require.ErrorIs(t, s.Update(context.Background(), b), store.ErrNotFound)
}

func TestBeliefStore_GetByAgentFiltersInactive(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	active := newBelief("a1")
	require.NoError(t, s.Create(ctx, active))

	inactive := newBelief("a1")
	require.NoError(t, s.Create(ctx, inactive))
	inactive.Active = false
	require.NoError(t, s.Update(ctx, inactive))

	got, err := s.GetByAgent(ctx, "a1", false)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	all, err := s.GetByAgent(ctx, "a1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Inactive beliefs stay addressable by id.
	_, err = s.GetByID(ctx, inactive.ID)
	assert.NoError(t, err)
}

func TestBeliefStore_ArchiveRestoreDelete(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	b := newBelief("a1")
	require.NoError(t, s.Create(ctx, b))

	require.NoError(t, s.Archive(ctx, b.ID))
	require.ErrorIs(t, s.Archive(ctx, b.ID), store.ErrNotFound)

	// Archived beliefs are hidden from agent queries.
	got, err := s.GetByAgent(ctx, "a1", true)
	require.NoError(t, err)
	assert.Empty(t, got)

	archived, err := s.ListArchivedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, archived, 1)

	require.NoError(t, s.Restore(ctx, b.ID))
	restored, err := s.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, restored.Active)
	assert.Nil(t, restored.ArchivedAt)

	require.NoError(t, s.Archive(ctx, b.ID))
	require.NoError(t, s.Delete(ctx, b.ID))
	_, err = s.GetByID(ctx, b.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestBeliefStore_SearchText(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	b := newBelief("a1")
	require.NoError(t, s.Create(ctx, b))

	got, err := s.SearchText(ctx, "a1", "SUSHI", 10)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	none, err := s.SearchText(ctx, "a1", "pizza", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestBeliefStore_Stats(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	high := newBelief("a1")
	high.Confidence = 0.9
	require.NoError(t, s.Create(ctx, high))

	low := newBelief("a1")
	low.Confidence = 0.3
	require.NoError(t, s.Create(ctx, low))

	stats, err := s.Stats(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalBeliefs)
	assert.Equal(t, 2, stats.ActiveBeliefs)
	assert.Equal(t, 1, stats.HighConfidenceBeliefs)
	assert.InDelta(t, 0.6, stats.AverageConfidence, 1e-9)
}

func TestBeliefStore_GetLowConfidence(t *testing.T) {
	s := NewBeliefStore()
	ctx := context.Background()

	weak := newBelief("a1")
	weak.Confidence = 0.2
	require.NoError(t, s.Create(ctx, weak))

	weaker := newBelief("a1")
	weaker.Confidence = 0.1
	require.NoError(t, s.Create(ctx, weaker))

	strong := newBelief("a1")
	strong.Confidence = 0.9
	require.NoError(t, s.Create(ctx, strong))

	got, err := s.GetLowConfidence(ctx, "a1", 0.5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Weakest first.
	assert.Equal(t, weaker.ID, got[0].ID)
	assert.Equal(t, weak.ID, got[1].ID)
}

func TestBeliefStore_CreateBatch(t *testing.T) {
	s := NewBeliefStore()

	batch := []*domain.Belief{newBelief("a1"), newBelief("a1"), newBelief("a2")}
	results := s.CreateBatch(context.Background(), batch)
	require.Len(t, results, 3)
	for i, res := range results {
		assert.NoError(t, res.Err)
		assert.Equal(t, batch[i].ID, res.ID)
	}

	got, err := s.GetByAgent(context.Background(), "a1", false)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRelationshipStore_DuplicateActiveEdge(t *testing.T) {
	s := NewRelationshipStore()
	ctx := context.Background()

	source, target := uuid.New(), uuid.New()
	edge := &domain.BeliefRelationship{
		AgentID:        "a1",
		SourceBeliefID: source,
		TargetBeliefID: target,
		Type:           domain.RelSupports,
		Strength:       0.5,
	}
	require.NoError(t, s.Create(ctx, edge))

	dup := &domain.BeliefRelationship{
		AgentID:        "a1",
		SourceBeliefID: source,
		TargetBeliefID: target,
		Type:           domain.RelSupports,
		Strength:       0.9,
	}
	require.ErrorIs(t, s.Create(ctx, dup), store.ErrDuplicateEdge)

	// A different type between the same endpoints is a distinct edge.
	other := &domain.BeliefRelationship{
		AgentID:        "a1",
		SourceBeliefID: source,
		TargetBeliefID: target,
		Type:           domain.RelContradicts,
		Strength:       0.9,
	}
	require.NoError(t, s.Create(ctx, other))

	// After deactivation the slot frees up.
	require.NoError(t, s.Deactivate(ctx, edge.ID, "replaced"))
	require.NoError(t, s.Create(ctx, dup))
}

func TestRelationshipStore_DeactivatePreservesEdge(t *testing.T) {
	s := NewRelationshipStore()
	ctx := context.Background()

	edge := &domain.BeliefRelationship{
		AgentID:        "a1",
		SourceBeliefID: uuid.New(),
		TargetBeliefID: uuid.New(),
		Type:           domain.RelSupersedes,
		Strength:       1.0,
	}
	require.NoError(t, s.Create(ctx, edge))
	require.NoError(t, s.Deactivate(ctx, edge.ID, "superseded by newer belief"))

	got, err := s.GetByID(ctx, edge.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "superseded by newer belief", got.DeprecationReason)
	assert.NotNil(t, got.EffectiveUntil)

	// Deactivating twice is a not-found, not a silent no-op.
	require.ErrorIs(t, s.Deactivate(ctx, edge.ID, "again"), store.ErrNotFound)

	active, err := s.GetForBelief(ctx, edge.SourceBeliefID, domain.DirectionOutgoing, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := s.GetForBelief(ctx, edge.SourceBeliefID, domain.DirectionOutgoing, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryRecordStore_AccessTracking(t *testing.T) {
	s := NewMemoryRecordStore()
	ctx := context.Background()

	m := &domain.MemoryRecord{AgentID: "a1", Content: "test", Importance: 0.5}
	require.NoError(t, s.Create(ctx, m))

	require.NoError(t, s.RecordAccess(ctx, m.ID))
	require.NoError(t, s.RecordAccess(ctx, m.ID))

	got, err := s.GetByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	assert.NotNil(t, got.LastAccessedAt)
}

func TestMemoryRecordStore_ArchiveCycle(t *testing.T) {
	s := NewMemoryRecordStore()
	ctx := context.Background()

	m := &domain.MemoryRecord{AgentID: "a1", Content: "old note"}
	require.NoError(t, s.Create(ctx, m))
	require.NoError(t, s.Archive(ctx, m.ID))

	visible, err := s.GetByAgent(ctx, "a1", false)
	require.NoError(t, err)
	assert.Empty(t, visible)

	archived, err := s.ListArchivedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, archived, 1)

	require.NoError(t, s.Restore(ctx, m.ID))
	visible, err = s.GetByAgent(ctx, "a1", false)
	require.NoError(t, err)
	assert.Len(t, visible, 1)
}

func TestConflictStore_UnresolvedFilter(t *testing.T) {
	s := NewConflictStore()
	ctx := context.Background()

	open := &domain.BeliefConflict{
		AgentID:             "a1",
		BeliefID:            uuid.New(),
		ConflictingBeliefID: uuid.New(),
		Category:            domain.CategoryPreference,
		Status:              domain.ConflictUnresolved,
	}
	require.NoError(t, s.Create(ctx, open))

	now := time.Now()
	strategy := domain.StrategyNewerWins
	resolved := &domain.BeliefConflict{
		AgentID:             "a1",
		BeliefID:            uuid.New(),
		ConflictingBeliefID: uuid.New(),
		Category:            domain.CategoryPreference,
		Status:              domain.ConflictUnresolved,
	}
	require.NoError(t, s.Create(ctx, resolved))
	resolved.Status = domain.ConflictResolved
	resolved.Strategy = &strategy
	resolved.ResolvedAt = &now
	require.NoError(t, s.Update(ctx, resolved))

	unresolved, err := s.GetUnresolved(ctx, "a1")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, open.ID, unresolved[0].ID)

	// The resolved conflict remains as an audit record.
	got, err := s.GetByID(ctx, resolved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ConflictResolved, got.Status)
}
