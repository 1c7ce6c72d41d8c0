package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/credohq/credo/internal/domain"
	"github.com/credohq/credo/internal/store"
	"github.com/credohq/credo/internal/store/memstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type graphFixture struct {
	svc           *GraphService
	beliefs       *memstore.BeliefStore
	relationships *memstore.RelationshipStore
}

func newGraphFixture(maxDepth int) *graphFixture {
	beliefs := memstore.NewBeliefStore()
	relationships := memstore.NewRelationshipStore()
	return &graphFixture{
		svc:           NewGraphService(beliefs, relationships, maxDepth, zap.NewNop()),
		beliefs:       beliefs,
		relationships: relationships,
	}
}

func (f *graphFixture) seedBelief(t *testing.T, agentID, statement string) *domain.Belief {
	t.Helper()
	b := &domain.Belief{
		AgentID:    agentID,
		Statement:  statement,
		Category:   domain.CategoryGeneral,
		Positive:   true,
		Confidence: 0.8,
	}
	if err := f.beliefs.Create(context.Background(), b); err != nil {
		t.Fatalf("seed belief: %v", err)
	}
	return b
}

func (f *graphFixture) link(t *testing.T, from, to uuid.UUID, typ domain.RelationshipType) *domain.BeliefRelationship {
	t.Helper()
	r := &domain.BeliefRelationship{
		SourceBeliefID: from,
		TargetBeliefID: to,
		Type:           typ,
		Strength:       0.8,
	}
	if err := f.svc.AddRelationship(context.Background(), r); err != nil {
		t.Fatalf("link %s: %v", typ, err)
	}
	return r
}

func TestAddRelationship_Validation(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	other := f.seedBelief(t, "a2", "c")

	now := time.Now()
	earlier := now.Add(-time.Hour)

	tests := []struct {
		name string
		rel  domain.BeliefRelationship
	}{
		{"self loop", domain.BeliefRelationship{
			SourceBeliefID: a.ID, TargetBeliefID: a.ID,
			Type: domain.RelSupports, Strength: 0.5,
		}},
		{"unknown type", domain.BeliefRelationship{
			SourceBeliefID: a.ID, TargetBeliefID: b.ID,
			Type: "frobnicates", Strength: 0.5,
		}},
		{"strength out of range", domain.BeliefRelationship{
			SourceBeliefID: a.ID, TargetBeliefID: b.ID,
			Type: domain.RelSupports, Strength: 1.5,
		}},
		{"inverted window", domain.BeliefRelationship{
			SourceBeliefID: a.ID, TargetBeliefID: b.ID,
			Type: domain.RelSupports, Strength: 0.5,
			EffectiveFrom: &now, EffectiveUntil: &earlier,
		}},
		{"cross agent", domain.BeliefRelationship{
			SourceBeliefID: a.ID, TargetBeliefID: other.ID,
			Type: domain.RelSupports, Strength: 0.5,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := tt.rel
			if err := f.svc.AddRelationship(ctx, &rel); !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	// Dangling endpoints are a not-found, not an input error.
	missing := domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: uuid.New(),
		Type: domain.RelSupports, Strength: 0.5,
	}
	if err := f.svc.AddRelationship(ctx, &missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for dangling target, got %v", err)
	}
}

func TestAddRelationship_DuplicateActiveEdge(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	f.link(t, a.ID, b.ID, domain.RelSupports)

	dup := &domain.BeliefRelationship{
		SourceBeliefID: a.ID, TargetBeliefID: b.ID,
		Type: domain.RelSupports, Strength: 0.9,
	}
	if err := f.svc.AddRelationship(ctx, dup); !errors.Is(err, store.ErrDuplicateEdge) {
		t.Errorf("expected ErrDuplicateEdge, got %v", err)
	}
}

func TestTraverse(t *testing.T) {
	f := newGraphFixture(3)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	c := f.seedBelief(t, "a1", "c")

	f.link(t, a.ID, b.ID, domain.RelSupports)
	f.link(t, b.ID, c.ID, domain.RelImplies)
	// Cycle back to the start; traversal must terminate.
	f.link(t, c.ID, a.ID, domain.RelRelatesTo)

	nodes, err := f.svc.Traverse(ctx, a.ID, 3, domain.DirectionOutgoing)
	if err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 reached nodes, got %d", len(nodes))
	}

	depths := make(map[uuid.UUID]int)
	for _, n := range nodes {
		if n.BeliefID == a.ID {
			t.Error("start node must not appear in the result")
		}
		depths[n.BeliefID] = n.Depth
	}
	if depths[b.ID] != 1 {
		t.Errorf("depth of b = %d, want 1", depths[b.ID])
	}
	if depths[c.ID] != 2 {
		t.Errorf("depth of c = %d, want 2", depths[c.ID])
	}

	// Depth 1 stops at the immediate neighbor.
	shallow, err := f.svc.Traverse(ctx, a.ID, 1, domain.DirectionOutgoing)
	if err != nil {
		t.Fatal(err)
	}
	if len(shallow) != 1 || shallow[0].BeliefID != b.ID {
		t.Errorf("depth-1 traversal = %+v, want just b", shallow)
	}

	if _, err := f.svc.Traverse(ctx, uuid.New(), 1, domain.DirectionOutgoing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown start, got %v", err)
	}
}

func TestTraverse_Direction(t *testing.T) {
	f := newGraphFixture(3)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	c := f.seedBelief(t, "a1", "c")

	// a -> b <- c: from b, each direction sees a different neighborhood.
	f.link(t, a.ID, b.ID, domain.RelSupports)
	f.link(t, c.ID, b.ID, domain.RelSupports)

	incoming, err := f.svc.Traverse(ctx, b.ID, 2, domain.DirectionIncoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(incoming) != 2 {
		t.Fatalf("incoming traversal reached %d nodes, want 2", len(incoming))
	}
	for _, n := range incoming {
		if n.Depth != 1 {
			t.Errorf("incoming neighbor %s at depth %d, want 1", n.BeliefID, n.Depth)
		}
	}

	outgoing, err := f.svc.Traverse(ctx, b.ID, 2, domain.DirectionOutgoing)
	if err != nil {
		t.Fatal(err)
	}
	if len(outgoing) != 0 {
		t.Errorf("outgoing traversal from a sink reached %d nodes, want 0", len(outgoing))
	}

	both, err := f.svc.Traverse(ctx, a.ID, 3, domain.DirectionBoth)
	if err != nil {
		t.Fatal(err)
	}
	if len(both) != 2 {
		t.Fatalf("bidirectional traversal reached %d nodes, want 2", len(both))
	}

	// Empty direction defaults to outgoing.
	defaulted, err := f.svc.Traverse(ctx, a.ID, 3, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(defaulted) != 1 || defaulted[0].BeliefID != b.ID {
		t.Errorf("defaulted traversal = %+v, want just b", defaulted)
	}

	if _, err := f.svc.Traverse(ctx, a.ID, 3, "sideways"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for unknown direction, got %v", err)
	}
}

func TestGetRelationships_EffectiveOnly(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	c := f.seedBelief(t, "a1", "c")

	past := time.Now().Add(-time.Hour)
	lapsed := &domain.BeliefRelationship{
		SourceBeliefID: a.ID,
		TargetBeliefID: b.ID,
		Type:           domain.RelSupports,
		Strength:       0.5,
		EffectiveUntil: &past,
	}
	if err := f.svc.AddRelationship(ctx, lapsed); err != nil {
		t.Fatal(err)
	}
	open := f.link(t, a.ID, c.ID, domain.RelSupports)

	all, err := f.svc.GetRelationships(ctx, a.ID, domain.DirectionOutgoing, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(all))
	}

	effective, err := f.svc.GetRelationships(ctx, a.ID, domain.DirectionOutgoing, false, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(effective) != 1 || effective[0].ID != open.ID {
		t.Fatalf("effective edges = %+v, want just the open-window edge", effective)
	}
}

func TestShortestPath(t *testing.T) {
	f := newGraphFixture(3)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	c := f.seedBelief(t, "a1", "c")
	isolated := f.seedBelief(t, "a1", "d")

	f.link(t, a.ID, b.ID, domain.RelSupports)
	// Edge direction does not matter for reachability.
	f.link(t, c.ID, b.ID, domain.RelSupports)

	path, err := f.svc.ShortestPath(ctx, a.ID, c.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(path) != 2 {
		t.Fatalf("expected 2-edge path, got %d edges", len(path))
	}

	if _, err := f.svc.ShortestPath(ctx, a.ID, isolated.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unreachable target, got %v", err)
	}
	if _, err := f.svc.ShortestPath(ctx, a.ID, a.ID); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for identical endpoints, got %v", err)
	}
}

func TestDeprecateWith(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	old := f.seedBelief(t, "a1", "lives in Berlin")
	replacement := f.seedBelief(t, "a1", "lives in Oslo")

	if err := f.svc.DeprecateWith(ctx, old.ID, replacement.ID, "agent moved"); err != nil {
		t.Fatal(err)
	}

	got, err := f.beliefs.GetByID(ctx, old.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Error("deprecated belief should be inactive")
	}

	deprecated, err := f.svc.FindDeprecatedBeliefs(ctx, "a1")
	if err != nil {
		t.Fatal(err)
	}
	if len(deprecated) != 1 {
		t.Fatalf("expected 1 deprecated belief, got %d", len(deprecated))
	}
	if deprecated[0].Belief.ID != old.ID {
		t.Error("wrong belief reported as deprecated")
	}
	if deprecated[0].SupersededByID != replacement.ID {
		t.Error("successor not recorded")
	}
	if deprecated[0].DeprecationReason != "agent moved" {
		t.Errorf("DeprecationReason = %q", deprecated[0].DeprecationReason)
	}

	if err := f.svc.DeprecateWith(ctx, old.ID, old.ID, "x"); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for self-supersede, got %v", err)
	}
}

func TestValidateIntegrity(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	a := f.seedBelief(t, "a1", "a")
	b := f.seedBelief(t, "a1", "b")
	edge := f.link(t, a.ID, b.ID, domain.RelSupports)

	issues, err := f.svc.ValidateIntegrity(ctx, "a1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected clean graph, got %+v", issues)
	}

	// Hard-delete an endpoint out from under the edge.
	if err := f.beliefs.Archive(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if err := f.beliefs.Delete(ctx, b.ID); err != nil {
		t.Fatal(err)
	}

	issues, err = f.svc.ValidateIntegrity(ctx, "a1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].RelationshipID == nil || *issues[0].RelationshipID != edge.ID || issues[0].Repaired {
		t.Errorf("unexpected issue %+v", issues[0])
	}

	// With repair on, the dangling edge is deactivated.
	issues, err = f.svc.ValidateIntegrity(ctx, "a1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || !issues[0].Repaired {
		t.Fatalf("expected repaired issue, got %+v", issues)
	}

	got, err := f.relationships.GetByID(ctx, edge.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Active {
		t.Error("repaired edge should be inactive")
	}

	// A rescan sees no active edges left.
	issues, err = f.svc.ValidateIntegrity(ctx, "a1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues after repair, got %+v", issues)
	}
}

func TestValidateIntegrity_OrphanedInactiveBelief(t *testing.T) {
	f := newGraphFixture(0)
	ctx := context.Background()

	orphan := f.seedBelief(t, "a1", "lives in Berlin")
	deprecated := f.seedBelief(t, "a1", "works at Initech")
	successor := f.seedBelief(t, "a1", "works at Initrode")

	// A proper deprecation leaves a supersedes edge behind.
	if err := f.svc.DeprecateWith(ctx, deprecated.ID, successor.ID, "changed jobs"); err != nil {
		t.Fatal(err)
	}

	// Deactivate the other belief with no trail at all.
	orphan.Active = false
	if err := f.beliefs.Update(ctx, orphan); err != nil {
		t.Fatal(err)
	}

	issues, err := f.svc.ValidateIntegrity(ctx, "a1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %+v", issues)
	}
	if issues[0].BeliefID == nil || *issues[0].BeliefID != orphan.ID {
		t.Errorf("flagged belief = %v, want %s", issues[0].BeliefID, orphan.ID)
	}
	if issues[0].Repaired {
		t.Error("issue should not be repaired on a dry run")
	}

	// Repair reactivates the orphan but leaves the deprecated belief alone.
	issues, err = f.svc.ValidateIntegrity(ctx, "a1", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 1 || !issues[0].Repaired {
		t.Fatalf("expected repaired issue, got %+v", issues)
	}

	restored, err := f.beliefs.GetByID(ctx, orphan.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !restored.Active {
		t.Error("orphaned belief should be reactivated by repair")
	}
	still, err := f.beliefs.GetByID(ctx, deprecated.ID)
	if err != nil {
		t.Fatal(err)
	}
	if still.Active {
		t.Error("properly deprecated belief must stay inactive")
	}

	issues, err = f.svc.ValidateIntegrity(ctx, "a1", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(issues) != 0 {
		t.Errorf("expected no issues after repair, got %+v", issues)
	}
}
