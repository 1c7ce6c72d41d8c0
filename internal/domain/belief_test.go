package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestClampConfidence(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := ClampConfidence(tt.in); got != tt.want {
			t.Errorf("ClampConfidence(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAddEvidence_Dedupes(t *testing.T) {
	b := &Belief{}
	id := uuid.New()
	b.AddEvidence(id)
	b.AddEvidence(id)
	b.AddEvidence(uuid.New())
	if len(b.EvidenceMemoryIDs) != 2 {
		t.Errorf("EvidenceMemoryIDs has %d entries, want 2", len(b.EvidenceMemoryIDs))
	}
}

func TestConfidenceBucket(t *testing.T) {
	tests := []struct {
		confidence float64
		want       string
	}{
		{0.95, "high"},
		{0.8, "high"},
		{0.79, "medium"},
		{0.5, "medium"},
		{0.49, "low"},
		{0, "low"},
	}
	for _, tt := range tests {
		if got := ConfidenceBucket(tt.confidence); got != tt.want {
			t.Errorf("ConfidenceBucket(%v) = %q, want %q", tt.confidence, got, tt.want)
		}
	}
}

func TestEffectiveAt(t *testing.T) {
	now := time.Now()
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	open := &BeliefRelationship{Active: true}
	if !open.EffectiveAt(now) {
		t.Error("edge with open window should be effective")
	}

	bounded := &BeliefRelationship{Active: true, EffectiveFrom: &from, EffectiveUntil: &until}
	if !bounded.EffectiveAt(now) {
		t.Error("edge should be effective inside its window")
	}
	if bounded.EffectiveAt(from.Add(-time.Minute)) {
		t.Error("edge should not be effective before its window")
	}
	// The upper bound is exclusive.
	if bounded.EffectiveAt(until) {
		t.Error("edge should not be effective at its end bound")
	}

	inactive := &BeliefRelationship{Active: false}
	if inactive.EffectiveAt(now) {
		t.Error("inactive edge is never effective")
	}
}

func TestValidRelationshipType(t *testing.T) {
	if !ValidRelationshipType("supersedes") {
		t.Error("supersedes should be valid")
	}
	if !ValidRelationshipType("custom") {
		t.Error("custom should be valid")
	}
	if ValidRelationshipType("frobnicates") {
		t.Error("unknown types should be rejected")
	}
}

func TestComputeBeliefStats(t *testing.T) {
	beliefs := []Belief{
		{Category: CategoryPreference, Confidence: 0.9, Active: true},
		{Category: CategoryPreference, Confidence: 0.6, Active: true},
		{Category: CategoryFact, Confidence: 0.3, Active: false},
	}
	stats := ComputeBeliefStats(beliefs)

	if stats.TotalBeliefs != 3 {
		t.Errorf("TotalBeliefs = %d, want 3", stats.TotalBeliefs)
	}
	if stats.ActiveBeliefs != 2 {
		t.Errorf("ActiveBeliefs = %d, want 2", stats.ActiveBeliefs)
	}
	if stats.HighConfidenceBeliefs != 1 {
		t.Errorf("HighConfidenceBeliefs = %d, want 1", stats.HighConfidenceBeliefs)
	}
	if stats.ByCategory[CategoryPreference] != 2 {
		t.Errorf("ByCategory[preference] = %d, want 2", stats.ByCategory[CategoryPreference])
	}
	// Averaged over active beliefs only.
	want := (0.9 + 0.6) / 2
	if diff := stats.AverageConfidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("AverageConfidence = %v, want %v", stats.AverageConfidence, want)
	}
	if stats.InactiveBeliefs != 1 {
		t.Errorf("InactiveBeliefs = %d, want 1", stats.InactiveBeliefs)
	}

	empty := ComputeBeliefStats(nil)
	if empty.TotalBeliefs != 0 || empty.AverageConfidence != 0 {
		t.Errorf("empty stats = %+v", empty)
	}
}
