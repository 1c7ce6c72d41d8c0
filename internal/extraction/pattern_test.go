package extraction

import (
	"context"
	"testing"

	"github.com/credohq/credo/internal/domain"
)

func TestPatternExtractor_Preference(t *testing.T) {
	e := NewPatternExtractor()
	ctx := context.Background()

	beliefs := e.Extract(ctx, "I love Italian food", "a1", "")
	if len(beliefs) == 0 {
		t.Fatal("expected at least one extracted belief")
	}

	var found *ExtractedBelief
	for i := range beliefs {
		if beliefs[i].Category == domain.CategoryPreference {
			found = &beliefs[i]
			break
		}
	}
	if found == nil {
		t.Fatal("expected a preference belief")
	}
	if found.Statement != "likes: italian food" {
		t.Errorf("Statement = %q, want %q", found.Statement, "likes: italian food")
	}
	if !found.Positive {
		t.Error("expected positive polarity")
	}
	if found.Confidence < 0.75 || found.Confidence > 0.85 {
		t.Errorf("Confidence = %v, want around 0.8", found.Confidence)
	}
	if found.AgentID != "a1" {
		t.Errorf("AgentID = %q, want a1", found.AgentID)
	}
}

func TestPatternExtractor_NegationFlipsPolarity(t *testing.T) {
	e := NewPatternExtractor()
	ctx := context.Background()

	beliefs := e.Extract(ctx, "I actually hate Italian food now", "a1", "")
	if len(beliefs) == 0 {
		t.Fatal("expected at least one extracted belief")
	}

	var found *ExtractedBelief
	for i := range beliefs {
		if beliefs[i].Category == domain.CategoryPreference {
			found = &beliefs[i]
			break
		}
	}
	if found == nil {
		t.Fatal("expected a preference belief")
	}
	if found.Positive {
		t.Error("expected negative polarity for a dislike")
	}
	// The dislike is normalized to the same statement form as a like, so
	// conflict detection can line the two up.
	if found.Statement != "likes: italian food now" {
		t.Errorf("Statement = %q, want %q", found.Statement, "likes: italian food now")
	}
}

func TestPatternExtractor_CertaintyMarkers(t *testing.T) {
	e := NewPatternExtractor()
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
		wantMin float64
		wantMax float64
	}{
		{"base", "i like sushi", 0.75, 0.85},
		{"certain", "i definitely like sushi", 0.9, 1.0},
		{"uncertain", "maybe i like sushi", 0.45, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			beliefs := e.Extract(ctx, tt.content, "a1", "")
			if len(beliefs) == 0 {
				t.Fatal("expected at least one extracted belief")
			}
			got := beliefs[0].Confidence
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("Confidence = %v, want within [%v,%v]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestPatternExtractor_CategoryOverride(t *testing.T) {
	e := NewPatternExtractor()
	beliefs := e.Extract(context.Background(), "I love hiking", "a1", domain.CategoryGeneral)
	if len(beliefs) == 0 {
		t.Fatal("expected at least one extracted belief")
	}
	for _, b := range beliefs {
		if b.Category != domain.CategoryGeneral {
			t.Errorf("Category = %q, want general (supplied category overrides the guess)", b.Category)
		}
	}
}

func TestPatternExtractor_FactAndLocation(t *testing.T) {
	e := NewPatternExtractor()
	ctx := context.Background()

	facts := e.Extract(ctx, "The sky is blue", "a1", "")
	var gotFact bool
	for _, b := range facts {
		if b.Category == domain.CategoryFact {
			gotFact = true
		}
	}
	if !gotFact {
		t.Error("expected a fact belief")
	}

	locations := e.Extract(ctx, "Alice lives in Berlin", "a1", "")
	var gotLocation bool
	for _, b := range locations {
		if b.Category == domain.CategoryLocation {
			gotLocation = true
		}
	}
	if !gotLocation {
		t.Error("expected a location belief")
	}
}

func TestPatternExtractor_EmptyContent(t *testing.T) {
	e := NewPatternExtractor()
	if got := e.Extract(context.Background(), "   ", "a1", ""); got != nil {
		t.Errorf("expected nil for blank content, got %v", got)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	e := NewPatternExtractor()
	ctx := context.Background()

	pairs := [][2]string{
		{"likes: italian food", "likes: italian food now"},
		{"fact: the sky is blue", "likes: sushi"},
		{"preference: favorite color is blue", "preference: favorite color is red"},
	}
	for _, p := range pairs {
		ab := e.Similarity(ctx, p[0], p[1])
		ba := e.Similarity(ctx, p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q,%q) = %v but reversed = %v", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("Similarity out of range: %v", ab)
		}
	}
}

func TestSimilarity_OppositePolaritySameTopic(t *testing.T) {
	e := NewPatternExtractor()
	// Negation tokens are excluded from the token sets, so a statement and
	// its negation about the same subject still score as the same topic.
	got := e.Similarity(context.Background(), "likes: italian food", "likes: italian food now")
	if got < 0.7 {
		t.Errorf("Similarity = %v, want >= 0.7 for same-topic statements", got)
	}
}

func TestSimilarity_Identical(t *testing.T) {
	e := NewPatternExtractor()
	if got := e.Similarity(context.Background(), "likes: sushi", "likes: sushi"); got != 1.0 {
		t.Errorf("Similarity of identical statements = %v, want 1.0", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
		ok   bool
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1, true},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, true},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, true},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0, false},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CosineSimilarity(tt.a, tt.b)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (got < tt.want-1e-9 || got > tt.want+1e-9) {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}
