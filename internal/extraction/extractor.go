package extraction

import (
	"context"

	"github.com/credohq/credo/internal/domain"
)

// ExtractedBelief is a candidate belief statement produced from raw content.
// Positive carries the statement's polarity: negated statements are extracted
// with Positive=false rather than dropped, so conflict detection can compare
// polarity-normalized statements.
type ExtractedBelief struct {
	Statement  string
	AgentID    string
	Category   domain.BeliefCategory
	Confidence float64
	Positive   bool
	Tags       []string
}

// Extractor turns content into candidate belief statements and scores
// statement similarity. Implementations (pattern, statistical, model-backed)
// are interchangeable; the engine depends only on this contract.
//
// Similarity must be symmetric and return a value in [0,1].
type Extractor interface {
	Extract(ctx context.Context, content, agentID string, category domain.BeliefCategory) []ExtractedBelief
	Similarity(ctx context.Context, a, b string) float64
}
