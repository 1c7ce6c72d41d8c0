package extraction

import (
	"context"
	"math"

	"github.com/credohq/credo/internal/domain"
	"go.uber.org/zap"
)

// VectorExtractor decorates another extractor with embedding-based
// similarity. Extraction is delegated; Similarity embeds both statements and
// returns cosine similarity, falling back to the inner extractor's lexical
// score when the embedding client fails or is absent.
type VectorExtractor struct {
	inner     Extractor
	embedding domain.EmbeddingClient
	logger    *zap.Logger
}

func NewVectorExtractor(inner Extractor, embedding domain.EmbeddingClient, logger *zap.Logger) *VectorExtractor {
	return &VectorExtractor{inner: inner, embedding: embedding, logger: logger}
}

func (e *VectorExtractor) Extract(ctx context.Context, content, agentID string, category domain.BeliefCategory) []ExtractedBelief {
	return e.inner.Extract(ctx, content, agentID, category)
}

func (e *VectorExtractor) Similarity(ctx context.Context, a, b string) float64 {
	if e.embedding == nil {
		return e.inner.Similarity(ctx, a, b)
	}

	va, err := e.embedding.Embed(ctx, a)
	if err != nil {
		e.logger.Debug("embedding failed, falling back to lexical similarity", zap.Error(err))
		return e.inner.Similarity(ctx, a, b)
	}
	vb, err := e.embedding.Embed(ctx, b)
	if err != nil {
		e.logger.Debug("embedding failed, falling back to lexical similarity", zap.Error(err))
		return e.inner.Similarity(ctx, a, b)
	}

	sim, ok := CosineSimilarity(va, vb)
	if !ok {
		return e.inner.Similarity(ctx, a, b)
	}
	// Cosine lands in [-1,1]; clamp the (rare) negative side to zero so the
	// contract stays [0,1].
	return domain.ClampConfidence(sim)
}

// CosineSimilarity returns the cosine of two vectors and whether it is
// defined (equal nonzero lengths, nonzero norms).
func CosineSimilarity(a, b []float32) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
