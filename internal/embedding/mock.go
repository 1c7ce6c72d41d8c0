package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const mockDimensions = 64

// MockClient is a deterministic, offline embedding client. Vectors are built
// from hashed word buckets and L2-normalized, so identical texts embed
// identically and word overlap yields high cosine similarity. Suitable for
// tests and local development, not for semantic quality.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, mockDimensions)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,!?:;\"'")))
		vec[h.Sum32()%mockDimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}
