package embedding

import (
	"context"
	"hash/fnv"
	"math"
)

// MockClient produces deterministic embeddings without network access.
// Identical input always yields the identical vector, which is all the
// embedding contract requires, so it is usable in tests and local dev.
type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (c *MockClient) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, Dimension)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence deterministic per seed
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float32(int64(seed%2001)-1000) / 1000
		vec[i] = v
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}
