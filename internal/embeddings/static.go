package embeddings

import (
	"context"
	"hash/fnv"
	"math"
)

// StaticProvider is a deterministic in-memory embedding provider for tests
// and offline development. It derives a unit vector from a text's FNV hash
// rather than calling out to a model, so identical text always yields the
// same vector and embedding-dependent code can be exercised without a live
// TEI endpoint.
type StaticProvider struct {
	dimension int
}

// NewStaticProvider returns a StaticProvider producing vectors of the given
// dimension.
func NewStaticProvider(dimension int) *StaticProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &StaticProvider{dimension: dimension}
}

// Dimension returns the configured vector length.
func (p *StaticProvider) Dimension() int {
	return p.dimension
}

// Close is a no-op.
func (p *StaticProvider) Close() error {
	return nil
}

// EmbedDocuments returns one deterministic vector per text.
func (p *StaticProvider) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, &EmbeddingError{Kind: ErrorKindInvalidInput, Op: "embed_documents", Err: ErrEmptyInput}
	}
	vectors := make([][]float32, len(texts))
	for i, t := range texts {
		vectors[i] = p.vectorFor(t)
	}
	return vectors, nil
}

// EmbedQuery returns a deterministic vector for a single text.
func (p *StaticProvider) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, &EmbeddingError{Kind: ErrorKindInvalidInput, Op: "embed_query", Err: ErrEmptyInput}
	}
	return p.vectorFor(text), nil
}

// vectorFor expands a text's FNV-1a hash into a seeded pseudo-random unit
// vector. Not cryptographically meaningful — only used to give tests stable,
// distinguishable embeddings without a model.
func (p *StaticProvider) vectorFor(text string) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, p.dimension)
	state := seed
	var sumSquares float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		v := float32(int32(state>>32)) / float32(math.MaxInt32)
		vec[i] = v
		sumSquares += float64(v) * float64(v)
	}

	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
