package ai

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"

	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Ensure HashEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*HashEmbedding)(nil)

const defaultHashDimensions = 512

// HashEmbedding maps text to a bag-of-words vector using feature hashing.
// Vectors are raw term counts, so the L2 distance between a short query and
// a long chunk grows with the words they do not share. It needs no network
// and is deterministic across processes.
type HashEmbedding struct {
	dimensions int
}

// NewHashEmbedding creates a hashing embedder. Non-positive dimensions use
// the default of 512.
func NewHashEmbedding(dimensions int) *HashEmbedding {
	if dimensions <= 0 {
		dimensions = defaultHashDimensions
	}
	return &HashEmbedding{dimensions: dimensions}
}

// Embed generates embeddings for multiple texts
func (e *HashEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

// EmbedQuery generates an embedding for a search query
func (e *HashEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.vector(query), nil
}

func (e *HashEmbedding) Dimensions() int { return e.dimensions }

func (e *HashEmbedding) Model() string { return "fnv-hash" }

func (e *HashEmbedding) HealthCheck(ctx context.Context) error { return nil }

func (e *HashEmbedding) Close() error { return nil }

func (e *HashEmbedding) vector(text string) []float32 {
	vec := make([]float32, e.dimensions)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dimensions)]++
	}
	return vec
}

// tokenize lowercases text and splits it on anything that is not a letter
// or digit.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
