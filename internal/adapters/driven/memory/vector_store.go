// Package memory provides an in-process vector index.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Ensure VectorStore implements driven.VectorStore
var _ driven.VectorStore = (*VectorStore)(nil)

type entry struct {
	chunk  *domain.Chunk
	vector []float32
}

// VectorStore keeps chunks and their embeddings in memory and searches by
// exhaustive Euclidean distance. Contents are lost on restart.
type VectorStore struct {
	mu       sync.RWMutex
	entries  map[string]entry
	embedder driven.EmbeddingService
}

// NewVectorStore creates an empty in-memory vector store
func NewVectorStore(embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{
		entries:  make(map[string]entry),
		embedder: embedder,
	}
}

// Add embeds and upserts chunks by ID
func (s *VectorStore) Add(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range chunks {
		s.entries[c.ID] = entry{chunk: cloneChunk(c), vector: vectors[i]}
	}
	return nil
}

// SimilaritySearch returns up to k chunks ordered by ascending distance
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	s.mu.RLock()
	results := make([]domain.ScoredChunk, 0, len(s.entries))
	for _, e := range s.entries {
		results = append(results, domain.ScoredChunk{
			Chunk:    cloneChunk(e.chunk),
			Distance: euclidean(qv, e.vector),
		})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].Chunk.ID < results[j].Chunk.ID
		}
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns the chunks that exist among ids, in request order
func (s *VectorStore) Get(ctx context.Context, ids []string) ([]*domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Chunk, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out = append(out, cloneChunk(e.chunk))
		}
	}
	return out, nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

// ListIDs returns all stored IDs in sorted order
func (s *VectorStore) ListIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// HealthCheck reports the embedder's health
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.embedder.HealthCheck(ctx)
}

// euclidean returns the L2 distance. Missing trailing dimensions count as zero.
func euclidean(a, b []float32) float64 {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		var x, y float64
		if i < len(a) {
			x = float64(a[i])
		}
		if i < len(b) {
			y = float64(b[i])
		}
		sum += (x - y) * (x - y)
	}
	return math.Sqrt(sum)
}

func cloneChunk(c *domain.Chunk) *domain.Chunk {
	cp := *c
	if c.Metadata != nil {
		cp.Metadata = make(map[string]any, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
