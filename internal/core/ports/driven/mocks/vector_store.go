package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Ensure MockVectorStore implements VectorStore
var _ driven.VectorStore = (*MockVectorStore)(nil)

// MockVectorStore is an in-memory VectorStore for testing.
// Distances come from DistanceFn, or from SetSearchResults when preset.
type MockVectorStore struct {
	mu     sync.RWMutex
	chunks map[string]*domain.Chunk

	// DistanceFn scores a stored chunk against a query. Defaults to the
	// number of query words missing from the chunk text.
	DistanceFn func(query string, chunk *domain.Chunk) float64

	// Error injection
	AddErr    error
	SearchErr error
	GetErr    error
	DeleteErr error
	ListErr   error

	preset      []domain.ScoredChunk
	searchCalls int
	lastK       int
}

// NewMockVectorStore creates a new MockVectorStore
func NewMockVectorStore() *MockVectorStore {
	return &MockVectorStore{
		chunks: make(map[string]*domain.Chunk),
	}
}

func (m *MockVectorStore) Add(ctx context.Context, chunks []*domain.Chunk) error {
	if m.AddErr != nil {
		return m.AddErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	return nil
}

func (m *MockVectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	m.mu.Lock()
	m.searchCalls++
	m.lastK = k
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.preset != nil {
		out := make([]domain.ScoredChunk, len(m.preset))
		copy(out, m.preset)
		return out, nil
	}

	distance := m.DistanceFn
	if distance == nil {
		distance = missingWords
	}

	results := make([]domain.ScoredChunk, 0, len(m.chunks))
	for _, c := range m.chunks {
		results = append(results, domain.ScoredChunk{Chunk: c, Distance: distance(query, c)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance == results[j].Distance {
			return results[i].Chunk.ID < results[j].Chunk.ID
		}
		return results[i].Distance < results[j].Distance
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorStore) Get(ctx context.Context, ids []string) ([]*domain.Chunk, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*domain.Chunk
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *MockVectorStore) Delete(ctx context.Context, ids []string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.chunks, id)
	}
	return nil
}

func (m *MockVectorStore) ListIDs(ctx context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.chunks))
	for id := range m.chunks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MockVectorStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Helper methods for testing

// SetSearchResults makes SimilaritySearch return results verbatim
func (m *MockVectorStore) SetSearchResults(results []domain.ScoredChunk) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preset = results
}

// SearchCalls returns how many times SimilaritySearch was called
func (m *MockVectorStore) SearchCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.searchCalls
}

// LastK returns the k passed to the most recent SimilaritySearch
func (m *MockVectorStore) LastK() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastK
}

// Count returns the number of stored chunks
func (m *MockVectorStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.chunks)
}

// CountPrefix returns the number of stored chunks whose ID starts with prefix
func (m *MockVectorStore) CountPrefix(prefix string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for id := range m.chunks {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	return n
}

func missingWords(query string, chunk *domain.Chunk) float64 {
	text := strings.ToLower(chunk.Text)
	missing := 0
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if !strings.Contains(text, w) {
			missing++
		}
	}
	return float64(missing)
}
