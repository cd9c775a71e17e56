package driven

import (
	"context"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// VectorStore is the semantic index the pipeline retrieves from.
// Implementations embed chunk text themselves, so callers only deal in
// chunks and query strings.
type VectorStore interface {
	// Add embeds and stores chunks. Existing IDs are overwritten.
	Add(ctx context.Context, chunks []*domain.Chunk) error

	// SimilaritySearch returns up to k chunks nearest to the query,
	// ascending by distance. No threshold is applied here.
	SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)

	// Get retrieves chunks by ID. Missing IDs are skipped, not errors.
	Get(ctx context.Context, ids []string) ([]*domain.Chunk, error)

	// Delete removes chunks by ID. Missing IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// ListIDs returns every chunk ID in the index
	ListIDs(ctx context.Context) ([]string, error)

	// HealthCheck verifies the backing store is reachable
	HealthCheck(ctx context.Context) error
}
