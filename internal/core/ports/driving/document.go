package driving

import (
	"context"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// DocumentService manages chunks in the index, scoped by ID prefix
type DocumentService interface {
	// AddDocs stores valid chunks and returns how many were stored.
	// Chunks with an empty ID or text are dropped.
	AddDocs(ctx context.Context, chunks []*domain.Chunk) (int, error)

	// GetDoc retrieves a chunk by ID
	GetDoc(ctx context.Context, id string) (*domain.Chunk, error)

	// UpdateDoc replaces a chunk
	UpdateDoc(ctx context.Context, chunk *domain.Chunk) error

	// DeleteDoc removes a chunk by ID
	DeleteDoc(ctx context.Context, id string) error

	// DeleteByPrefix removes every chunk whose ID starts with prefix.
	// An empty prefix is rejected.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)

	// Ingest replaces the whole prefix group of sourceID with chunks
	Ingest(ctx context.Context, sourceID string, chunks []*domain.Chunk) error

	// Clear removes every chunk and returns how many were removed
	Clear(ctx context.Context) (int, error)

	// ListIDs returns every chunk ID in the index
	ListIDs(ctx context.Context) ([]string, error)
}
