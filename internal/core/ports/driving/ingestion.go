package driving

import (
	"context"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// IngestionService loads source files into the index
type IngestionService interface {
	// IngestDocument splits one file and re-ingests it under sourceID.
	// Returns the number of chunks stored.
	IngestDocument(ctx context.Context, sourceID, filePath string) (int, error)

	// IngestDirectory ingests every file in dir, one at a time. A failing
	// file is recorded in the result and does not stop the batch.
	IngestDirectory(ctx context.Context, dir string) (*domain.BatchResult, error)

	// LoadStartupDocuments ingests the configured source directory, if any
	LoadStartupDocuments(ctx context.Context) (*domain.BatchResult, error)
}
