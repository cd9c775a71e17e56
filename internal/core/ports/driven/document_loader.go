package driven

import (
	"context"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// DocumentLoader reads source files from disk.
type DocumentLoader interface {
	// ListFiles returns the loadable files directly inside dir, sorted by name.
	// Returns domain.ErrNotFound if dir does not exist.
	ListFiles(dir string) ([]string, error)

	// Load extracts the text of every page of a file
	Load(ctx context.Context, path string) ([]domain.Page, error)
}

// TextSplitter cuts page text into overlapping segments sized for embedding.
type TextSplitter interface {
	Split(pages []domain.Page) []domain.Segment
}
