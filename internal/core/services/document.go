package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure documentService implements DocumentService
var _ driving.DocumentService = (*documentService)(nil)

// documentService implements the DocumentService interface
type documentService struct {
	store  driven.VectorStore
	logger *slog.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(store driven.VectorStore, logger *slog.Logger) driving.DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentService{
		store:  store,
		logger: logger,
	}
}

// AddDocs stores the valid chunks and drops the rest with a warning
func (s *documentService) AddDocs(ctx context.Context, chunks []*domain.Chunk) (int, error) {
	valid := make([]*domain.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if c.IsValid() {
			valid = append(valid, withDefaultMetadata(c, "default"))
		}
	}

	if filtered := len(chunks) - len(valid); filtered > 0 {
		s.logger.Warn("dropped invalid documents",
			"filtered", filtered,
			"requested", len(chunks),
			"accepted", len(valid))
	}
	if len(valid) == 0 {
		return 0, nil
	}

	if err := s.store.Add(ctx, valid); err != nil {
		return 0, fmt.Errorf("add documents: %w", err)
	}
	return len(valid), nil
}

// GetDoc retrieves a chunk by ID
func (s *documentService) GetDoc(ctx context.Context, id string) (*domain.Chunk, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}

	chunks, err := s.store.Get(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	if len(chunks) == 0 {
		return nil, domain.ErrNotFound
	}
	return chunks[0], nil
}

// UpdateDoc replaces a chunk by deleting and re-adding it
func (s *documentService) UpdateDoc(ctx context.Context, chunk *domain.Chunk) error {
	if chunk == nil || strings.TrimSpace(chunk.ID) == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	if chunk.Text == "" {
		return fmt.Errorf("%w: document text is required", domain.ErrInvalidInput)
	}

	if err := s.store.Delete(ctx, []string{chunk.ID}); err != nil {
		return fmt.Errorf("update document %s: %w", chunk.ID, err)
	}
	if err := s.store.Add(ctx, []*domain.Chunk{withDefaultMetadata(chunk, "updated")}); err != nil {
		return fmt.Errorf("update document %s: %w", chunk.ID, err)
	}
	return nil
}

// DeleteDoc removes a chunk by ID
func (s *documentService) DeleteDoc(ctx context.Context, id string) error {
	if _, err := s.GetDoc(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, []string{id}); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// DeleteByPrefix removes every chunk whose ID starts with prefix
func (s *documentService) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	if strings.TrimSpace(prefix) == "" {
		return 0, fmt.Errorf("%w: prefix must not be empty", domain.ErrInvalidInput)
	}

	return s.deleteMatching(ctx, func(id string) bool {
		return strings.HasPrefix(id, prefix)
	})
}

// Ingest replaces the prefix group of sourceID. The old group is deleted
// before the new chunks are added, so readers briefly see no chunks for
// the source. There is no rollback if the add fails.
func (s *documentService) Ingest(ctx context.Context, sourceID string, chunks []*domain.Chunk) error {
	if strings.TrimSpace(sourceID) == "" {
		return fmt.Errorf("%w: source id is required", domain.ErrInvalidInput)
	}
	for _, c := range chunks {
		if c.IsValid() && c.Prefix() != sourceID {
			return fmt.Errorf("%w: chunk %s does not belong to source %s", domain.ErrInvalidInput, c.ID, sourceID)
		}
	}

	removed, err := s.deleteMatching(ctx, func(id string) bool {
		return domain.PrefixOf(id) == sourceID
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", sourceID, err)
	}

	added, err := s.AddDocs(ctx, chunks)
	if err != nil {
		return fmt.Errorf("ingest %s: %w", sourceID, err)
	}

	s.logger.Info("ingested source", "source_id", sourceID, "removed", removed, "added", added)
	return nil
}

// Clear removes every chunk
func (s *documentService) Clear(ctx context.Context) (int, error) {
	return s.deleteMatching(ctx, func(string) bool { return true })
}

// ListIDs returns every chunk ID in the index
func (s *documentService) ListIDs(ctx context.Context) ([]string, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ids: %w", err)
	}
	return ids, nil
}

func (s *documentService) deleteMatching(ctx context.Context, match func(id string) bool) (int, error) {
	ids, err := s.store.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list ids: %w", err)
	}

	var doomed []string
	for _, id := range ids {
		if match(id) {
			doomed = append(doomed, id)
		}
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	if err := s.store.Delete(ctx, doomed); err != nil {
		return 0, fmt.Errorf("delete %d documents: %w", len(doomed), err)
	}
	return len(doomed), nil
}

// withDefaultMetadata returns c, or a copy carrying {"source": source} when
// c has no metadata.
func withDefaultMetadata(c *domain.Chunk, source string) *domain.Chunk {
	if len(c.Metadata) > 0 {
		return c
	}
	cp := *c
	cp.Metadata = map[string]any{"source": source}
	return &cp
}
