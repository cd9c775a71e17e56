package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure ingestionService implements IngestionService
var _ driving.IngestionService = (*ingestionService)(nil)

const defaultIngestLockTTL = 5 * time.Minute

// IngestionConfig holds dependencies for the ingestion service
type IngestionConfig struct {
	Loader    driven.DocumentLoader
	Splitter  driven.TextSplitter
	Documents driving.DocumentService

	// Lock serialises re-ingestion of the same source across instances.
	// Optional.
	Lock    driven.DistributedLock
	LockTTL time.Duration

	// SourceDirectory is ingested by LoadStartupDocuments. Optional.
	SourceDirectory string

	Logger *slog.Logger
}

// ingestionService implements the IngestionService interface
type ingestionService struct {
	loader    driven.DocumentLoader
	splitter  driven.TextSplitter
	documents driving.DocumentService
	lock      driven.DistributedLock
	lockTTL   time.Duration
	sourceDir string
	logger    *slog.Logger
}

// NewIngestionService creates a new IngestionService
func NewIngestionService(cfg IngestionConfig) driving.IngestionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultIngestLockTTL
	}
	return &ingestionService{
		loader:    cfg.Loader,
		splitter:  cfg.Splitter,
		documents: cfg.Documents,
		lock:      cfg.Lock,
		lockTTL:   ttl,
		sourceDir: cfg.SourceDirectory,
		logger:    logger,
	}
}

// SourceIDFromPath derives the prefix of a file: its base name without extension
func SourceIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IngestDocument splits filePath and re-ingests it as sourceID
func (s *ingestionService) IngestDocument(ctx context.Context, sourceID, filePath string) (int, error) {
	if strings.TrimSpace(filePath) == "" {
		return 0, fmt.Errorf("%w: file path is required", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(sourceID) == "" {
		return 0, fmt.Errorf("%w: source id is required", domain.ErrInvalidInput)
	}

	release, err := s.acquire(ctx, sourceID)
	if err != nil {
		return 0, err
	}
	defer release()

	pages, err := s.loader.Load(ctx, filePath)
	if err != nil {
		return 0, fmt.Errorf("%w: load %s: %v", domain.ErrIngestion, filePath, err)
	}

	segments := s.splitter.Split(pages)
	if len(segments) == 0 {
		return 0, fmt.Errorf("%w: no text extracted from %s", domain.ErrIngestion, filepath.Base(filePath))
	}

	source := filepath.Base(filePath)
	chunks := make([]*domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = &domain.Chunk{
			ID:   domain.ChunkID(sourceID, i),
			Text: seg.Text,
			Metadata: map[string]any{
				"source": source,
				"page":   seg.Page,
				"prefix": sourceID,
			},
		}
	}

	if err := s.documents.Ingest(ctx, sourceID, chunks); err != nil {
		return 0, err
	}

	s.logger.Info("indexed document", "source_id", sourceID, "file", source, "pages", len(pages), "chunks", len(chunks))
	return len(chunks), nil
}

// IngestDirectory ingests every file in dir sequentially
func (s *ingestionService) IngestDirectory(ctx context.Context, dir string) (*domain.BatchResult, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: directory is required", domain.ErrInvalidInput)
	}

	files, err := s.loader.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	result := &domain.BatchResult{Errors: []domain.FileError{}}
	if len(files) == 0 {
		s.logger.Warn("no documents found", "directory", dir)
		return result, nil
	}

	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := s.IngestDocument(ctx, SourceIDFromPath(file), file)
		if err != nil {
			s.logger.Warn("failed to ingest file", "file", file, "error", err)
			result.AddError(filepath.Base(file), err)
			continue
		}
		result.Succeeded++
		result.Chunks += n
	}

	s.logger.Info("directory ingestion finished",
		"directory", dir,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
		"chunks", result.Chunks)

	return result, nil
}

// LoadStartupDocuments ingests the configured source directory
func (s *ingestionService) LoadStartupDocuments(ctx context.Context) (*domain.BatchResult, error) {
	if s.sourceDir == "" {
		s.logger.Info("no source directory configured, skipping startup ingestion")
		return &domain.BatchResult{Errors: []domain.FileError{}}, nil
	}
	return s.IngestDirectory(ctx, s.sourceDir)
}

// acquire takes the per-source lock and returns its release func
func (s *ingestionService) acquire(ctx context.Context, sourceID string) (func(), error) {
	if s.lock == nil {
		return func() {}, nil
	}

	name := "ingest:" + sourceID
	acquired, err := s.lock.Acquire(ctx, name, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: ingest lock: %v", domain.ErrServiceUnavailable, err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", domain.ErrIngestInProgress, sourceID)
	}

	return func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), name); err != nil {
			s.logger.Warn("failed to release ingest lock", "source_id", sourceID, "error", err)
		}
	}, nil
}
