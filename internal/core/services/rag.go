package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure ragService implements RAGService
var _ driving.RAGService = (*ragService)(nil)

// RAGConfig holds dependencies for the enrichment facade
type RAGConfig struct {
	Extraction   driving.QueryExtractionService
	Retrieval    driving.RetrievalService
	Augmentation driving.AugmentationService

	// PreprocessingEnabled runs diagram extraction before retrieval.
	// When off the diagram text is used as the query as-is.
	PreprocessingEnabled bool

	Logger *slog.Logger
}

// ragService implements the RAGService interface
type ragService struct {
	extraction    driving.QueryExtractionService
	retrieval     driving.RetrievalService
	augmentation  driving.AugmentationService
	preprocessing bool
	logger        *slog.Logger
}

// NewRAGService creates a new RAGService
func NewRAGService(cfg RAGConfig) driving.RAGService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ragService{
		extraction:    cfg.Extraction,
		retrieval:     cfg.Retrieval,
		augmentation:  cfg.Augmentation,
		preprocessing: cfg.PreprocessingEnabled,
		logger:        logger,
	}
}

// ProcessRAGRequest runs extraction, retrieval and augmentation
func (s *ragService) ProcessRAGRequest(ctx context.Context, prompt, diagram string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}

	query := diagram
	if s.preprocessing && s.extraction != nil {
		extracted, err := s.extraction.ExtractQuery(ctx, diagram)
		if err != nil {
			return "", err
		}
		query = extracted
	}

	results, err := s.retrieval.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	state := &domain.RequestState{
		Prompt:  prompt,
		Query:   query,
		Context: make([]*domain.Chunk, 0, len(results)),
	}
	for _, r := range results {
		state.Context = append(state.Context, r.Chunk)
	}

	s.logger.Info("enriching prompt",
		"preprocessing", s.preprocessing,
		"query_length", len(query),
		"context_documents", len(state.Context))

	return s.augmentation.Augment(state)
}

// SearchDocs runs thresholded retrieval for a free-text query
func (s *ragService) SearchDocs(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	return s.retrieval.Retrieve(ctx, query)
}
