package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure retrievalService implements RetrievalService
var _ driving.RetrievalService = (*retrievalService)(nil)

// RetrievalConfig holds the process-wide relevance cutoff
type RetrievalConfig struct {
	// Threshold is the exclusive upper bound on accepted distances
	Threshold float64

	// ResultsCount caps the number of returned chunks
	ResultsCount int
}

// DefaultRetrievalConfig returns the THRESHOLD / RESULTS_COUNT defaults
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		Threshold:    25,
		ResultsCount: 4,
	}
}

// retrievalService implements the RetrievalService interface
type retrievalService struct {
	store  driven.VectorStore
	config RetrievalConfig
	logger *slog.Logger
}

// NewRetrievalService creates a new RetrievalService
func NewRetrievalService(store driven.VectorStore, cfg RetrievalConfig, logger *slog.Logger) driving.RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ResultsCount <= 0 {
		cfg.ResultsCount = DefaultRetrievalConfig().ResultsCount
	}
	return &retrievalService{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Retrieve searches the vector store and keeps results under the threshold
func (s *retrievalService) Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.ScoredChunk{}, nil
	}

	candidates, err := s.store.SimilaritySearch(ctx, query, s.config.ResultsCount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRetrieval, err)
	}

	results := make([]domain.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		if c.Chunk == nil || c.Distance >= s.config.Threshold {
			continue
		}
		results = append(results, c)
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > s.config.ResultsCount {
		results = results[:s.config.ResultsCount]
	}

	s.logger.Debug("retrieved context",
		"candidates", len(candidates),
		"accepted", len(results),
		"threshold", s.config.Threshold)

	return results, nil
}
