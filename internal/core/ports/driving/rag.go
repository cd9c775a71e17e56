package driving

import (
	"context"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// QueryExtractionService turns a process diagram into a search string
type QueryExtractionService interface {
	// ExtractQuery returns the search string for a diagram. Input no
	// extractor recognises is returned unchanged.
	ExtractQuery(ctx context.Context, diagram string) (string, error)

	// FindExtractor returns the first extractor able to process the diagram, or nil
	FindExtractor(diagram string) driven.DiagramExtractor
}

// RetrievalService performs thresholded similarity retrieval
type RetrievalService interface {
	// Retrieve returns chunks strictly closer than the configured threshold,
	// ascending by distance and capped at the configured result count
	Retrieve(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}

// AugmentationService merges retrieved context into a prompt
type AugmentationService interface {
	// Augment builds the enriched prompt. With no context the prompt is
	// returned unchanged.
	Augment(state *domain.RequestState) (string, error)
}

// RAGService is the enrichment entry point used by the API and CLI
type RAGService interface {
	// ProcessRAGRequest runs extraction, retrieval and augmentation
	ProcessRAGRequest(ctx context.Context, prompt, diagram string) (string, error)

	// SearchDocs runs retrieval for a free-text query
	SearchDocs(ctx context.Context, query string) ([]domain.ScoredChunk, error)
}
