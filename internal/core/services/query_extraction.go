package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure queryExtractionService implements QueryExtractionService
var _ driving.QueryExtractionService = (*queryExtractionService)(nil)

// element IDs such as p3 or t12 that survive into weighted queries once
var elementIDPattern = regexp.MustCompile(`^[pt]\d+$`)

// businessTermWeight is how often a business term is repeated when term
// weighting is enabled.
const businessTermWeight = 3

// QueryExtractionConfig holds dependencies for the query extraction service
type QueryExtractionConfig struct {
	Registry      driven.ExtractorRegistry
	FailurePolicy domain.ExtractionFailurePolicy
	TermWeighting bool
	Logger        *slog.Logger
}

// queryExtractionService implements the QueryExtractionService interface
type queryExtractionService struct {
	registry      driven.ExtractorRegistry
	policy        domain.ExtractionFailurePolicy
	termWeighting bool
	logger        *slog.Logger
}

// NewQueryExtractionService creates a new QueryExtractionService.
// An unset failure policy falls back to the raw diagram.
func NewQueryExtractionService(cfg QueryExtractionConfig) driving.QueryExtractionService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := cfg.FailurePolicy
	if !policy.IsValid() {
		policy = domain.ExtractionFallback
	}
	return &queryExtractionService{
		registry:      cfg.Registry,
		policy:        policy,
		termWeighting: cfg.TermWeighting,
		logger:        logger,
	}
}

// FindExtractor returns the first registered extractor that accepts the diagram
func (s *queryExtractionService) FindExtractor(diagram string) driven.DiagramExtractor {
	if s.registry == nil {
		return nil
	}
	return s.registry.Find(diagram)
}

// ExtractQuery turns a diagram into a search string
func (s *queryExtractionService) ExtractQuery(ctx context.Context, diagram string) (string, error) {
	extractor := s.FindExtractor(diagram)
	if extractor == nil {
		s.logger.Debug("no extractor matched, using input as query", "length", len(diagram))
		return diagram, nil
	}

	diagramType := extractor.DiagramType()

	terms, err := extractor.ExtractTerms(diagram)
	if err != nil {
		if !errors.Is(err, domain.ErrTermExtraction) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrTermExtraction, diagramType, err)
		}
		s.logger.Error("term extraction failed",
			"diagram_type", diagramType,
			"policy", string(s.policy),
			"error", err)
		if s.policy == domain.ExtractionPropagate {
			return "", err
		}
		return diagram, nil
	}

	technical := extractor.FilterTechnicalTerms(terms)
	final := extractor.FilterStructuralTerms(technical)

	s.logger.Info("extracted query terms",
		"diagram_type", diagramType,
		"extracted", len(terms),
		"filtered", len(technical),
		"final", len(final),
		"excluded_structural", len(technical)-len(final))

	return s.assemble(final), nil
}

// assemble joins terms with single spaces, repeating business terms when
// term weighting is enabled.
func (s *queryExtractionService) assemble(terms []string) string {
	if !s.termWeighting {
		return strings.Join(terms, " ")
	}

	weighted := make([]string, 0, len(terms)*businessTermWeight)
	for _, term := range terms {
		n := businessTermWeight
		if elementIDPattern.MatchString(term) {
			n = 1
		}
		for i := 0; i < n; i++ {
			weighted = append(weighted, term)
		}
	}
	return strings.Join(weighted, " ")
}
