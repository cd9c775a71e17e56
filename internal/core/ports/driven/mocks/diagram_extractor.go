package mocks

import "github.com/custodia-labs/diagram-rag/internal/core/ports/driven"

// Ensure MockDiagramExtractor implements DiagramExtractor
var _ driven.DiagramExtractor = (*MockDiagramExtractor)(nil)

// MockDiagramExtractor is a configurable DiagramExtractor.
// Unset hooks accept nothing, extract nothing and filter nothing.
type MockDiagramExtractor struct {
	diagramType string

	CanProcessFn       func(diagram string) bool
	ExtractTermsFn     func(diagram string) ([]string, error)
	FilterTechnicalFn  func(terms []string) []string
	FilterStructuralFn func(terms []string) []string
}

// NewMockDiagramExtractor creates a mock extractor reporting diagramType
func NewMockDiagramExtractor(diagramType string) *MockDiagramExtractor {
	return &MockDiagramExtractor{diagramType: diagramType}
}

func (m *MockDiagramExtractor) CanProcess(diagram string) bool {
	if m.CanProcessFn != nil {
		return m.CanProcessFn(diagram)
	}
	return false
}

func (m *MockDiagramExtractor) DiagramType() string {
	return m.diagramType
}

func (m *MockDiagramExtractor) ExtractTerms(diagram string) ([]string, error) {
	if m.ExtractTermsFn != nil {
		return m.ExtractTermsFn(diagram)
	}
	return []string{}, nil
}

func (m *MockDiagramExtractor) FilterTechnicalTerms(terms []string) []string {
	if m.FilterTechnicalFn != nil {
		return m.FilterTechnicalFn(terms)
	}
	return terms
}

func (m *MockDiagramExtractor) FilterStructuralTerms(terms []string) []string {
	if m.FilterStructuralFn != nil {
		return m.FilterStructuralFn(terms)
	}
	return terms
}
