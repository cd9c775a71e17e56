package extractors

import (
	"log/slog"
	"sync"

	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ExtractorRegistry = (*Registry)(nil)

// Registry implements ExtractorRegistry with first-match selection.
// Extractors are consulted in the order they were registered.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.DiagramExtractor
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]driven.DiagramExtractor, 0),
	}
}

// Register appends an extractor.
func (r *Registry) Register(extractor driven.DiagramExtractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, extractor)
}

// Find returns the first extractor whose CanProcess accepts the diagram.
// Returns nil if none does, including on a nil registry.
func (r *Registry) Find(diagram string) driven.DiagramExtractor {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.extractors {
		if e.CanProcess(diagram) {
			return e
		}
	}
	return nil
}

// List returns the registered diagram types in registration order.
func (r *Registry) List() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		types[i] = e.DiagramType()
	}
	return types
}

// DefaultRegistry creates a registry with the BPMN and PNML extractors.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry()

	r.Register(NewBPMNExtractor(logger))
	r.Register(NewPNMLExtractor(logger))

	return r
}
