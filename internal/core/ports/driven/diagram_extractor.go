package driven

// DiagramExtractor turns one process-diagram format into candidate search
// terms. Implementations are stateless.
type DiagramExtractor interface {
	// CanProcess reports whether the diagram is in this extractor's format.
	// Must return false, never panic, on empty or malformed input.
	CanProcess(diagram string) bool

	// DiagramType identifies the format in logs
	DiagramType() string

	// ExtractTerms returns the human-readable labels found in the diagram.
	// Malformed XML yields an empty slice and a nil error.
	ExtractTerms(diagram string) ([]string, error)

	// FilterTechnicalTerms normalises terms and drops IDs, numbers and
	// tool boilerplate.
	FilterTechnicalTerms(terms []string) []string

	// FilterStructuralTerms drops terms made of format vocabulary
	// (gateway, place, transition, ...).
	FilterStructuralTerms(terms []string) []string
}

// ExtractorRegistry holds extractors in registration order.
type ExtractorRegistry interface {
	// Register appends an extractor. Earlier registrations win.
	Register(extractor DiagramExtractor)

	// Find returns the first extractor that can process the diagram, or nil.
	Find(diagram string) DiagramExtractor

	// List returns the registered diagram types in order
	List() []string
}
