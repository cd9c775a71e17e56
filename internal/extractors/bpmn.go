package extractors

import (
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DiagramExtractor = (*BPMNExtractor)(nil)

var bpmnStructuralWords = []string{
	"start", "end", "gateway", "sequence", "flow", "startevent", "endevent", "fork", "merge",
}

// BPMNExtractor pulls element names out of BPMN 2.0 XML.
// Participant and lane names come first since they describe the
// organisation, which separates processes better than task verbs do.
type BPMNExtractor struct {
	logger *slog.Logger
	filter termFilter
}

// NewBPMNExtractor creates a BPMN extractor.
func NewBPMNExtractor(logger *slog.Logger) *BPMNExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &BPMNExtractor{
		logger: logger,
		filter: newTermFilter(nil, bpmnStructuralWords),
	}
}

// DiagramType returns "BPMN".
func (e *BPMNExtractor) DiagramType() string {
	return "BPMN"
}

// CanProcess checks for BPMN markers in an XML document.
func (e *BPMNExtractor) CanProcess(diagram string) bool {
	if !looksLikeXML(diagram) {
		return false
	}
	return strings.Contains(diagram, "<bpmn:") ||
		strings.Contains(diagram, "<bpmn2:") ||
		strings.Contains(diagram, "<definitions")
}

// ExtractTerms returns every name attribute: participants, then lanes, then
// all other elements in document order.
func (e *BPMNExtractor) ExtractTerms(diagram string) ([]string, error) {
	dec := newDecoder(diagram)

	var participants, lanes, others []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isMalformed(err) {
				e.logger.Error("failed to parse BPMN diagram", "error", err)
				return []string{}, nil
			}
			return nil, fmt.Errorf("%w: bpmn: %v", domain.ErrTermExtraction, err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		name := strings.TrimSpace(nameAttr(el))
		if name == "" {
			continue
		}

		switch strings.ToLower(el.Name.Local) {
		case "participant":
			participants = append(participants, name)
		case "lane":
			lanes = append(lanes, name)
		default:
			others = append(others, name)
		}
	}

	terms := make([]string, 0, len(participants)+len(lanes)+len(others))
	terms = append(terms, participants...)
	terms = append(terms, lanes...)
	terms = append(terms, others...)

	e.logger.Debug("extracted BPMN terms",
		"participants", len(participants),
		"lanes", len(lanes),
		"other", len(others))

	return terms, nil
}

// FilterTechnicalTerms drops IDs, numbers and tool boilerplate.
func (e *BPMNExtractor) FilterTechnicalTerms(terms []string) []string {
	return e.filter.technical(terms)
}

// FilterStructuralTerms drops BPMN vocabulary such as gateway or flow.
func (e *BPMNExtractor) FilterStructuralTerms(terms []string) []string {
	return e.filter.structuralTerms(terms)
}
