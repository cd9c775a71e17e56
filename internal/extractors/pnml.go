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
var _ driven.DiagramExtractor = (*PNMLExtractor)(nil)

var pnmlStructuralWords = []string{
	"place", "transition", "arc", "token", "start", "end", "split", "join", "and", "xor",
}

// PNMLExtractor pulls labels out of Petri Net Markup Language documents.
type PNMLExtractor struct {
	logger *slog.Logger
	filter termFilter
}

// NewPNMLExtractor creates a PNML extractor.
func NewPNMLExtractor(logger *slog.Logger) *PNMLExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PNMLExtractor{
		logger: logger,
		filter: newTermFilter(pnmlIDPatterns, pnmlStructuralWords),
	}
}

// DiagramType returns "PNML".
func (e *PNMLExtractor) DiagramType() string {
	return "PNML"
}

// CanProcess checks for a pnml root in an XML document.
func (e *PNMLExtractor) CanProcess(diagram string) bool {
	return looksLikeXML(diagram) && strings.Contains(diagram, "<pnml")
}

// ExtractTerms returns the bodies of <name><text> elements followed by any
// name attributes.
func (e *PNMLExtractor) ExtractTerms(diagram string) ([]string, error) {
	dec := newDecoder(diagram)

	var (
		labels    []string
		attrNames []string
		stack     []string
		text      strings.Builder
		inLabel   bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			if isMalformed(err) {
				e.logger.Error("failed to parse PNML diagram", "error", err)
				return []string{}, nil
			}
			return nil, fmt.Errorf("%w: pnml: %v", domain.ErrTermExtraction, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := strings.ToLower(t.Name.Local)
			if local == "text" && len(stack) > 0 && stack[len(stack)-1] == "name" {
				inLabel = true
				text.Reset()
			}
			stack = append(stack, local)
			if name := strings.TrimSpace(nameAttr(t)); name != "" {
				attrNames = append(attrNames, name)
			}
		case xml.CharData:
			if inLabel {
				text.Write(t)
			}
		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			if inLabel && strings.EqualFold(t.Name.Local, "text") {
				inLabel = false
				if label := strings.TrimSpace(text.String()); label != "" {
					labels = append(labels, label)
				}
			}
		}
	}

	e.logger.Debug("extracted PNML terms", "labels", len(labels), "name_attributes", len(attrNames))

	return append(labels, attrNames...), nil
}

// FilterTechnicalTerms drops node IDs, coordinates, numbers and tool boilerplate.
func (e *PNMLExtractor) FilterTechnicalTerms(terms []string) []string {
	return e.filter.technical(terms)
}

// FilterStructuralTerms drops Petri net vocabulary such as place or arc.
func (e *PNMLExtractor) FilterStructuralTerms(terms []string) []string {
	return e.filter.structuralTerms(terms)
}
