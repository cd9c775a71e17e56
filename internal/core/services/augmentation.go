package services

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
)

// Ensure augmentationService implements AugmentationService
var _ driving.AugmentationService = (*augmentationService)(nil)

// DefaultPromptTemplate is the enrichment template. Slots: .Prompt,
// .Instruction and .Context.
const DefaultPromptTemplate = "{{.Prompt}}\n\n{{.Instruction}}\n\nKontext:\n{{.Context}}\n\nAntwort:"

// AugmentationConfig configures prompt enrichment
type AugmentationConfig struct {
	// Instruction is appended for the language model; may be empty
	Instruction string

	// Template overrides DefaultPromptTemplate
	Template string

	Logger *slog.Logger
}

// promptSlots is the data handed to the prompt template
type promptSlots struct {
	Prompt      string
	Instruction string
	Context     string
}

// augmentationService implements the AugmentationService interface
type augmentationService struct {
	instruction string
	tmpl        *template.Template
	logger      *slog.Logger
}

// NewAugmentationService creates a new AugmentationService.
// A template that does not parse is logged and every request then uses
// the plain-text layout.
func NewAugmentationService(cfg AugmentationConfig) driving.AugmentationService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	text := cfg.Template
	if text == "" {
		text = DefaultPromptTemplate
	}

	tmpl, err := template.New("prompt").Option("missingkey=error").Parse(text)
	if err != nil {
		logger.Warn("invalid prompt template, using plain layout", "error", err)
		tmpl = nil
	}

	return &augmentationService{
		instruction: cfg.Instruction,
		tmpl:        tmpl,
		logger:      logger,
	}
}

// Augment merges the retrieved context into the prompt
func (s *augmentationService) Augment(state *domain.RequestState) (string, error) {
	if state == nil || strings.TrimSpace(state.Prompt) == "" {
		return "", fmt.Errorf("%w: prompt is required", domain.ErrInvalidInput)
	}
	if len(state.Context) == 0 {
		return state.Prompt, nil
	}

	slots := promptSlots{
		Prompt:      state.Prompt,
		Instruction: s.instruction,
		Context:     FormatContext(state.Context),
	}

	if s.tmpl != nil {
		var buf bytes.Buffer
		err := s.tmpl.Execute(&buf, slots)
		if err == nil {
			return buf.String(), nil
		}
		s.logger.Warn("prompt template failed, using plain layout", "error", err)
	}

	return plainPrompt(slots), nil
}

// FormatContext renders chunks as numbered "[Document i]" blocks separated
// by blank lines.
func FormatContext(chunks []*domain.Chunk) string {
	blocks := make([]string, 0, len(chunks))
	for _, c := range chunks {
		if c == nil {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("[Document %d]\n%s", len(blocks)+1, c.Text))
	}
	return strings.Join(blocks, "\n\n")
}

func plainPrompt(s promptSlots) string {
	return s.Prompt + "\n\n" + s.Instruction + "\n\nContext:\n" + s.Context
}
