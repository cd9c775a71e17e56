package postprocessors

import (
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.TextSplitter = (*Pipeline)(nil)

// Processor transforms segments. Processors form a pipeline:
// WhitespaceNormalizer -> Chunker -> Deduplicator.
type Processor interface {
	// Process receives one segment per page for the first processor and the
	// previous stage's output afterwards.
	Process(segments []domain.Segment) []domain.Segment

	// Name returns the processor name for logging/debugging.
	Name() string

	// Order returns the position in the pipeline (lower = earlier).
	Order() int
}

// Pipeline implements TextSplitter by chaining processors in order.
type Pipeline struct {
	mu         sync.RWMutex
	processors []Processor
	sorted     bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]Processor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor Processor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Split runs every page through the processors and numbers the surviving
// segments consecutively across the whole document.
func (p *Pipeline) Split(pages []domain.Page) []domain.Segment {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	processors := make([]Processor, len(p.processors))
	copy(processors, p.processors)
	p.mu.Unlock()

	segments := make([]domain.Segment, 0, len(pages))
	for _, page := range pages {
		segments = append(segments, domain.Segment{Text: page.Text, Page: page.Number})
	}

	for _, proc := range processors {
		segments = proc.Process(segments)
	}

	result := make([]domain.Segment, 0, len(segments))
	for _, s := range segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		s.Position = len(result)
		result = append(result, s)
	}
	return result
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates the splitter used for PDF ingestion.
func DefaultPipeline(config ChunkConfig) *Pipeline {
	p := NewPipeline()
	p.Add(NewWhitespaceNormalizer())
	p.Add(NewChunker(config))
	p.Add(NewDeduplicator(DefaultDeduplicatorConfig()))
	return p
}

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap between consecutive chunks
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool
}

// DefaultChunkConfig returns the CHUNK_SIZE / CHUNK_OVERLAP defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:       150,
		Overlap:            50,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// Chunker splits page text into overlapping segments.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ Processor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
func NewChunker(config ChunkConfig) *Chunker {
	if config.MaxChunkSize <= 0 {
		config.MaxChunkSize = DefaultChunkConfig().MaxChunkSize
	}
	if config.Overlap < 0 || config.Overlap >= config.MaxChunkSize {
		config.Overlap = 0
	}
	return &Chunker{config: config}
}

// Process splits each segment; pieces keep the page of their source.
func (c *Chunker) Process(segments []domain.Segment) []domain.Segment {
	var result []domain.Segment
	for _, seg := range segments {
		for _, text := range c.split(seg.Text) {
			result = append(result, domain.Segment{Text: text, Page: seg.Page})
		}
	}
	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 10 - chunker runs after whitespace normalisation.
func (c *Chunker) Order() int {
	return 10
}

// split cuts content into overlapping pieces. Sizes and offsets count
// characters (runes), not bytes.
func (c *Chunker) split(content string) []string {
	runes := []rune(content)
	if len(runes) <= c.config.MaxChunkSize {
		return []string{content}
	}

	var pieces []string
	start := 0

	for start < len(runes) {
		end := start + c.config.MaxChunkSize
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) && (c.config.PreserveSentences || c.config.PreserveParagraphs) {
			// a break point inside the overlap would stall progress
			if bp := c.findBreakPoint(runes, start, end); bp > start+c.config.Overlap {
				end = bp
			}
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end - c.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		start = nextStart
	}

	return pieces
}

// findBreakPoint returns the rune offset of the last paragraph, sentence or
// word break in the 100 characters before maxEnd, or maxEnd if none.
func (c *Chunker) findBreakPoint(runes []rune, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	window := string(runes[searchStart:maxEnd])
	at := func(byteIdx int) int {
		return searchStart + utf8.RuneCountInString(window[:byteIdx])
	}

	if c.config.PreserveParagraphs {
		if idx := strings.LastIndex(window, "\n\n"); idx != -1 {
			return at(idx + 2)
		}
	}

	if c.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		bestIdx := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(window, ender); idx != -1 {
				if endPos := idx + len(ender); endPos > bestIdx {
					bestIdx = endPos
				}
			}
		}

		if bestIdx > 0 {
			return at(bestIdx)
		}
	}

	if idx := strings.LastIndexAny(window, " \n"); idx != -1 {
		return at(idx + 1)
	}

	return maxEnd
}

// DeduplicatorConfig configures the deduplicator.
type DeduplicatorConfig struct {
	// MinDuplicateLength is the minimum segment length to check for duplicates
	MinDuplicateLength int
}

// DefaultDeduplicatorConfig returns sensible defaults.
func DefaultDeduplicatorConfig() DeduplicatorConfig {
	return DeduplicatorConfig{
		MinDuplicateLength: 20,
	}
}

// Deduplicator removes repeated segments, typically running headers and
// footers that appear on every page of a PDF.
type Deduplicator struct {
	config DeduplicatorConfig
}

// Verify interface compliance
var _ Processor = (*Deduplicator)(nil)

// NewDeduplicator creates a new deduplicator with the given config.
func NewDeduplicator(config DeduplicatorConfig) *Deduplicator {
	return &Deduplicator{config: config}
}

// Process keeps the first occurrence of every segment text.
func (d *Deduplicator) Process(segments []domain.Segment) []domain.Segment {
	if len(segments) <= 1 {
		return segments
	}

	seen := make(map[string]bool)
	var result []domain.Segment

	for _, seg := range segments {
		if len(seg.Text) < d.config.MinDuplicateLength {
			result = append(result, seg)
			continue
		}

		normalized := strings.TrimSpace(strings.ToLower(seg.Text))
		if !seen[normalized] {
			seen[normalized] = true
			result = append(result, seg)
		}
	}

	return result
}

// Name returns the processor name.
func (d *Deduplicator) Name() string {
	return "deduplicator"
}

// Order returns 20 - deduplicator runs last.
func (d *Deduplicator) Order() int {
	return 20
}

// WhitespaceNormalizer cleans up extracted PDF text before chunking.
type WhitespaceNormalizer struct{}

// Verify interface compliance
var _ Processor = (*WhitespaceNormalizer)(nil)

// NewWhitespaceNormalizer creates a new whitespace normalizer.
func NewWhitespaceNormalizer() *WhitespaceNormalizer {
	return &WhitespaceNormalizer{}
}

// Process normalizes line endings, collapses runs of spaces and blank lines
// and drops segments left empty.
func (w *WhitespaceNormalizer) Process(segments []domain.Segment) []domain.Segment {
	result := make([]domain.Segment, 0, len(segments))

	for _, seg := range segments {
		content := strings.ReplaceAll(seg.Text, "\r\n", "\n")
		content = strings.ReplaceAll(content, "\r", "\n")
		content = strings.ReplaceAll(content, "\t", " ")

		lines := strings.Split(content, "\n")
		for i, line := range lines {
			lines[i] = strings.Join(strings.Fields(line), " ")
		}
		content = strings.Join(lines, "\n")

		for strings.Contains(content, "\n\n\n") {
			content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
		}

		content = strings.TrimSpace(content)

		if len(content) > 0 {
			seg.Text = content
			result = append(result, seg)
		}
	}

	return result
}

// Name returns the processor name.
func (w *WhitespaceNormalizer) Name() string {
	return "whitespace-normalizer"
}

// Order returns 0 - normalisation runs before chunking.
func (w *WhitespaceNormalizer) Order() int {
	return 0
}
