package domain

import (
	"fmt"
	"strings"
)

// Chunk is a bounded span of text from a source document, the unit of
// indexing and retrieval. IDs follow the {prefix}_{ordinal} convention.
type Chunk struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
}

// IsValid reports whether the chunk may be stored in the index.
func (c *Chunk) IsValid() bool {
	return c != nil && c.ID != "" && c.Text != ""
}

// Prefix returns the prefix group the chunk belongs to.
func (c *Chunk) Prefix() string {
	return PrefixOf(c.ID)
}

// ScoredChunk pairs a chunk with its embedding-space distance to a query.
// Lower distance means more similar; the value is not bounded to [0,1].
type ScoredChunk struct {
	Chunk    *Chunk  `json:"chunk"`
	Distance float64 `json:"distance"`
}

// Page is the extracted text of a single page of a source file.
type Page struct {
	Number int    `json:"number"` // 1-based
	Text   string `json:"text"`
}

// Segment is a piece of page text produced by a splitter, before it is
// assigned a chunk ID.
type Segment struct {
	Text     string
	Page     int
	Position int
}

// ChunkID builds the ID of the ordinal-th chunk of a prefix group.
func ChunkID(prefix string, ordinal int) string {
	return fmt.Sprintf("%s_%d", prefix, ordinal)
}

// PrefixOf returns the prefix group of a chunk ID by splitting on the last
// underscore. IDs without an underscore are their own group.
func PrefixOf(id string) string {
	idx := strings.LastIndex(id, "_")
	if idx == -1 {
		return id
	}
	return id[:idx]
}

// GroupByPrefix groups chunk IDs by prefix group, preserving input order
// within each group.
func GroupByPrefix(ids []string) map[string][]string {
	groups := make(map[string][]string)
	for _, id := range ids {
		p := PrefixOf(id)
		groups[p] = append(groups[p], id)
	}
	return groups
}
