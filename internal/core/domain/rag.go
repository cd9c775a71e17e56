package domain

// RequestState carries one enrichment request through retrieval and
// augmentation. It is never persisted.
type RequestState struct {
	Prompt  string
	Query   string
	Context []*Chunk
	Answer  string // reserved
}

// FileError records why a single file failed during batch ingestion.
type FileError struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// BatchResult summarises a directory ingestion run.
type BatchResult struct {
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Chunks    int         `json:"chunks"`
	Errors    []FileError `json:"errors"`
}

// AddError records a failed file.
func (r *BatchResult) AddError(file string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, FileError{File: file, Error: err.Error()})
}

// ExtractionFailurePolicy controls what happens when a matching extractor
// fails on a diagram.
type ExtractionFailurePolicy string

const (
	// ExtractionFallback uses the raw diagram as the query
	ExtractionFallback ExtractionFailurePolicy = "fallback"
	// ExtractionPropagate returns the extraction error to the caller
	ExtractionPropagate ExtractionFailurePolicy = "propagate"
)

// IsValid checks if the policy is known.
func (p ExtractionFailurePolicy) IsValid() bool {
	return p == ExtractionFallback || p == ExtractionPropagate
}
