package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrTermExtraction indicates a diagram extractor failed for a reason
	// other than malformed XML
	ErrTermExtraction = errors.New("term extraction failed")

	// ErrRetrieval indicates the vector store could not answer a search
	ErrRetrieval = errors.New("retrieval failed")

	// ErrIngestion indicates a source file could not be turned into chunks
	ErrIngestion = errors.New("ingestion failed")

	// ErrIngestInProgress indicates another caller is re-ingesting the same source
	ErrIngestInProgress = errors.New("ingestion already in progress")

	// ErrInvalidProvider indicates an unknown embedding provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a backing service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)
