package ai

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Embedding providers
const (
	ProviderHash   = "hash"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// EmbeddingConfig selects and configures an embedding provider
type EmbeddingConfig struct {
	Provider   string
	Model      string
	BaseURL    string
	APIKey     string
	Dimensions int
}

// Factory creates embedding services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from configuration.
// An empty provider selects the local hashing embedder.
func (f *Factory) CreateEmbeddingService(cfg EmbeddingConfig) (driven.EmbeddingService, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderHash:
		return NewHashEmbedding(cfg.Dimensions), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedding(cfg.APIKey, cfg.Model, cfg.BaseURL, cfg.Dimensions)
	case ProviderOllama:
		return NewOllamaEmbedding(cfg.BaseURL, cfg.Model, cfg.Dimensions)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, cfg.Provider)
	}
}
