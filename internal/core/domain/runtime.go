package domain

// RuntimeConfig describes the backends chosen at startup. It is reported
// by the version endpoint and never changes after the object graph is built.
type RuntimeConfig struct {
	Version              string `json:"version"`
	VectorStore          string `json:"vector_store"`
	LockBackend          string `json:"lock_backend"`
	EmbeddingProvider    string `json:"embedding_provider"`
	EmbeddingModel       string `json:"embedding_model"`
	EmbeddingDimensions  int    `json:"embedding_dimensions"`
	PreprocessingEnabled bool   `json:"preprocessing_enabled"`
	AuthEnabled          bool   `json:"auth_enabled"`
}

// Distributed reports whether ingestion locks are shared between instances
func (c *RuntimeConfig) Distributed() bool {
	return c.LockBackend == "redis" || c.LockBackend == "postgres"
}
