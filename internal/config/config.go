// Package config loads service settings from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// Vector store backends
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreQdrant   = "qdrant"
)

// Config holds every tunable of the service
type Config struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	ChunkSize    int     `yaml:"chunk_size"`
	ChunkOverlap int     `yaml:"chunk_overlap"`
	Threshold    float64 `yaml:"threshold"`
	ResultsCount int     `yaml:"results_count"`

	EmbeddingProvider   string `yaml:"embedding_provider"`
	EmbeddingModel      string `yaml:"embedding_model"`
	EmbeddingBaseURL    string `yaml:"embedding_base_url"`
	EmbeddingAPIKey     string `yaml:"embedding_api_key"`
	EmbeddingDimensions int    `yaml:"embedding_dimensions"`

	AdditionalInstruction string `yaml:"additional_llm_instruction"`
	PromptTemplate        string `yaml:"prompt_template"`

	DiagramPreprocessing bool   `yaml:"enable_diagram_preprocessing"`
	TermWeighting        bool   `yaml:"term_weighting_enabled"`
	ExtractionPolicy     string `yaml:"extraction_failure_policy"`

	PDFDirectory string `yaml:"pdf_directory"`

	VectorStore      string `yaml:"vector_store"`
	DatabaseURL      string `yaml:"database_url"`
	DBMaxOpenConns   int    `yaml:"db_max_open_conns"`
	DBMaxIdleConns   int    `yaml:"db_max_idle_conns"`
	QdrantURL        string `yaml:"qdrant_url"`
	QdrantAPIKey     string `yaml:"qdrant_api_key"`
	QdrantCollection string `yaml:"qdrant_collection"`

	RedisURL          string `yaml:"redis_url"`
	IngestLockTTLSecs int    `yaml:"ingest_lock_ttl_sec"`

	JWTSecret   string `yaml:"jwt_secret"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// Default returns the built-in defaults
func Default() *Config {
	return &Config{
		Host:     "0.0.0.0",
		Port:     8080,
		LogLevel: "info",

		ChunkSize:    150,
		ChunkOverlap: 50,
		Threshold:    25,
		ResultsCount: 4,

		EmbeddingProvider: "hash",

		DiagramPreprocessing: true,
		TermWeighting:        false,
		ExtractionPolicy:     string(domain.ExtractionFallback),

		VectorStore:      StoreMemory,
		DBMaxOpenConns:   10,
		DBMaxIdleConns:   2,
		QdrantCollection: "rag_collection",

		IngestLockTTLSecs: 300,
		MaxUploadMB:       32,
	}
}

// Load builds the configuration. path names a YAML file; when empty the
// CONFIG_FILE variable is consulted. A .env file in the working directory
// is read first and never overrides variables already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables. Unset variables keep the
// current value; malformed numbers are errors.
func (c *Config) applyEnv() error {
	var errs []error

	setString(&c.Host, "HOST")
	setInt(&c.Port, "PORT", &errs)
	setString(&c.LogLevel, "LOG_LEVEL")

	setInt(&c.ChunkSize, "CHUNK_SIZE", &errs)
	setInt(&c.ChunkOverlap, "CHUNK_OVERLAP", &errs)
	setFloat(&c.Threshold, "THRESHOLD", &errs)
	setInt(&c.ResultsCount, "RESULTS_COUNT", &errs)

	setString(&c.EmbeddingProvider, "EMBEDDING_PROVIDER")
	setString(&c.EmbeddingModel, "EMBEDDING_MODEL")
	setString(&c.EmbeddingBaseURL, "EMBEDDING_BASE_URL")
	setString(&c.EmbeddingAPIKey, "EMBEDDING_API_KEY")
	setInt(&c.EmbeddingDimensions, "EMBEDDING_DIMENSIONS", &errs)

	setString(&c.AdditionalInstruction, "ADDITIONAL_LLM_INSTRUCTION")
	setString(&c.PromptTemplate, "PROMPT_TEMPLATE")

	setBool(&c.DiagramPreprocessing, "ENABLE_DIAGRAM_PREPROCESSING", &errs)
	setBool(&c.TermWeighting, "TERM_WEIGHTING_ENABLED", &errs)
	setString(&c.ExtractionPolicy, "EXTRACTION_FAILURE_POLICY")

	setString(&c.PDFDirectory, "PDF_DIRECTORY")

	setString(&c.VectorStore, "VECTOR_STORE")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setInt(&c.DBMaxOpenConns, "DB_MAX_OPEN_CONNS", &errs)
	setInt(&c.DBMaxIdleConns, "DB_MAX_IDLE_CONNS", &errs)
	setString(&c.QdrantURL, "QDRANT_URL")
	setString(&c.QdrantAPIKey, "QDRANT_API_KEY")
	setString(&c.QdrantCollection, "QDRANT_COLLECTION")

	setString(&c.RedisURL, "REDIS_URL")
	setInt(&c.IngestLockTTLSecs, "INGEST_LOCK_TTL_SEC", &errs)

	setString(&c.JWTSecret, "JWT_SECRET")
	setInt(&c.MaxUploadMB, "MAX_UPLOAD_MB", &errs)

	return errors.Join(errs...)
}

// Validate rejects settings the service cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be in 1..65535, got %d", c.Port))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in 0..CHUNK_SIZE-1, got %d", c.ChunkOverlap))
	}
	if c.Threshold <= 0 {
		errs = append(errs, fmt.Errorf("THRESHOLD must be positive, got %g", c.Threshold))
	}
	if c.ResultsCount <= 0 {
		errs = append(errs, fmt.Errorf("RESULTS_COUNT must be positive, got %d", c.ResultsCount))
	}
	if !domain.ExtractionFailurePolicy(c.ExtractionPolicy).IsValid() {
		errs = append(errs, fmt.Errorf("EXTRACTION_FAILURE_POLICY must be fallback or propagate, got %q", c.ExtractionPolicy))
	}

	switch strings.ToLower(c.EmbeddingProvider) {
	case "hash", "openai", "ollama":
	default:
		errs = append(errs, fmt.Errorf("EMBEDDING_PROVIDER must be hash, openai or ollama, got %q", c.EmbeddingProvider))
	}

	switch c.VectorStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres vector store"))
		}
	case StoreQdrant:
		if c.QdrantURL == "" {
			errs = append(errs, errors.New("QDRANT_URL is required for the qdrant vector store"))
		}
	default:
		errs = append(errs, fmt.Errorf("VECTOR_STORE must be memory, postgres or qdrant, got %q", c.VectorStore))
	}

	if c.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// Addr returns host:port for the HTTP listener
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IngestLockTTL returns the ingestion lock TTL
func (c *Config) IngestLockTTL() time.Duration {
	return time.Duration(c.IngestLockTTLSecs) * time.Second
}

// MaxUploadBytes returns the upload size limit in bytes
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AuthEnabled reports whether mutating routes require a token
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string, errs *[]error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = n
}

func setFloat(dst *float64, key string, errs *[]error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = f
}

func setBool(dst *bool, key string, errs *[]error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = b
}
