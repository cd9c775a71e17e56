// Package runtime builds the object graph from configuration. Handlers and
// commands receive explicit references from here; nothing is global.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/memory"
	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/pdf"
	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/postgres"
	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/qdrant"
	redisadapter "github.com/custodia-labs/diagram-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/diagram-rag/internal/config"
	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driving"
	"github.com/custodia-labs/diagram-rag/internal/core/services"
	"github.com/custodia-labs/diagram-rag/internal/extractors"
	"github.com/custodia-labs/diagram-rag/internal/metrics"
	"github.com/custodia-labs/diagram-rag/internal/postprocessors"
)

// Lock backends
const (
	LockRedis    = "redis"
	LockPostgres = "postgres"
	LockMemory   = "memory"
)

// Services holds every wired component. Build it once per process and
// Close it on shutdown.
type Services struct {
	Config *domain.RuntimeConfig

	Embedding driven.EmbeddingService
	Store     driven.VectorStore
	Lock      driven.DistributedLock

	Extraction   driving.QueryExtractionService
	Retrieval    driving.RetrievalService
	Augmentation driving.AugmentationService
	Documents    driving.DocumentService
	RAG          driving.RAGService
	Ingestion    driving.IngestionService

	// Auth is nil when no JWT secret is configured
	Auth driving.AuthService

	Metrics *metrics.Collector

	logger  *slog.Logger
	closers []func() error
}

// Build wires adapters and services for cfg. On error every resource
// opened so far is released.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (s *Services, err error) {
	if logger == nil {
		logger = slog.Default()
	}

	s = &Services{
		Config: &domain.RuntimeConfig{
			VectorStore:          cfg.VectorStore,
			EmbeddingProvider:    cfg.EmbeddingProvider,
			PreprocessingEnabled: cfg.DiagramPreprocessing,
			AuthEnabled:          cfg.AuthEnabled(),
		},
		logger: logger,
	}
	defer func() {
		if err != nil {
			_ = s.Close()
			s = nil
		}
	}()

	s.Embedding, err = ai.NewFactory().CreateEmbeddingService(ai.EmbeddingConfig{
		Provider:   cfg.EmbeddingProvider,
		Model:      cfg.EmbeddingModel,
		BaseURL:    cfg.EmbeddingBaseURL,
		APIKey:     cfg.EmbeddingAPIKey,
		Dimensions: cfg.EmbeddingDimensions,
	})
	if err != nil {
		return s, fmt.Errorf("embedding service: %w", err)
	}
	s.closers = append(s.closers, s.Embedding.Close)
	s.Config.EmbeddingModel = s.Embedding.Model()
	s.Config.EmbeddingDimensions = s.Embedding.Dimensions()

	var db *postgres.DB
	switch cfg.VectorStore {
	case config.StorePostgres:
		pgCfg := postgres.DefaultConfig(cfg.DatabaseURL)
		pgCfg.MaxOpenConns = cfg.DBMaxOpenConns
		pgCfg.MaxIdleConns = cfg.DBMaxIdleConns
		db, err = postgres.Connect(ctx, pgCfg)
		if err != nil {
			return s, fmt.Errorf("%w: postgres: %w", domain.ErrServiceUnavailable, err)
		}
		s.closers = append(s.closers, db.Close)
		pgvector, serr := db.InitSchema(ctx)
		if serr != nil {
			return s, fmt.Errorf("postgres schema: %w", serr)
		}
		logger.Info("postgres schema ready", "pgvector", pgvector)
		s.Store = postgres.NewVectorStore(db, s.Embedding)
	case config.StoreQdrant:
		s.Store, err = qdrant.NewVectorStore(qdrant.Config{
			URL:        cfg.QdrantURL,
			APIKey:     cfg.QdrantAPIKey,
			Collection: cfg.QdrantCollection,
			Logger:     logger,
		}, s.Embedding)
		if err != nil {
			return s, fmt.Errorf("qdrant: %w", err)
		}
	default:
		s.Store = memory.NewVectorStore(s.Embedding)
	}

	switch {
	case cfg.RedisURL != "":
		client, cerr := redisadapter.Connect(ctx, cfg.RedisURL)
		if cerr != nil {
			return s, fmt.Errorf("%w: redis: %w", domain.ErrServiceUnavailable, cerr)
		}
		s.closers = append(s.closers, client.Close)
		s.Lock = redisadapter.NewLock(client)
		s.Config.LockBackend = LockRedis
	case db != nil:
		s.Lock = postgres.NewAdvisoryLock(db)
		s.Config.LockBackend = LockPostgres
	default:
		s.Lock = memory.NewLock()
		s.Config.LockBackend = LockMemory
	}

	s.Extraction = services.NewQueryExtractionService(services.QueryExtractionConfig{
		Registry:      extractors.DefaultRegistry(logger),
		FailurePolicy: domain.ExtractionFailurePolicy(cfg.ExtractionPolicy),
		TermWeighting: cfg.TermWeighting,
		Logger:        logger,
	})
	s.Retrieval = services.NewRetrievalService(s.Store, services.RetrievalConfig{
		Threshold:    cfg.Threshold,
		ResultsCount: cfg.ResultsCount,
	}, logger)
	s.Augmentation = services.NewAugmentationService(services.AugmentationConfig{
		Instruction: cfg.AdditionalInstruction,
		Template:    cfg.PromptTemplate,
		Logger:      logger,
	})
	s.Documents = services.NewDocumentService(s.Store, logger)
	s.RAG = services.NewRAGService(services.RAGConfig{
		Extraction:           s.Extraction,
		Retrieval:            s.Retrieval,
		Augmentation:         s.Augmentation,
		PreprocessingEnabled: cfg.DiagramPreprocessing,
		Logger:               logger,
	})

	chunking := postprocessors.DefaultChunkConfig()
	chunking.MaxChunkSize = cfg.ChunkSize
	chunking.Overlap = cfg.ChunkOverlap
	s.Ingestion = services.NewIngestionService(services.IngestionConfig{
		Loader:          pdf.NewLoader(logger),
		Splitter:        postprocessors.DefaultPipeline(chunking),
		Documents:       s.Documents,
		Lock:            s.Lock,
		LockTTL:         cfg.IngestLockTTL(),
		SourceDirectory: cfg.PDFDirectory,
		Logger:          logger,
	})

	if cfg.AuthEnabled() {
		s.Auth = services.NewAuthService(auth.NewAdapter(cfg.JWTSecret))
	}

	s.Metrics = metrics.NewCollector("diagram_rag", logger)

	logger.Info("runtime initialized",
		"vector_store", s.Config.VectorStore,
		"lock", s.Config.LockBackend,
		"embedding", s.Config.EmbeddingModel,
		"dimensions", s.Config.EmbeddingDimensions,
		"auth", s.Config.AuthEnabled,
	)
	return s, nil
}

// Ready checks the vector store and the lock backend
func (s *Services) Ready(ctx context.Context) error {
	if err := s.Store.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%w: vector store: %w", domain.ErrServiceUnavailable, err)
	}
	if err := s.Lock.Ping(ctx); err != nil {
		return fmt.Errorf("%w: lock: %w", domain.ErrServiceUnavailable, err)
	}
	return nil
}

// Close releases resources in reverse order of acquisition
func (s *Services) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
