package runtime

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diagram-rag/internal/config"
	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestBuild_MemoryDefaults(t *testing.T) {
	ctx := context.Background()
	svc, err := Build(ctx, config.Default(), testLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, config.StoreMemory, svc.Config.VectorStore)
	assert.Equal(t, LockMemory, svc.Config.LockBackend)
	assert.Equal(t, "fnv-hash", svc.Config.EmbeddingModel)
	assert.False(t, svc.Config.AuthEnabled)
	assert.Nil(t, svc.Auth)
	assert.NotNil(t, svc.Metrics)
	require.NoError(t, svc.Ready(ctx))
}

func TestBuild_EndToEndEnrichment(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.AdditionalInstruction = "Nutze den Kontext."

	svc, err := Build(ctx, cfg, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	added, err := svc.Documents.AddDocs(ctx, []*domain.Chunk{
		{ID: "handbook_0", Text: "review application documents for the bank customer"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, added)

	out, err := svc.RAG.ProcessRAGRequest(ctx, "What next?", "review application documents")
	require.NoError(t, err)
	assert.Contains(t, out, "review application documents for the bank customer")
	assert.Contains(t, out, "Nutze den Kontext.")
}

func TestBuild_AuthEnabled(t *testing.T) {
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"

	svc, err := Build(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	require.NotNil(t, svc.Auth)
	token, err := svc.Auth.IssueToken("ops", domain.RoleAdmin, time.Hour)
	require.NoError(t, err)

	caller, err := svc.Auth.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, caller.IsAdmin())
}

func TestBuild_RedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.RedisURL = "redis://" + mr.Addr()

	svc, err := Build(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, LockRedis, svc.Config.LockBackend)
	assert.True(t, svc.Config.Distributed())
	require.NoError(t, svc.Ready(context.Background()))
}

func TestBuild_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.RedisURL = "redis://" + addr

	_, err := Build(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestBuild_Qdrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.VectorStore = config.StoreQdrant
	cfg.QdrantURL = srv.URL

	svc, err := Build(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, config.StoreQdrant, svc.Config.VectorStore)
	assert.Equal(t, LockMemory, svc.Config.LockBackend)
	require.NoError(t, svc.Ready(context.Background()))
}

func TestBuild_UnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.EmbeddingProvider = "cohere"

	svc, err := Build(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.Nil(t, svc)
	assert.True(t, errors.Is(err, domain.ErrInvalidProvider))
}

func TestServices_CloseReverseOrder(t *testing.T) {
	var calls []string
	s := &Services{}
	s.closers = append(s.closers,
		func() error { calls = append(calls, "first"); return nil },
		func() error { calls = append(calls, "second"); return errors.New("boom") },
	)

	err := s.Close()
	require.Error(t, err)
	assert.Equal(t, []string{"second", "first"}, calls)
	assert.NoError(t, s.Close(), "second close is a no-op")
}
