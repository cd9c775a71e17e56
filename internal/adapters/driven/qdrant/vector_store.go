// Package qdrant stores chunks in a Qdrant collection over its REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

const (
	payloadIDField       = "chunk_id"
	payloadTextField     = "text"
	payloadMetadataField = "metadata"

	scrollPageSize = 256
)

// pointNamespace derives stable point UUIDs from chunk IDs
var pointNamespace = uuid.MustParse("6f1c2a4e-93d7-4b8e-a1f5-0c7d2e9b3a64")

// Config configures the Qdrant vector store
type Config struct {
	// URL is the REST endpoint, e.g. http://localhost:6333
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// VectorStore implements driven.VectorStore on a Qdrant collection using
// Euclid distance. Chunk IDs are kept in the payload; point IDs are
// UUIDv5 hashes of them.
type VectorStore struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
	embedder   driven.EmbeddingService
	logger     *slog.Logger

	mu    sync.Mutex
	ready bool
}

// NewVectorStore creates a Qdrant-backed vector store
func NewVectorStore(cfg Config, embedder driven.EmbeddingService) (*VectorStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant URL is required")
	}
	if strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant collection is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &VectorStore{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
		embedder:   embedder,
		logger:     logger.With("component", "qdrant_store"),
	}, nil
}

// PointID returns the Qdrant point ID for a chunk ID
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector,omitempty"`
	Payload map[string]any `json:"payload,omitempty"`
}

type scoredPoint struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

// Add embeds and upserts chunks
func (s *VectorStore) Add(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed chunks: got %d vectors for %d chunks", len(vectors), len(chunks))
	}

	points := make([]point, len(chunks))
	for i, c := range chunks {
		points[i] = point{
			ID:     PointID(c.ID),
			Vector: vectors[i],
			Payload: map[string]any{
				payloadIDField:       c.ID,
				payloadTextField:     c.Text,
				payloadMetadataField: c.Metadata,
			},
		}
	}

	req := struct {
		Points []point `json:"points"`
	}{Points: points}

	if err := s.doJSON(ctx, http.MethodPut, s.path("/points?wait=true"), req, nil); err != nil {
		return err
	}
	s.logger.Debug("qdrant upsert completed", "count", len(points))
	return nil
}

// SimilaritySearch returns the k nearest chunks. For Euclid collections the
// Qdrant score is the distance itself.
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	req := struct {
		Vector      []float32 `json:"vector"`
		Limit       int       `json:"limit"`
		WithPayload bool      `json:"with_payload"`
	}{Vector: qv, Limit: k, WithPayload: true}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.path("/points/search"), req, &resp); err != nil {
		// nothing ingested yet
		if isNotFound(err) {
			return []domain.ScoredChunk{}, nil
		}
		return nil, err
	}

	out := make([]domain.ScoredChunk, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.ScoredChunk{
			Chunk:    chunkFromPayload(r.ID, r.Payload),
			Distance: r.Score,
		})
	}
	return out, nil
}

// Get returns the chunks that exist among ids, in request order
func (s *VectorStore) Get(ctx context.Context, ids []string) ([]*domain.Chunk, error) {
	if len(ids) == 0 {
		return []*domain.Chunk{}, nil
	}

	pointIDs := make([]string, len(ids))
	for i, id := range ids {
		pointIDs[i] = PointID(id)
	}
	req := struct {
		IDs         []string `json:"ids"`
		WithPayload bool     `json:"with_payload"`
	}{IDs: pointIDs, WithPayload: true}

	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.doJSON(ctx, http.MethodPost, s.path("/points"), req, &resp); err != nil {
		if isNotFound(err) {
			return []*domain.Chunk{}, nil
		}
		return nil, err
	}

	byID := make(map[string]*domain.Chunk, len(resp.Result))
	for _, r := range resp.Result {
		c := chunkFromPayload(r.ID, r.Payload)
		byID[c.ID] = c
	}
	out := make([]*domain.Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// Delete removes chunks by ID. Unknown IDs are ignored.
func (s *VectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	pointIDs := make([]string, len(ids))
	for i, id := range ids {
		pointIDs[i] = PointID(id)
	}
	req := struct {
		Points []string `json:"points"`
	}{Points: pointIDs}

	err := s.doJSON(ctx, http.MethodPost, s.path("/points/delete?wait=true"), req, nil)
	if isNotFound(err) {
		return nil
	}
	return err
}

// ListIDs scrolls the whole collection and returns chunk IDs in sorted order
func (s *VectorStore) ListIDs(ctx context.Context) ([]string, error) {
	ids := []string{}
	var offset any

	for {
		req := map[string]any{
			"limit":        scrollPageSize,
			"with_payload": []string{payloadIDField},
			"with_vector":  false,
		}
		if offset != nil {
			req["offset"] = offset
		}

		var resp struct {
			Result struct {
				Points         []scoredPoint `json:"points"`
				NextPageOffset any           `json:"next_page_offset"`
			} `json:"result"`
		}
		if err := s.doJSON(ctx, http.MethodPost, s.path("/points/scroll"), req, &resp); err != nil {
			if isNotFound(err) {
				return ids, nil
			}
			return nil, err
		}

		for _, p := range resp.Result.Points {
			ids = append(ids, chunkFromPayload(p.ID, p.Payload).ID)
		}
		if resp.Result.NextPageOffset == nil {
			break
		}
		offset = resp.Result.NextPageOffset
	}

	sort.Strings(ids)
	return ids, nil
}

// HealthCheck checks that the Qdrant server answers
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.doJSON(ctx, http.MethodGet, "/healthz", nil, nil)
}

// ensureCollection creates the collection with Euclid distance on first use.
// An existing collection is left as is.
func (s *VectorStore) ensureCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready {
		return nil
	}

	err := s.doJSON(ctx, http.MethodGet, s.path(""), nil, nil)
	if err == nil {
		s.ready = true
		return nil
	}
	if !isNotFound(err) {
		return err
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.embedder.Dimensions(),
			"distance": "Euclid",
		},
	}
	if err := s.doJSON(ctx, http.MethodPut, s.path(""), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", s.collection, err)
	}

	s.logger.Info("created qdrant collection", "collection", s.collection, "size", s.embedder.Dimensions())
	s.ready = true
	return nil
}

func (s *VectorStore) path(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// statusError is a non-2xx response from Qdrant
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant request failed: method=%s path=%s status=%d body=%s", e.Method, e.Path, e.Status, e.Body)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func (s *VectorStore) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func chunkFromPayload(pointID any, payload map[string]any) *domain.Chunk {
	c := &domain.Chunk{}
	if v, ok := payload[payloadIDField].(string); ok {
		c.ID = v
	}
	if v, ok := payload[payloadTextField].(string); ok {
		c.Text = v
	}
	if v, ok := payload[payloadMetadataField].(map[string]any); ok {
		c.Metadata = v
	}
	if c.ID == "" {
		c.ID = fmt.Sprint(pointID)
	}
	return c
}
