package qdrant

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diagram-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

// fakeQdrant serves the subset of the Qdrant REST API the store uses.
type fakeQdrant struct {
	mu       sync.Mutex
	created  bool
	distance string
	points   map[string]point
	apiKeys  []string
}

func newFakeQdrant() *fakeQdrant {
	return &fakeQdrant{points: make(map[string]point)}
}

func (f *fakeQdrant) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"result": v, "status": "ok"})
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})

	mux.HandleFunc("GET /collections/rag", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if !f.created {
			http.Error(w, `{"status":{"error":"Not found"}}`, http.StatusNotFound)
			return
		}
		write(w, map[string]any{"status": "green"})
	})

	mux.HandleFunc("PUT /collections/rag", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vectors struct {
				Distance string `json:"distance"`
			} `json:"vectors"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.created = true
		f.distance = body.Vectors.Distance
		f.mu.Unlock()
		write(w, true)
	})

	mux.HandleFunc("PUT /collections/rag/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []point `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.apiKeys = append(f.apiKeys, r.Header.Get("api-key"))
		for _, p := range body.Points {
			f.points[p.ID] = p
		}
		f.mu.Unlock()
		write(w, map[string]any{"status": "completed"})
	})

	mux.HandleFunc("POST /collections/rag/points/search", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vector []float32 `json:"vector"`
			Limit  int       `json:"limit"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		var out []scoredPoint
		for _, p := range f.points {
			var sum float64
			for i := range p.Vector {
				d := float64(p.Vector[i] - body.Vector[i])
				sum += d * d
			}
			out = append(out, scoredPoint{ID: p.ID, Score: math.Sqrt(sum), Payload: p.Payload})
		}
		f.mu.Unlock()

		sort.Slice(out, func(i, j int) bool { return out[i].Score < out[j].Score })
		if len(out) > body.Limit {
			out = out[:body.Limit]
		}
		write(w, out)
	})

	mux.HandleFunc("POST /collections/rag/points", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		out := []scoredPoint{}
		for _, id := range body.IDs {
			if p, ok := f.points[id]; ok {
				out = append(out, scoredPoint{ID: p.ID, Payload: p.Payload})
			}
		}
		f.mu.Unlock()
		write(w, out)
	})

	mux.HandleFunc("POST /collections/rag/points/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Points []string `json:"points"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		for _, id := range body.Points {
			delete(f.points, id)
		}
		f.mu.Unlock()
		write(w, map[string]any{"status": "completed"})
	})

	// Pages of two to exercise next_page_offset
	mux.HandleFunc("POST /collections/rag/points/scroll", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Offset *string `json:"offset"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		f.mu.Lock()
		keys := make([]string, 0, len(f.points))
		for k := range f.points {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		start := 0
		if body.Offset != nil {
			start = sort.SearchStrings(keys, *body.Offset)
		}
		end := start + 2
		var next any
		if end < len(keys) {
			next = keys[end]
		} else {
			end = len(keys)
		}
		page := make([]scoredPoint, 0, end-start)
		for _, k := range keys[start:end] {
			page = append(page, scoredPoint{ID: k, Payload: map[string]any{payloadIDField: f.points[k].Payload[payloadIDField]}})
		}
		f.mu.Unlock()

		write(w, map[string]any{"points": page, "next_page_offset": next})
	})

	return mux
}

func newTestStore(t *testing.T) (*VectorStore, *fakeQdrant) {
	t.Helper()
	fake := newFakeQdrant()
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)

	store, err := NewVectorStore(Config{
		URL:        server.URL + "/",
		APIKey:     "secret",
		Collection: "rag",
		Logger:     slog.New(slog.DiscardHandler),
	}, ai.NewHashEmbedding(1024))
	require.NoError(t, err)
	return store, fake
}

func TestNewVectorStore_Validation(t *testing.T) {
	_, err := NewVectorStore(Config{Collection: "rag"}, ai.NewHashEmbedding(8))
	assert.Error(t, err)

	_, err = NewVectorStore(Config{URL: "http://localhost:6333"}, ai.NewHashEmbedding(8))
	assert.Error(t, err)
}

func TestPointID_Stable(t *testing.T) {
	assert.Equal(t, PointID("guide_0"), PointID("guide_0"))
	assert.NotEqual(t, PointID("guide_0"), PointID("guide_1"))
	assert.Len(t, PointID("guide_0"), 36)
}

func TestVectorStore_Lifecycle(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()

	err := store.Add(ctx, []*domain.Chunk{
		{ID: "loan_0", Text: "Kreditantrag prüfen Bonität bewerten", Metadata: map[string]any{"source": "loan.pdf"}},
		{ID: "loan_1", Text: "Kreditvertrag unterschreiben"},
		{ID: "hr_0", Text: "Urlaubsantrag genehmigen"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Euclid", fake.distance)
	assert.Equal(t, []string{"secret"}, fake.apiKeys)

	results, err := store.SimilaritySearch(ctx, "kreditantrag bonität", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "loan_0", results[0].Chunk.ID)
	assert.Equal(t, "loan.pdf", results[0].Chunk.Metadata["source"])

	got, err := store.Get(ctx, []string{"hr_0", "missing_0", "loan_1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "hr_0", got[0].ID)
	assert.Equal(t, "Kreditvertrag unterschreiben", got[1].Text)

	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr_0", "loan_0", "loan_1"}, ids)

	require.NoError(t, store.Delete(ctx, []string{"loan_0", "loan_1"}))
	ids, err = store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"hr_0"}, ids)

	require.NoError(t, store.HealthCheck(ctx))
}

func TestVectorStore_MissingCollectionReadsEmpty(t *testing.T) {
	fake := newFakeQdrant()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/collections/") {
			http.NotFound(w, r)
			return
		}
		fake.handler(t).ServeHTTP(w, r)
	}))
	defer server.Close()

	store, err := NewVectorStore(Config{URL: server.URL, Collection: "rag"}, ai.NewHashEmbedding(8))
	require.NoError(t, err)

	ids, err := store.ListIDs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := store.Get(context.Background(), []string{"a_0"})
	require.NoError(t, err)
	assert.Empty(t, got)

	results, err := store.SimilaritySearch(context.Background(), "loan approval", 4)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
}
