package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.VectorStore = (*VectorStore)(nil)

// VectorStore implements driven.VectorStore on a pgvector table.
// Distances use the <-> (Euclidean) operator.
type VectorStore struct {
	db       *DB
	embedder driven.EmbeddingService
}

// NewVectorStore creates a new VectorStore
func NewVectorStore(db *DB, embedder driven.EmbeddingService) *VectorStore {
	return &VectorStore{db: db, embedder: embedder}
}

// Add embeds chunks and upserts them in a single transaction
func (s *VectorStore) Add(ctx context.Context, chunks []*domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
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

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO rag_chunks (id, prefix, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5::vector)
			ON CONFLICT (id) DO UPDATE SET
				prefix = EXCLUDED.prefix,
				content = EXCLUDED.content,
				metadata = EXCLUDED.metadata,
				embedding = EXCLUDED.embedding,
				updated_at = NOW()
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, c := range chunks {
			meta, err := json.Marshal(metadataOrEmpty(c.Metadata))
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", c.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, c.ID, c.Prefix(), c.Text, meta, vectorLiteral(vectors[i])); err != nil {
				return fmt.Errorf("insert %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// SimilaritySearch returns the k nearest chunks by Euclidean distance
func (s *VectorStore) SimilaritySearch(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return []domain.ScoredChunk{}, nil
	}

	qv, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, content, metadata, embedding <-> $1::vector AS distance
		FROM rag_chunks
		ORDER BY distance, id
		LIMIT $2
	`, vectorLiteral(qv), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.ScoredChunk, 0, k)
	for rows.Next() {
		var (
			c        domain.Chunk
			meta     []byte
			distance float64
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta, &distance); err != nil {
			return nil, err
		}
		if c.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", c.ID, err)
		}
		results = append(results, domain.ScoredChunk{Chunk: &c, Distance: distance})
	}
	return results, rows.Err()
}

// Get returns the chunks that exist among ids, in request order
func (s *VectorStore) Get(ctx context.Context, ids []string) ([]*domain.Chunk, error) {
	if len(ids) == 0 {
		return []*domain.Chunk{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata FROM rag_chunks WHERE id = ANY($1)", pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]*domain.Chunk, len(ids))
	for rows.Next() {
		var (
			c    domain.Chunk
			meta []byte
		)
		if err := rows.Scan(&c.ID, &c.Text, &meta); err != nil {
			return nil, err
		}
		if c.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, fmt.Errorf("decode metadata for %s: %w", c.ID, err)
		}
		byID[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, err
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
	_, err := s.db.ExecContext(ctx, "DELETE FROM rag_chunks WHERE id = ANY($1)", pq.Array(ids))
	return err
}

// ListIDs returns all chunk IDs in sorted order
func (s *VectorStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM rag_chunks ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// HealthCheck pings the database
func (s *VectorStore) HealthCheck(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// vectorLiteral formats v in pgvector's text form, e.g. [0.1,0.2]
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 8)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

func metadataOrEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
