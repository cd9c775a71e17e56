package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven/mocks"
)

func newTestDocumentService() (*mocks.MockVectorStore, *bytes.Buffer, *documentService) {
	store := mocks.NewMockVectorStore()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	svc := NewDocumentService(store, logger).(*documentService)
	return store, &buf, svc
}

func chunk(id, text string) *domain.Chunk {
	return &domain.Chunk{ID: id, Text: text}
}

func TestDocumentService_AddDocs(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	n, err := svc.AddDocs(ctx, []*domain.Chunk{
		chunk("manual_0", "Kreditantrag prüfen"),
		{ID: "manual_1", Text: "Bonität", Metadata: map[string]any{"source": "manual.pdf"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, store.Count())

	got, err := svc.GetDoc(ctx, "manual_0")
	require.NoError(t, err)
	assert.Equal(t, "default", got.Metadata["source"])

	got, err = svc.GetDoc(ctx, "manual_1")
	require.NoError(t, err)
	assert.Equal(t, "manual.pdf", got.Metadata["source"])
}

func TestDocumentService_AddDocs_DropsInvalid(t *testing.T) {
	store, logs, svc := newTestDocumentService()

	n, err := svc.AddDocs(context.Background(), []*domain.Chunk{
		chunk("a_0", "valid text"),
		chunk("", "missing id"),
		nil,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, store.Count())
	assert.Contains(t, logs.String(), "filtered=2")
	assert.Contains(t, logs.String(), "accepted=1")
}

func TestDocumentService_AddDocs_AllInvalid(t *testing.T) {
	store, logs, svc := newTestDocumentService()

	n, err := svc.AddDocs(context.Background(), []*domain.Chunk{chunk("a_0", "")})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, store.Count())
	assert.Contains(t, logs.String(), "filtered=1")
}

func TestDocumentService_AddDocs_DoesNotMutateInput(t *testing.T) {
	_, _, svc := newTestDocumentService()

	c := chunk("a_0", "text")
	_, err := svc.AddDocs(context.Background(), []*domain.Chunk{c})
	require.NoError(t, err)
	assert.Nil(t, c.Metadata)
}

func TestDocumentService_GetDoc(t *testing.T) {
	_, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, err := svc.GetDoc(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.GetDoc(ctx, "missing_0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_UpdateDoc(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, err := svc.AddDocs(ctx, []*domain.Chunk{chunk("a_0", "old")})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateDoc(ctx, chunk("a_0", "new")))

	got, err := svc.GetDoc(ctx, "a_0")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Text)
	assert.Equal(t, "updated", got.Metadata["source"])
	assert.Equal(t, 1, store.Count())

	assert.ErrorIs(t, svc.UpdateDoc(ctx, chunk("", "x")), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateDoc(ctx, chunk("a_0", "")), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateDoc(ctx, nil), domain.ErrInvalidInput)
}

func TestDocumentService_DeleteDoc(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{chunk("a_0", "x"), chunk("a_1", "y")})

	require.NoError(t, svc.DeleteDoc(ctx, "a_0"))
	assert.Equal(t, 1, store.Count())

	assert.ErrorIs(t, svc.DeleteDoc(ctx, "a_0"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteDoc(ctx, " "), domain.ErrInvalidInput)
}

func TestDocumentService_DeleteByPrefix(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{
		chunk("guide_0", "a"),
		chunk("guide_1", "b"),
		chunk("guide_v2_0", "c"),
		chunk("other_0", "d"),
	})

	n, err := svc.DeleteByPrefix(ctx, "guide_")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.Count())

	n, err = svc.DeleteByPrefix(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = svc.DeleteByPrefix(ctx, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, store.Count())
}

func TestDocumentService_Ingest_ReplacesGroup(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{
		chunk("manual_0", "old 0"),
		chunk("manual_1", "old 1"),
		chunk("manual_2", "old 2"),
		chunk("manual_v2_0", "sibling group"),
	})

	err := svc.Ingest(ctx, "manual", []*domain.Chunk{
		chunk("manual_0", "new 0"),
		chunk("manual_1", "new 1"),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, store.CountPrefix("manual_"))
	assert.Equal(t, 1, store.CountPrefix("manual_v2_"))

	_, err = svc.GetDoc(ctx, "manual_2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := svc.GetDoc(ctx, "manual_0")
	require.NoError(t, err)
	assert.Equal(t, "new 0", got.Text)
}

func TestDocumentService_PrefixMatching(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{
		chunk("guide_0", "old"),
		chunk("guidebook_0", "neighbour"),
	})

	// Ingest replaces only the exact group
	require.NoError(t, svc.Ingest(ctx, "guide", []*domain.Chunk{chunk("guide_0", "new")}))
	_, err := svc.GetDoc(ctx, "guidebook_0")
	require.NoError(t, err)
	assert.Equal(t, 2, store.Count())

	// DeleteByPrefix is a plain string prefix match
	n, err := svc.DeleteByPrefix(ctx, "guide")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, store.Count())
}

func TestDocumentService_Ingest_Idempotent(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	batch := func() []*domain.Chunk {
		return []*domain.Chunk{chunk("faq_0", "a"), chunk("faq_1", "b")}
	}

	require.NoError(t, svc.Ingest(ctx, "faq", batch()))
	require.NoError(t, svc.Ingest(ctx, "faq", batch()))
	assert.Equal(t, 2, store.Count())
}

func TestDocumentService_Ingest_RejectsForeignChunks(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{chunk("faq_0", "keep")})

	err := svc.Ingest(ctx, "faq", []*domain.Chunk{chunk("other_0", "x")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, store.Count())

	err = svc.Ingest(ctx, "", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_Ingest_AddFailureLeavesGroupEmpty(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{chunk("faq_0", "old")})
	store.AddErr = errors.New("disk full")

	err := svc.Ingest(ctx, "faq", []*domain.Chunk{chunk("faq_0", "new")})
	require.Error(t, err)
	assert.Zero(t, store.Count())
}

func TestDocumentService_ClearAndList(t *testing.T) {
	_, _, svc := newTestDocumentService()
	ctx := context.Background()

	_, _ = svc.AddDocs(ctx, []*domain.Chunk{chunk("a_0", "x"), chunk("b_0", "y")})

	ids, err := svc.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a_0", "b_0"}, ids)

	n, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err = svc.ListIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestDocumentService_StoreErrors(t *testing.T) {
	store, _, svc := newTestDocumentService()
	ctx := context.Background()
	store.ListErr = errors.New("connection refused")

	_, err := svc.ListIDs(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))

	_, err = svc.DeleteByPrefix(ctx, "a")
	require.Error(t, err)
}
