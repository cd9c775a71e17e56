package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
	"github.com/custodia-labs/diagram-rag/internal/core/ports/driven/mocks"
)

func newMockStore(t *testing.T) (*VectorStore, sqlmock.Sqlmock, *mocks.MockEmbeddingService) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	emb := mocks.NewMockEmbeddingService()
	return NewVectorStore(&DB{DB: sqlDB}, emb), mock, emb
}

func TestVectorStore_Add(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO rag_chunks")
	prep.ExpectExec().
		WithArgs("guide_0", "guide", "erste Seite", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().
		WithArgs("guide_1", "guide", "zweite Seite", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.Add(context.Background(), []*domain.Chunk{
		{ID: "guide_0", Text: "erste Seite", Metadata: map[string]any{"page": 1}},
		{ID: "guide_1", Text: "zweite Seite"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorStore_Add_RollsBack(t *testing.T) {
	store, mock, _ := newMockStore(t)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO rag_chunks")
	prep.ExpectExec().WillReturnError(errors.New("dimension mismatch"))
	mock.ExpectRollback()

	err := store.Add(context.Background(), []*domain.Chunk{{ID: "a_0", Text: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorStore_Add_EmbedError(t *testing.T) {
	store, mock, emb := newMockStore(t)
	emb.SetFailNext(true)

	err := store.Add(context.Background(), []*domain.Chunk{{ID: "a_0", Text: "x"}})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorStore_SimilaritySearch(t *testing.T) {
	store, mock, _ := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "content", "metadata", "distance"}).
		AddRow("loan_0", "Kreditantrag prüfen", []byte(`{"source":"loan.pdf","page":2}`), 0.42).
		AddRow("hr_0", "Urlaub", []byte(`{}`), 3.5)
	mock.ExpectQuery("SELECT id, content, metadata, embedding <-> ").
		WithArgs(sqlmock.AnyArg(), 4).
		WillReturnRows(rows)

	results, err := store.SimilaritySearch(context.Background(), "kredit", 4)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "loan_0", results[0].Chunk.ID)
	assert.Equal(t, 0.42, results[0].Distance)
	assert.Equal(t, "loan.pdf", results[0].Chunk.Metadata["source"])
	assert.Equal(t, float64(2), results[0].Chunk.Metadata["page"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorStore_Get_PreservesRequestOrder(t *testing.T) {
	store, mock, _ := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "content", "metadata"}).
		AddRow("a_0", "A", []byte(`{}`)).
		AddRow("b_0", "B", nil)
	mock.ExpectQuery("SELECT id, content, metadata FROM rag_chunks WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	got, err := store.Get(context.Background(), []string{"b_0", "missing", "a_0"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b_0", got[0].ID)
	assert.Equal(t, "a_0", got[1].ID)
	assert.NotNil(t, got[0].Metadata)
}

func TestVectorStore_DeleteAndList(t *testing.T) {
	store, mock, _ := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM rag_chunks WHERE id = ANY").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, store.Delete(ctx, []string{"a_0", "a_1"}))
	require.NoError(t, store.Delete(ctx, nil))

	mock.ExpectQuery("SELECT id FROM rag_chunks ORDER BY id").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a_0").AddRow("b_0"))
	ids, err := store.ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a_0", "b_0"}, ids)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorLiteral(t *testing.T) {
	assert.Equal(t, "[]", vectorLiteral(nil))
	assert.Equal(t, "[0.5,-1,2.25]", vectorLiteral([]float32{0.5, -1, 2.25}))
}
