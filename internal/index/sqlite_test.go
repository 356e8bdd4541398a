package index

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finsight/internal/model"
)

func newSQLiteTest(t *testing.T) *SQLiteIndex {
	t.Helper()
	idx, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"), &stubEmbedder{vec: []float64{1, 0}})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	require.NoError(t, idx.Migrate(context.Background()))
	return idx
}

func addTestDocument(t *testing.T, idx *SQLiteIndex, doc model.DocumentRecord, chunks []IngestChunk) {
	t.Helper()
	require.NoError(t, idx.AddDocument(context.Background(), doc, chunks))
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	addTestDocument(t, idx, model.DocumentRecord{
		ID:        "doc-1",
		Filename:  "10k.txt",
		Company:   "apple",
		Year:      2023,
		Metadata:  map[string]any{"source": "sec"},
		CreatedAt: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}, []IngestChunk{
		{Content: "aligned chunk", ChunkIndex: 0, Embedding: []float64{1, 0}},
		{Content: "orthogonal chunk", ChunkIndex: 1, Embedding: []float64{0, 1}},
	})

	doc, err := idx.GetByID(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "apple", doc.Company)
	assert.Equal(t, map[string]any{"source": "sec"}, doc.Metadata)

	hits, err := idx.QueryByText(ctx, "anything", 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	// Query vector is [1,0]: the aligned chunk ranks first at distance 0.
	assert.Equal(t, "aligned chunk", hits[0].Content)
	assert.InDelta(t, 0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 1, hits[1].Distance, 1e-9)
	assert.Equal(t, "apple", hits[0].Company)
	assert.Equal(t, 2023, hits[0].Year)
}

func TestSQLiteQueryByText_KCapsResults(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	chunks := make([]IngestChunk, 5)
	for i := range chunks {
		chunks[i] = IngestChunk{Content: "chunk", ChunkIndex: i, Embedding: []float64{1, float64(i)}}
	}
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-1", Filename: "f", Company: "apple", Year: 2023}, chunks)

	hits, err := idx.QueryByText(ctx, "q", 2, nil)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSQLiteQueryByText_PredicateRestrictsDocuments(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-1", Filename: "a", Company: "apple", Year: 2022},
		[]IngestChunk{{Content: "apple chunk", Embedding: []float64{1, 0}}})
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-2", Filename: "b", Company: "tesla", Year: 2023},
		[]IngestChunk{{Content: "tesla chunk", Embedding: []float64{1, 0}}})

	hits, err := idx.QueryByText(ctx, "q", 10, OneOf{Field: "document_id", Values: []any{"doc-2"}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "tesla chunk", hits[0].Content)
}

func TestSQLiteGetByMetadata(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-1", Filename: "a", Company: "apple", Year: 2022}, nil)
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-2", Filename: "b", Company: "apple", Year: 2023}, nil)
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-3", Filename: "c", Company: "tesla", Year: 2023}, nil)

	docs, err := idx.GetByMetadata(ctx, And{
		Equals{Field: "company", Value: "apple"},
		OneOf{Field: "year", Values: []any{2023}},
	}, 50)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "doc-2", docs[0].ID)
}

func TestSQLiteRecentOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	addTestDocument(t, idx, model.DocumentRecord{
		ID: "old", Filename: "a", Company: "apple", Year: 2021,
		CreatedAt: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}, nil)
	addTestDocument(t, idx, model.DocumentRecord{
		ID: "new", Filename: "b", Company: "apple", Year: 2023,
		CreatedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
	}, nil)

	docs, err := idx.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "new", docs[0].ID)
}

func TestSQLiteListDistinct(t *testing.T) {
	ctx := context.Background()
	idx := newSQLiteTest(t)

	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-1", Filename: "a", Company: "tesla", Year: 2022}, nil)
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-2", Filename: "b", Company: "apple", Year: 2023}, nil)
	addTestDocument(t, idx, model.DocumentRecord{ID: "doc-3", Filename: "c", Company: "apple", Year: 2023}, nil)

	companies, err := idx.ListDistinct(ctx, "company")
	require.NoError(t, err)
	assert.Equal(t, []string{"apple", "tesla"}, companies)

	years, err := idx.ListDistinct(ctx, "year")
	require.NoError(t, err)
	assert.Equal(t, []string{"2022", "2023"}, years)
}

func TestSQLiteGetByID_MissingIsNilNil(t *testing.T) {
	idx := newSQLiteTest(t)

	doc, err := idx.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, doc)
}

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, cosineDistance([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 1, cosineDistance([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float64{1, 0}, []float64{-1, 0}), 1e-9)
	// Mismatched or zero-norm vectors are maximally distant.
	assert.InDelta(t, 2, cosineDistance([]float64{1}, []float64{1, 0}), 1e-9)
	assert.InDelta(t, 2, cosineDistance([]float64{0, 0}, []float64{1, 0}), 1e-9)
}

func TestEmbeddingCodec(t *testing.T) {
	vec := []float64{0.25, -1.5, 3.14159}

	decoded, err := decodeEmbedding(encodeEmbedding(vec))
	require.NoError(t, err)
	assert.Equal(t, vec, decoded)

	_, err = decodeEmbedding([]byte{1, 2, 3})
	assert.Error(t, err)
}
