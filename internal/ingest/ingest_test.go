package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
)

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) QueryByText(ctx context.Context, text string, k int, pred index.Predicate) ([]index.Hit, error) {
	args := m.Called(ctx, text, k, pred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]index.Hit), args.Error(1)
}

func (m *mockIndex) GetByMetadata(ctx context.Context, pred index.Predicate, limit int) ([]model.DocumentRecord, error) {
	args := m.Called(ctx, pred, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) GetByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) ListDistinct(ctx context.Context, field string) ([]string, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockIndex) Recent(ctx context.Context, limit int) ([]model.DocumentRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) AddDocument(ctx context.Context, doc model.DocumentRecord, chunks []index.IngestChunk) error {
	args := m.Called(ctx, doc, chunks)
	return args.Error(0)
}

func (m *mockIndex) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockIndex) Close() error {
	args := m.Called()
	return args.Error(0)
}

var _ index.Index = (*mockIndex)(nil)

// countingEmbedder records how many texts it embedded and returns a fixed
// two-dimensional vector per text.
type countingEmbedder struct {
	embedded int
	fail     bool
}

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if c.fail {
		return nil, errors.New("embeddings unavailable")
	}
	c.embedded += len(texts)
	out := make([][]float64, len(texts))
	for i := range texts {
		out[i] = []float64{0.5, 0.5}
	}
	return out, nil
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_PlainText(t *testing.T) {
	path := writeTempFile(t, "report.txt", "Annual report body.")

	text, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Annual report body.", text)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := writeTempFile(t, "report.pdf", "binary")

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}

func TestIngestFile_StoresFoldedCompanyAndChunks(t *testing.T) {
	ctx := context.Background()
	path := writeTempFile(t, "apple-10k.md", "Apple reported record revenue. Services grew strongly.")

	idx := &mockIndex{}
	var stored model.DocumentRecord
	var storedChunks []index.IngestChunk
	idx.On("AddDocument", ctx, mock.AnythingOfType("model.DocumentRecord"), mock.Anything).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(model.DocumentRecord)
			storedChunks = args.Get(2).([]index.IngestChunk)
		}).
		Return(nil).Once()

	in := NewIngester(idx, &countingEmbedder{})
	docID, count, err := in.IngestFile(ctx, path, "Apple", 2023)
	require.NoError(t, err)

	assert.NotEmpty(t, docID)
	assert.Equal(t, 1, count)
	assert.Equal(t, docID, stored.ID)
	assert.Equal(t, "apple", stored.Company)
	assert.Equal(t, 2023, stored.Year)
	assert.Equal(t, "apple-10k.md", stored.Filename)
	require.Len(t, storedChunks, 1)
	assert.Equal(t, []float64{0.5, 0.5}, storedChunks[0].Embedding)
	idx.AssertExpectations(t)
}

func TestIngestFile_EmbeddingFailureAborts(t *testing.T) {
	ctx := context.Background()
	path := writeTempFile(t, "doc.txt", "Some content to index.")

	idx := &mockIndex{}
	in := NewIngester(idx, &countingEmbedder{fail: true})

	_, _, err := in.IngestFile(ctx, path, "apple", 2023)
	assert.Error(t, err)
	idx.AssertNotCalled(t, "AddDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestFile_EmptyFileErrors(t *testing.T) {
	ctx := context.Background()
	path := writeTempFile(t, "empty.txt", "   \n  ")

	in := NewIngester(&mockIndex{}, &countingEmbedder{})

	_, _, err := in.IngestFile(ctx, path, "apple", 2023)
	assert.Error(t, err)
}

func TestIngestFile_ChunkingOptionsRespected(t *testing.T) {
	ctx := context.Background()
	longText := ""
	for i := 0; i < 50; i++ {
		longText += "This sentence pads the document out to force chunking. "
	}
	path := writeTempFile(t, "long.txt", longText)

	idx := &mockIndex{}
	var storedChunks []index.IngestChunk
	idx.On("AddDocument", ctx, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			storedChunks = args.Get(2).([]index.IngestChunk)
		}).
		Return(nil).Once()

	embedder := &countingEmbedder{}
	in := NewIngester(idx, embedder, WithChunking(300, 50), WithConcurrency(2))

	_, count, err := in.IngestFile(ctx, path, "apple", 2023)
	require.NoError(t, err)

	assert.Greater(t, count, 1)
	assert.Equal(t, count, embedder.embedded)
	require.Len(t, storedChunks, count)
	for i, ch := range storedChunks {
		assert.Equal(t, i, ch.ChunkIndex)
		assert.NotEmpty(t, ch.Embedding)
	}
}
