// Package ingest loads source documents, chunks them, computes embeddings,
// and stores them in the document index.
package ingest

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/time/rate"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/embeddings"
)

const (
	// embedBatchSize is how many chunks go into one embeddings request.
	embedBatchSize = 64
	// defaultConcurrency bounds parallel embedding requests per file.
	defaultConcurrency = 4
	// defaultEmbedRate limits embeddings requests per second.
	defaultEmbedRate = 5
)

// Ingester writes documents into the index.
type Ingester struct {
	idx         index.Index
	embedder    embeddings.Client
	limiter     *rate.Limiter
	concurrency int

	chunkSize    int
	chunkOverlap int
}

// Option configures the ingester.
type Option func(*Ingester)

// WithChunking overrides chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(in *Ingester) {
		in.chunkSize = size
		in.chunkOverlap = overlap
	}
}

// WithConcurrency bounds parallel embedding batches.
func WithConcurrency(n int) Option {
	return func(in *Ingester) {
		if n > 0 {
			in.concurrency = n
		}
	}
}

// NewIngester creates an ingester over the given index and embedder.
func NewIngester(idx index.Index, embedder embeddings.Client, opts ...Option) *Ingester {
	in := &Ingester{
		idx:          idx,
		embedder:     embedder,
		limiter:      rate.NewLimiter(rate.Limit(defaultEmbedRate), 1),
		concurrency:  defaultConcurrency,
		chunkSize:    DefaultChunkSize,
		chunkOverlap: DefaultChunkOverlap,
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// IngestFile loads one document, embeds its chunks, and stores everything
// under a fresh document ID. The company name is case-folded before storage
// so downstream intent matching works.
func (in *Ingester) IngestFile(ctx context.Context, path, company string, year int) (string, int, error) {
	text, err := LoadFile(path)
	if err != nil {
		return "", 0, err
	}

	pieces := SplitText(text, in.chunkSize, in.chunkOverlap)
	if len(pieces) == 0 {
		return "", 0, eris.Errorf("ingest: %s produced no chunks", path)
	}

	vectors, err := in.embedAll(ctx, pieces)
	if err != nil {
		return "", 0, err
	}

	chunks := make([]index.IngestChunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = index.IngestChunk{
			Content:    piece,
			ChunkIndex: i,
			Embedding:  vectors[i],
		}
	}

	doc := model.DocumentRecord{
		ID:        uuid.NewString(),
		Filename:  filepath.Base(path),
		Company:   cases.Fold().String(company),
		Year:      year,
		CreatedAt: time.Now().UTC(),
	}

	if err := in.idx.AddDocument(ctx, doc, chunks); err != nil {
		return "", 0, err
	}

	zap.L().Info("ingest: document stored",
		zap.String("document_id", doc.ID),
		zap.String("filename", doc.Filename),
		zap.String("company", doc.Company),
		zap.Int("year", doc.Year),
		zap.Int("chunks", len(chunks)),
	)
	return doc.ID, len(chunks), nil
}

// embedAll computes embeddings for all chunks in rate-limited parallel
// batches, preserving chunk order.
func (in *Ingester) embedAll(ctx context.Context, pieces []string) ([][]float64, error) {
	vectors := make([][]float64, len(pieces))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)

	var mu sync.Mutex
	for start := 0; start < len(pieces); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(pieces) {
			end = len(pieces)
		}

		g.Go(func() error {
			if err := in.limiter.Wait(gCtx); err != nil {
				return eris.Wrap(err, "ingest: rate limit wait")
			}
			batch, err := in.embedder.Embed(gCtx, pieces[start:end])
			if err != nil {
				return eris.Wrap(err, "ingest: embed batch")
			}
			mu.Lock()
			copy(vectors[start:end], batch)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}
