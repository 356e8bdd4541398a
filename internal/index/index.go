// Package index provides the document index: file-level metadata records plus
// embedded chunk storage with similarity search. Two backends exist, a local
// single-file SQLite index and a Postgres/pgvector index.
package index

import (
	"context"

	"github.com/sells-group/finsight/internal/model"
)

// Hit is one raw similarity-search result. Distance semantics are
// backend-native; the Retriever normalizes distance to a similarity score.
type Hit struct {
	ID         string
	DocumentID string
	Content    string
	Distance   float64
	Company    string
	Year       int
	Page       int
	ChunkIndex int
}

// IngestChunk is one chunk with a precomputed embedding, ready for storage.
type IngestChunk struct {
	Content    string
	Page       int
	ChunkIndex int
	Embedding  []float64
}

// Index is the document index consumed by the answering pipeline.
type Index interface {
	// QueryByText embeds text and returns up to k nearest chunks, optionally
	// restricted by a metadata predicate. No similarity cutoff is applied
	// here; thresholds are the caller's concern.
	QueryByText(ctx context.Context, text string, k int, pred Predicate) ([]Hit, error)

	// GetByMetadata returns file-level records matching the predicate.
	GetByMetadata(ctx context.Context, pred Predicate, limit int) ([]model.DocumentRecord, error)

	// GetByID returns one file-level record, or nil if absent.
	GetByID(ctx context.Context, id string) (*model.DocumentRecord, error)

	// ListDistinct returns the distinct values of a document field
	// ("company" or "year").
	ListDistinct(ctx context.Context, field string) ([]string, error)

	// Recent returns the most recently ingested records, newest first.
	Recent(ctx context.Context, limit int) ([]model.DocumentRecord, error)

	// AddDocument stores a file-level record and its embedded chunks.
	AddDocument(ctx context.Context, doc model.DocumentRecord, chunks []IngestChunk) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
