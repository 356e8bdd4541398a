package index

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/embeddings"
)

// Pool is the subset of pgxpool.Pool the Postgres index needs. pgxmock
// implements it, which keeps the index testable without a live database.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresIndex implements Index on Postgres with the pgvector extension.
// Similarity search runs server-side via the <=> cosine distance operator.
type PostgresIndex struct {
	pool     Pool
	embedder embeddings.Client
}

// NewPostgres connects a pgx pool to the given DSN and returns the index.
func NewPostgres(ctx context.Context, dsn string, embedder embeddings.Client) (*PostgresIndex, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: parse dsn")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres index: ping")
	}
	return &PostgresIndex{pool: pool, embedder: embedder}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool, embedder embeddings.Client) *PostgresIndex {
	return &PostgresIndex{pool: pool, embedder: embedder}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	company    TEXT NOT NULL,
	year       INTEGER NOT NULL,
	metadata   JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	content     TEXT NOT NULL,
	page        INTEGER NOT NULL DEFAULT 0,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	embedding   vector(3072) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_company ON documents(company);
CREATE INDEX IF NOT EXISTS idx_documents_year ON documents(year);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`

func (p *PostgresIndex) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres index: migrate")
}

func (p *PostgresIndex) Close() error {
	p.pool.Close()
	return nil
}

var postgresColumns = map[string]string{
	"company":     "d.company",
	"year":        "d.year",
	"document_id": "c.document_id",
}

var postgresDocColumns = map[string]string{
	"company": "company",
	"year":    "year",
}

func postgresPlaceholder(i int) string { return "$" + strconv.Itoa(i) }

func (p *PostgresIndex) QueryByText(ctx context.Context, text string, k int, pred Predicate) ([]Hit, error) {
	vecs, err := p.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: embed query")
	}

	// $1 is the query vector, predicate args start at $2.
	clause, args, err := toSQL(pred, postgresColumns, postgresPlaceholder, 1)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT c.id, c.document_id, c.content, c.page, c.chunk_index, d.company, d.year,
		c.embedding <=> $1::vector AS distance
		FROM chunks c JOIN documents d ON d.id = c.document_id`
	if clause != "" {
		stmt += " WHERE " + clause
	}
	stmt += " ORDER BY distance LIMIT " + strconv.Itoa(k)

	queryArgs := append([]any{vectorLiteral(vecs[0])}, args...)

	rows, err := p.pool.Query(ctx, stmt, queryArgs...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: similarity query")
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Content, &h.Page, &h.ChunkIndex, &h.Company, &h.Year, &h.Distance); err != nil {
			return nil, eris.Wrap(err, "postgres index: scan hit")
		}
		hits = append(hits, h)
	}
	return hits, eris.Wrap(rows.Err(), "postgres index: iterate hits")
}

func (p *PostgresIndex) GetByMetadata(ctx context.Context, pred Predicate, limit int) ([]model.DocumentRecord, error) {
	clause, args, err := toSQL(pred, postgresDocColumns, postgresPlaceholder, 0)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT id, filename, company, year, metadata, created_at FROM documents`
	if clause != "" {
		stmt += " WHERE " + clause
	}
	stmt += " ORDER BY created_at DESC"
	if limit > 0 {
		stmt += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := p.pool.Query(ctx, stmt, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: query documents")
	}
	defer rows.Close()

	var docs []model.DocumentRecord
	for rows.Next() {
		doc, err := scanPostgresDocument(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "postgres index: scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, eris.Wrap(rows.Err(), "postgres index: iterate documents")
}

func (p *PostgresIndex) GetByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT id, filename, company, year, metadata, created_at FROM documents WHERE id = $1`, id)

	doc, err := scanPostgresDocument(row.Scan)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: get document")
	}
	return doc, nil
}

func (p *PostgresIndex) ListDistinct(ctx context.Context, field string) ([]string, error) {
	col, ok := postgresDocColumns[field]
	if !ok {
		return nil, eris.Errorf("index: unknown distinct field %q", field)
	}

	rows, err := p.pool.Query(ctx,
		"SELECT DISTINCT "+col+"::text FROM documents ORDER BY 1")
	if err != nil {
		return nil, eris.Wrap(err, "postgres index: list distinct")
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres index: scan distinct value")
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (p *PostgresIndex) Recent(ctx context.Context, limit int) ([]model.DocumentRecord, error) {
	return p.GetByMetadata(ctx, nil, limit)
}

func (p *PostgresIndex) AddDocument(ctx context.Context, doc model.DocumentRecord, chunks []IngestChunk) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres index: begin tx")
	}
	defer tx.Rollback(ctx)

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "postgres index: marshal metadata")
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO documents (id, filename, company, year, metadata, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.Filename, doc.Company, doc.Year, string(metaJSON), createdAt,
	); err != nil {
		return eris.Wrap(err, "postgres index: insert document")
	}

	for i, ch := range chunks {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chunks (id, document_id, content, page, chunk_index, embedding) VALUES ($1, $2, $3, $4, $5, $6::vector)`,
			doc.ID+"_"+strconv.Itoa(i), doc.ID, ch.Content, ch.Page, ch.ChunkIndex, vectorLiteral(ch.Embedding),
		); err != nil {
			return eris.Wrap(err, "postgres index: insert chunk")
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres index: commit")
}

func scanPostgresDocument(scan func(...any) error) (*model.DocumentRecord, error) {
	var doc model.DocumentRecord
	var metaJSON []byte
	if err := scan(&doc.ID, &doc.Filename, &doc.Company, &doc.Year, &metaJSON, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &doc.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres index: unmarshal metadata")
		}
	}
	return &doc, nil
}

// vectorLiteral renders a float slice in pgvector's text format, e.g.
// "[0.1,0.2,0.3]".
func vectorLiteral(vec []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	}
	b.WriteByte(']')
	return b.String()
}
