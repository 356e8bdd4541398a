package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/embeddings"
)

// SQLiteIndex implements Index on a local SQLite file using modernc.org/sqlite.
// Chunk embeddings are stored as float64 blobs and scored brute-force in Go
// with cosine distance. Suitable for local corpora up to a few hundred
// thousand chunks.
type SQLiteIndex struct {
	db       *sql.DB
	embedder embeddings.Client
}

// NewSQLite opens a SQLite index at the given path and configures WAL mode.
func NewSQLite(dsn string, embedder embeddings.Client) (*SQLiteIndex, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite index: exec %s", pragma)
		}
	}
	return &SQLiteIndex{db: db, embedder: embedder}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	filename   TEXT NOT NULL,
	company    TEXT NOT NULL,
	year       INTEGER NOT NULL,
	metadata   TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS chunks (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	content     TEXT NOT NULL,
	page        INTEGER NOT NULL DEFAULT 0,
	chunk_index INTEGER NOT NULL DEFAULT 0,
	embedding   BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_company ON documents(company);
CREATE INDEX IF NOT EXISTS idx_documents_year ON documents(year);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
`

func (s *SQLiteIndex) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite index: migrate")
}

func (s *SQLiteIndex) Close() error {
	return s.db.Close()
}

// sqliteColumns maps predicate fields to qualified columns for queries that
// join chunks c against documents d.
var sqliteColumns = map[string]string{
	"company":     "d.company",
	"year":        "d.year",
	"document_id": "c.document_id",
}

var sqliteDocColumns = map[string]string{
	"company": "company",
	"year":    "year",
}

func sqlitePlaceholder(int) string { return "?" }

func (s *SQLiteIndex) QueryByText(ctx context.Context, text string, k int, pred Predicate) ([]Hit, error) {
	vecs, err := s.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: embed query")
	}
	query := vecs[0]

	clause, args, err := toSQL(pred, sqliteColumns, sqlitePlaceholder, 0)
	if err != nil {
		return nil, err
	}

	stmt := `SELECT c.id, c.document_id, c.content, c.page, c.chunk_index, c.embedding, d.company, d.year
		FROM chunks c JOIN documents d ON d.id = c.document_id`
	if clause != "" {
		stmt += " WHERE " + clause
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: query chunks")
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var h Hit
		var blob []byte
		if err := rows.Scan(&h.ID, &h.DocumentID, &h.Content, &h.Page, &h.ChunkIndex, &blob, &h.Company, &h.Year); err != nil {
			return nil, eris.Wrap(err, "sqlite index: scan chunk")
		}
		emb, err := decodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		h.Distance = cosineDistance(query, emb)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite index: iterate chunks")
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *SQLiteIndex) GetByMetadata(ctx context.Context, pred Predicate, limit int) ([]model.DocumentRecord, error) {
	clause, args, err := toSQL(pred, sqliteDocColumns, sqlitePlaceholder, 0)
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

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: query documents")
	}
	defer rows.Close()

	return scanSQLiteDocuments(rows)
}

func (s *SQLiteIndex) GetByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, filename, company, year, metadata, created_at FROM documents WHERE id = ?`, id)

	doc, err := scanSQLiteDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: get document")
	}
	return doc, nil
}

func (s *SQLiteIndex) ListDistinct(ctx context.Context, field string) ([]string, error) {
	col, ok := sqliteDocColumns[field]
	if !ok {
		return nil, eris.Errorf("index: unknown distinct field %q", field)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT "+col+" FROM documents ORDER BY "+col)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite index: list distinct")
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite index: scan distinct value")
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func (s *SQLiteIndex) Recent(ctx context.Context, limit int) ([]model.DocumentRecord, error) {
	return s.GetByMetadata(ctx, nil, limit)
}

func (s *SQLiteIndex) AddDocument(ctx context.Context, doc model.DocumentRecord, chunks []IngestChunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite index: begin tx")
	}
	defer tx.Rollback()

	metaJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite index: marshal metadata")
	}

	createdAt := doc.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, filename, company, year, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Filename, doc.Company, doc.Year, string(metaJSON), createdAt,
	); err != nil {
		return eris.Wrap(err, "sqlite index: insert document")
	}

	for i, ch := range chunks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, document_id, content, page, chunk_index, embedding) VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID+"_"+strconv.Itoa(i), doc.ID, ch.Content, ch.Page, ch.ChunkIndex, encodeEmbedding(ch.Embedding),
		); err != nil {
			return eris.Wrap(err, "sqlite index: insert chunk")
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite index: commit")
}

func scanSQLiteDocuments(rows *sql.Rows) ([]model.DocumentRecord, error) {
	var docs []model.DocumentRecord
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows.Scan)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite index: scan document")
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func scanSQLiteDocument(scan func(...any) error) (*model.DocumentRecord, error) {
	var doc model.DocumentRecord
	var metaJSON sql.NullString
	if err := scan(&doc.ID, &doc.Filename, &doc.Company, &doc.Year, &metaJSON, &doc.CreatedAt); err != nil {
		return nil, err
	}
	if metaJSON.Valid && metaJSON.String != "" {
		if err := json.Unmarshal([]byte(metaJSON.String), &doc.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite index: unmarshal metadata")
		}
	}
	return &doc, nil
}

// encodeEmbedding packs a float64 vector as a little-endian blob.
func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(blob []byte) ([]float64, error) {
	if len(blob)%8 != 0 {
		return nil, eris.Errorf("sqlite index: malformed embedding blob of %d bytes", len(blob))
	}
	vec := make([]float64, len(blob)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(blob[i*8:]))
	}
	return vec, nil
}

// cosineDistance returns 1 - cosine similarity, in [0, 2]. Zero-norm vectors
// are treated as maximally distant.
func cosineDistance(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 2.0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 2.0
	}
	return 1.0 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
