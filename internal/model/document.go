package model

import "time"

// DocumentRecord is a file-level record in the document index. Records are
// created once at ingestion and read-only to the query pipeline.
type DocumentRecord struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	Company   string         `json:"company"` // case-folded
	Year      int            `json:"year"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Chunk is a scored, retrieved fragment of a source document. It is the one
// canonical chunk shape: the Retriever populates it once from raw index hits
// and downstream components never re-interpret provider field names.
type Chunk struct {
	ID         string  `json:"id"`
	DocumentID string  `json:"document_id"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"` // in [0,1]
	Distance   float64 `json:"distance"`   // raw engine distance
	Company    string  `json:"company"`
	Year       int     `json:"year"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
}

// FilterResult is the outcome of filtering the index by intent.
type FilterResult struct {
	Documents      []DocumentRecord `json:"documents"`
	TotalFound     int              `json:"total_found"`
	FilterApplied  string           `json:"filter_applied"`
	CompaniesFound []string         `json:"companies_found"`
	YearsFound     []int            `json:"years_found"`
	Fallback       bool             `json:"fallback"`
}

// RetrievalResult is the outcome of one semantic retrieval pass.
type RetrievalResult struct {
	Chunks        []Chunk `json:"chunks"`
	TotalChunks   int     `json:"total_chunks"`
	AvgSimilarity float64 `json:"avg_similarity"`
	QueryUsed     string  `json:"query_used"`
}
