package model

import "time"

// QueryType is the routing decision for a question: which data source(s)
// the router consults to answer it.
type QueryType string

const (
	QueryTypeRetrieval QueryType = "retrieval"
	QueryTypeMarket    QueryType = "market"
	QueryTypeMixed     QueryType = "mixed"
	QueryTypeFallback  QueryType = "fallback"
)

// AllQueryTypes returns the valid routing decisions.
func AllQueryTypes() []QueryType {
	return []QueryType{QueryTypeRetrieval, QueryTypeMarket, QueryTypeMixed, QueryTypeFallback}
}

// ExtractedIntent holds the structured entities pulled out of a question.
// Company names are case-folded before they enter this struct; comparisons
// anywhere downstream assume folded form.
type ExtractedIntent struct {
	Companies []string `json:"companies"`
	Years     []int    `json:"years"`
}

// IsEmpty reports whether the intent carries no entities.
func (i ExtractedIntent) IsEmpty() bool {
	return len(i.Companies) == 0 && len(i.Years) == 0
}

// ClassificationResult holds the four response facets a question calls for.
// Text is always true: every response carries explanatory text regardless of
// what the model returned.
type ClassificationResult struct {
	Text           bool `json:"text"`
	Recommendation bool `json:"recommendation"`
	Charts         bool `json:"charts"`
	Preview        bool `json:"preview"`
}

// DefaultClassification is the safe default used when classification fails.
func DefaultClassification() ClassificationResult {
	return ClassificationResult{Text: true}
}

// QueryAnalysis is the router's per-request assessment of a question.
type QueryAnalysis struct {
	QueryType      QueryType `json:"query_type"`
	Confidence     float64   `json:"confidence"`
	Symbols        []string  `json:"symbols"`
	IsPrediction   bool      `json:"is_prediction"`
	IsQuantitative bool      `json:"is_quantitative"`
	Reasoning      string    `json:"reasoning"`
}

// RouterSource identifies which branch produced a RouterResult.
type RouterSource string

const (
	SourceRetrieval RouterSource = "retrieval"
	SourceMarket    RouterSource = "market"
	SourceMixed     RouterSource = "mixed"
	SourceError     RouterSource = "error"
)

// Chart is a renderer-agnostic chart descriptor returned alongside an answer.
type Chart struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"` // "pie" or "line"
	Title          string           `json:"title"`
	Data           []map[string]any `json:"data"`
	XKey           string           `json:"x_key,omitempty"`
	YKey           string           `json:"y_key,omitempty"`
	DataKeys       []string         `json:"data_keys,omitempty"`
	Colors         []string         `json:"colors,omitempty"`
	TimeRange      string           `json:"time_range,omitempty"`
	ConfidenceBand bool             `json:"confidence_band,omitempty"`
}

// RouterResult is the final output of one routed request.
type RouterResult struct {
	Source         RouterSource   `json:"source"`
	Answer         string         `json:"answer"`
	Sentiment      string         `json:"sentiment,omitempty"`
	Charts         []Chart        `json:"charts,omitempty"`
	Data           map[string]any `json:"data,omitempty"`
	ProcessingTime time.Duration  `json:"processing_time"`
}

// RAGResult is the output of the retrieval branch before merging.
type RAGResult struct {
	Answer        string `json:"answer"`
	Sentiment     string `json:"sentiment,omitempty"`
	ChunksUsed    int    `json:"chunks_used"`
	FilterApplied string `json:"filter_applied"`
}
