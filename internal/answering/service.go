// Package answering implements the retrieval half of the query pipeline:
// intent extraction, question classification, document filtering, semantic
// retrieval, and grounded answer generation.
package answering

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
)

// Service chains the full retrieval pipeline for one question: filter
// documents (user selection or intent-based), retrieve chunks, generate the
// answer, and summarize sentiment.
type Service struct {
	extractor  *IntentExtractor
	classifier *QuestionClassifier
	filter     *DocumentFilter
	retriever  *Retriever
	generator  *AnswerGenerator
	idx        index.Index

	topK      int
	threshold float64
}

// NewService wires the pipeline components over a shared index and
// completion client.
func NewService(ai anthropic.Client, idx index.Index, llmModel string, maxRetries, topK int, threshold float64) *Service {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	return &Service{
		extractor:  NewIntentExtractor(ai, llmModel, maxRetries),
		classifier: NewQuestionClassifier(ai, llmModel, maxRetries),
		filter:     NewDocumentFilter(idx),
		retriever:  NewRetriever(idx),
		generator:  NewAnswerGenerator(ai, llmModel),
		idx:        idx,
		topK:       topK,
		threshold:  threshold,
	}
}

// Classify exposes facet classification for callers outside the pipeline.
func (s *Service) Classify(ctx context.Context, question string) model.ClassificationResult {
	return s.classifier.Classify(ctx, question, s.corpusContext(ctx))
}

// ProcessQuery runs the complete retrieval pipeline. When selectedDocuments
// is non-empty those IDs are used verbatim, bypassing intent extraction;
// missing IDs are skipped rather than treated as errors.
func (s *Service) ProcessQuery(ctx context.Context, question string, selectedDocuments []string) model.RAGResult {
	var docs []model.DocumentRecord
	var filterApplied string

	if len(selectedDocuments) > 0 {
		docs = s.lookupSelected(ctx, selectedDocuments)
		filterApplied = DescribeSelection(len(selectedDocuments))
	} else {
		intent := s.extractor.Extract(ctx, question, s.corpusContext(ctx))
		fr := s.filter.FilterByIntent(ctx, intent)
		docs = fr.Documents
		filterApplied = fr.FilterApplied
	}

	if len(docs) == 0 {
		return model.RAGResult{
			Answer:        NoRelevantDocsMessage,
			FilterApplied: filterApplied,
		}
	}

	retrieval := s.retriever.Retrieve(ctx, question, docs, s.topK, s.threshold)
	answer := s.generator.GenerateAnswer(ctx, question, retrieval.Chunks)
	sentiment := s.generator.AnalyzeSentiment(ctx, retrieval.Chunks)

	return model.RAGResult{
		Answer:        answer,
		Sentiment:     sentiment,
		ChunksUsed:    retrieval.TotalChunks,
		FilterApplied: filterApplied,
	}
}

func (s *Service) lookupSelected(ctx context.Context, ids []string) []model.DocumentRecord {
	var docs []model.DocumentRecord
	for _, id := range ids {
		doc, err := s.idx.GetByID(ctx, id)
		if err != nil {
			zap.L().Warn("answering: selected document lookup failed",
				zap.String("document_id", id),
				zap.Error(err),
			)
			continue
		}
		if doc == nil {
			zap.L().Warn("answering: selected document not found", zap.String("document_id", id))
			continue
		}
		docs = append(docs, *doc)
	}
	return docs
}

// corpusContext collects the distinct companies and years in the index to
// ground extraction and classification prompts. Failures just mean less
// context, not a failed request.
func (s *Service) corpusContext(ctx context.Context) map[string]any {
	extra := make(map[string]any)
	if companies, err := s.idx.ListDistinct(ctx, "company"); err == nil && len(companies) > 0 {
		extra["available_companies"] = companies
	}
	if years, err := s.idx.ListDistinct(ctx, "year"); err == nil && len(years) > 0 {
		parsed := make([]int, 0, len(years))
		for _, y := range years {
			if n, err := strconv.Atoi(y); err == nil {
				parsed = append(parsed, n)
			}
		}
		if len(parsed) > 0 {
			extra["available_years"] = parsed
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
