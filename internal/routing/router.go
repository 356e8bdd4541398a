// Package routing decides per-question which data source to consult:
// document retrieval, live market data, or both, with a deterministic
// keyword fallback when the completion service is unavailable.
package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/answering"
	"github.com/sells-group/finsight/internal/model"
)

// Router orchestrates one request: analyze the query type, dispatch to the
// retrieval and/or market branch, and merge the results. Route never returns
// an error; dispatch failures surface as an apologetic answer with
// source=error.
type Router struct {
	analyzer *Analyzer
	rag      *answering.Service
	branch   *MarketBranch
}

// NewRouter wires the router over its two branches.
func NewRouter(analyzer *Analyzer, rag *answering.Service, branch *MarketBranch) *Router {
	return &Router{analyzer: analyzer, rag: rag, branch: branch}
}

// Route processes a question end to end. selectedDocuments, when non-empty,
// pins the retrieval branch to those document IDs verbatim.
func (r *Router) Route(ctx context.Context, question string, selectedDocuments []string) (result model.RouterResult) {
	start := time.Now()

	// A panic anywhere in dispatch becomes the terminal error state instead
	// of crashing the CLI or bubbling a bare 500 out of the API.
	defer func() {
		if rec := recover(); rec != nil {
			zap.L().Error("routing: dispatch panicked", zap.Any("panic", rec))
			result = model.RouterResult{
				Source: model.SourceError,
				Answer: answering.RoutingFailureMessage,
			}
		}
		result.ProcessingTime = time.Since(start)
	}()

	analysis := r.analyzer.Analyze(ctx, question)
	zap.L().Info("routing: query analyzed",
		zap.String("query_type", string(analysis.QueryType)),
		zap.Float64("confidence", analysis.Confidence),
		zap.Strings("symbols", analysis.Symbols),
	)

	switch analysis.QueryType {
	case model.QueryTypeMarket:
		result = r.handleMarket(ctx, question, analysis)
	case model.QueryTypeMixed:
		result = r.handleMixed(ctx, question, selectedDocuments, analysis)
	default:
		// retrieval, fallback, and anything unexpected go to retrieval.
		result = r.handleRetrieval(ctx, question, selectedDocuments)
	}
	return result
}

func (r *Router) handleRetrieval(ctx context.Context, question string, selectedDocuments []string) model.RouterResult {
	rag := r.rag.ProcessQuery(ctx, question, selectedDocuments)
	return model.RouterResult{
		Source:    model.SourceRetrieval,
		Answer:    rag.Answer,
		Sentiment: rag.Sentiment,
		Data: map[string]any{
			"chunks_used":    rag.ChunksUsed,
			"filter_applied": rag.FilterApplied,
		},
	}
}

func (r *Router) handleMarket(ctx context.Context, question string, analysis model.QueryAnalysis) model.RouterResult {
	content, charts, err := r.branch.Handle(ctx, question, analysis)
	if err != nil {
		// The specialized branch failed; try plain quotes before giving up.
		zap.L().Warn("routing: market branch failed, trying quote fallback", zap.Error(err))
		content, charts, err = r.branch.quoteFallback(ctx, question, analysis.Symbols)
		if err != nil {
			return model.RouterResult{
				Source: model.SourceMarket,
				Answer: answering.MarketFailureMessage,
			}
		}
	}

	return model.RouterResult{
		Source: model.SourceMarket,
		Answer: content,
		Charts: charts,
		Data: map[string]any{
			"symbols": analysis.Symbols,
			"query_analysis": map[string]any{
				"is_prediction":   analysis.IsPrediction,
				"is_quantitative": analysis.IsQuantitative,
				"confidence":      analysis.Confidence,
			},
		},
	}
}

// handleMixed runs both branches sequentially: retrieval narrative first,
// then market content appended. A failed market side degrades to a quote
// summary line rather than failing the request.
func (r *Router) handleMixed(ctx context.Context, question string, selectedDocuments []string, analysis model.QueryAnalysis) model.RouterResult {
	rag := r.rag.ProcessQuery(ctx, question, selectedDocuments)

	marketContent, charts, err := r.branch.Handle(ctx, question, analysis)
	if err != nil {
		zap.L().Warn("routing: market side of mixed query failed", zap.Error(err))
		marketContent, charts = "", nil
	}

	answer := rag.Answer
	if marketContent != "" {
		answer += "\n\nFinancial Analysis: " + marketContent
	} else if len(analysis.Symbols) > 0 {
		// Charts failed; append a simple quote summary if we can get one.
		if summary := r.branch.QuoteSummary(ctx, analysis.Symbols); summary != "" {
			answer += "\n\nCurrent Market Data: " + summary
		}
	}

	return model.RouterResult{
		Source:    model.SourceMixed,
		Answer:    answer,
		Sentiment: rag.Sentiment,
		Charts:    charts,
		Data: map[string]any{
			"rag_chunks":      rag.ChunksUsed,
			"finance_symbols": analysis.Symbols,
		},
	}
}
