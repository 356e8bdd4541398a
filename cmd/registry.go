package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finsight/internal/answering"
	"github.com/sells-group/finsight/internal/forecast"
	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/ingest"
	"github.com/sells-group/finsight/internal/routing"
	"github.com/sells-group/finsight/pkg/anthropic"
	"github.com/sells-group/finsight/pkg/embeddings"
	"github.com/sells-group/finsight/pkg/marketdata"
)

// registry holds every service constructed once at process start and passed
// by reference into command and request handlers. No lazy singletons.
type registry struct {
	Index      index.Index
	RAG        *answering.Service
	Router     *routing.Router
	Forecaster *forecast.Service
	Market     marketdata.Client
	Ingester   *ingest.Ingester
}

// Close releases resources held by the registry.
func (r *registry) Close() {
	if r.Index != nil {
		_ = r.Index.Close()
	}
}

// initRegistry validates config for the given scope, opens the index, and
// wires all services. Callers should defer reg.Close().
func initRegistry(ctx context.Context, scope string) (*registry, error) {
	if err := cfg.Validate(scope); err != nil {
		return nil, err
	}

	embedder := embeddings.NewClient(cfg.Embeddings.Key,
		embeddings.WithBaseURL(cfg.Embeddings.BaseURL),
		embeddings.WithModel(cfg.Embeddings.Model),
	)

	idx, err := initIndex(ctx, embedder)
	if err != nil {
		return nil, err
	}
	if err := idx.Migrate(ctx); err != nil {
		_ = idx.Close()
		return nil, eris.Wrap(err, "migrate index")
	}

	var ai anthropic.Client
	if cfg.Anthropic.Key != "" {
		ai = anthropic.NewClient(cfg.Anthropic.Key)
	}

	market := marketdata.NewClient(marketdata.WithBaseURL(cfg.Market.BaseURL))
	forecaster := forecast.NewService(market)

	rag := answering.NewService(ai, idx, cfg.Anthropic.Model,
		cfg.Pipeline.MaxRetries, cfg.Pipeline.TopK, cfg.Pipeline.SimilarityThreshold)

	generator := answering.NewAnswerGenerator(ai, cfg.Anthropic.Model)
	branch := routing.NewMarketBranch(ai, cfg.Anthropic.Model, market, forecaster, generator)
	analyzer := routing.NewAnalyzer(ai, cfg.Anthropic.Model)
	router := routing.NewRouter(analyzer, rag, branch)

	ingester := ingest.NewIngester(idx, embedder,
		ingest.WithChunking(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap),
		ingest.WithConcurrency(cfg.Ingest.Concurrency),
	)

	return &registry{
		Index:      idx,
		RAG:        rag,
		Router:     router,
		Forecaster: forecaster,
		Market:     market,
		Ingester:   ingester,
	}, nil
}

func initIndex(ctx context.Context, embedder embeddings.Client) (index.Index, error) {
	switch cfg.Index.Driver {
	case "postgres":
		return index.NewPostgres(ctx, cfg.Index.DatabaseURL, embedder)
	case "sqlite", "":
		return index.NewSQLite(cfg.Index.SQLitePath, embedder)
	default:
		return nil, eris.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
}
