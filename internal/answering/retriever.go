package answering

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
)

const (
	// DefaultTopK is the raw hit count requested from the index per query.
	DefaultTopK = 10
	// DefaultSimilarityThreshold discards weakly related chunks post-hoc.
	DefaultSimilarityThreshold = 0.1
)

// Retriever runs semantic similarity search restricted to a candidate
// document set, normalizes distances to similarity scores, applies the
// threshold, and ranks. Search failures recover as an empty result.
type Retriever struct {
	idx index.Index
}

// NewRetriever creates a retriever over the given index.
func NewRetriever(idx index.Index) *Retriever {
	return &Retriever{idx: idx}
}

// Retrieve returns the most relevant chunks for the question among the
// candidate documents. An empty candidate set returns an empty result without
// touching the index. The threshold is applied after fetching topK raw hits;
// the index itself is never asked to cut by score.
func (r *Retriever) Retrieve(ctx context.Context, question string, candidates []model.DocumentRecord, topK int, threshold float64) model.RetrievalResult {
	if len(candidates) == 0 {
		return emptyRetrieval(question)
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	ids := make([]any, 0, len(candidates))
	for _, doc := range candidates {
		if doc.ID != "" {
			ids = append(ids, doc.ID)
		}
	}
	if len(ids) == 0 {
		zap.L().Warn("retriever: no valid document IDs among candidates")
		return emptyRetrieval(question)
	}

	hits, err := r.idx.QueryByText(ctx, question, topK, index.OneOf{Field: "document_id", Values: ids})
	if err != nil {
		zap.L().Error("retriever: similarity search failed", zap.Error(err))
		return emptyRetrieval(question)
	}

	chunks := normalizeHits(hits, threshold)

	result := model.RetrievalResult{
		Chunks:        chunks,
		TotalChunks:   len(chunks),
		AvgSimilarity: avgSimilarity(chunks),
		QueryUsed:     question,
	}
	zap.L().Info("retriever: retrieved chunks",
		zap.Int("chunks", len(chunks)),
		zap.Float64("avg_similarity", result.AvgSimilarity),
	)
	return result
}

// normalizeHits converts raw hits to canonical chunks: scores each distance,
// drops empty content and sub-threshold hits, and sorts by similarity
// descending with a stable tie-break on engine order.
func normalizeHits(hits []index.Hit, threshold float64) []model.Chunk {
	chunks := make([]model.Chunk, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		sim := distanceToSimilarity(h.Distance)
		if sim < threshold {
			continue
		}
		chunks = append(chunks, model.Chunk{
			ID:         h.ID,
			DocumentID: h.DocumentID,
			Content:    h.Content,
			Similarity: sim,
			Distance:   h.Distance,
			Company:    h.Company,
			Year:       h.Year,
			Page:       h.Page,
			ChunkIndex: h.ChunkIndex,
		})
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Similarity > chunks[j].Similarity
	})
	return chunks
}

// distanceToSimilarity maps an engine-native distance to [0,1]. Distances in
// the 0-2 range are treated as cosine (1 - d); larger values as Euclidean
// (1 / (1 + d)).
func distanceToSimilarity(d float64) float64 {
	var sim float64
	if d >= 0 && d <= 2 {
		sim = 1 - d
	} else {
		sim = 1 / (1 + d)
	}
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}

func avgSimilarity(chunks []model.Chunk) float64 {
	if len(chunks) == 0 {
		return 0
	}
	var sum float64
	for _, c := range chunks {
		sum += c.Similarity
	}
	return sum / float64(len(chunks))
}

func emptyRetrieval(question string) model.RetrievalResult {
	return model.RetrievalResult{QueryUsed: question}
}
