package answering

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
)

const (
	// filterLimit caps intent-based document queries.
	filterLimit = 50
	// fallbackLimit caps the recent-documents fallback.
	fallbackLimit = 10
)

// DocumentFilter converts extracted intent into a metadata predicate and
// queries the index for matching file-level records.
type DocumentFilter struct {
	idx index.Index
}

// NewDocumentFilter creates a filter over the given index.
func NewDocumentFilter(idx index.Index) *DocumentFilter {
	return &DocumentFilter{idx: idx}
}

// FilterByIntent returns documents matching the intent's companies and years.
// On query failure it falls back to the most recent documents, tagging the
// result as a fallback; zero matches without a failure return an empty set,
// not the fallback. It never returns an error.
func (f *DocumentFilter) FilterByIntent(ctx context.Context, intent model.ExtractedIntent) model.FilterResult {
	pred := intentPredicate(intent)

	docs, err := f.idx.GetByMetadata(ctx, pred, filterLimit)
	if err != nil {
		zap.L().Error("filter: intent query failed, falling back to recent documents", zap.Error(err))
		return f.recentFallback(ctx, intent)
	}

	result := model.FilterResult{
		Documents:      docs,
		TotalFound:     len(docs),
		FilterApplied:  describeFilter(intent),
		CompaniesFound: intent.Companies,
		YearsFound:     sortedYears(intent.Years),
	}
	zap.L().Info("filter: filtered by intent", zap.Int("documents", len(docs)))
	return result
}

func (f *DocumentFilter) recentFallback(ctx context.Context, intent model.ExtractedIntent) model.FilterResult {
	docs, err := f.idx.Recent(ctx, fallbackLimit)
	if err != nil {
		zap.L().Error("filter: recent-documents fallback failed", zap.Error(err))
		docs = nil
	}
	return model.FilterResult{
		Documents:      docs,
		TotalFound:     len(docs),
		FilterApplied:  "Recent documents fallback",
		CompaniesFound: intent.Companies,
		YearsFound:     sortedYears(intent.Years),
		Fallback:       true,
	}
}

// intentPredicate builds the metadata predicate: equality for a single value,
// inclusion for several, companies and years combined with AND. An empty
// intent yields a nil predicate (match everything).
func intentPredicate(intent model.ExtractedIntent) index.Predicate {
	var preds index.And

	if len(intent.Companies) == 1 {
		preds = append(preds, index.Equals{Field: "company", Value: intent.Companies[0]})
	} else if len(intent.Companies) > 1 {
		values := make([]any, len(intent.Companies))
		for i, c := range intent.Companies {
			values[i] = c
		}
		preds = append(preds, index.OneOf{Field: "company", Values: values})
	}

	if len(intent.Years) == 1 {
		preds = append(preds, index.Equals{Field: "year", Value: intent.Years[0]})
	} else if len(intent.Years) > 1 {
		values := make([]any, len(intent.Years))
		for i, y := range intent.Years {
			values[i] = y
		}
		preds = append(preds, index.OneOf{Field: "year", Values: values})
	}

	if len(preds) == 0 {
		return nil
	}
	return preds
}

func describeFilter(intent model.ExtractedIntent) string {
	var parts []string
	if len(intent.Companies) > 0 {
		parts = append(parts, "Companies: "+strings.Join(intent.Companies, ", "))
	}
	if len(intent.Years) > 0 {
		years := make([]string, 0, len(intent.Years))
		for _, y := range sortedYears(intent.Years) {
			years = append(years, strconv.Itoa(y))
		}
		parts = append(parts, "Years: "+strings.Join(years, ", "))
	}
	if len(parts) == 0 {
		return "Intent-based"
	}
	return strings.Join(parts, " | ")
}

func sortedYears(years []int) []int {
	out := make([]int, len(years))
	copy(out, years)
	sort.Ints(out)
	return out
}

// DescribeSelection labels a user-selected document set for observability.
func DescribeSelection(n int) string {
	return fmt.Sprintf("User-selected documents (%d selected)", n)
}
