package answering

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
)

// Fixed fallback messages. These are user-visible contract, not placeholders.
const (
	NoRelevantInfoMessage   = "I couldn't find any relevant information to answer your question."
	NoRelevantDocsMessage   = "I couldn't find any relevant documents for your question."
	AnswerFailureMessage    = "I apologize, but I encountered an error while generating the answer. Please try again."
	NoStockDataMessage      = "I couldn't retrieve the requested stock data."
	NoMarketDataMessage     = "I couldn't retrieve current market data."
	MarketFailureMessage    = "I couldn't retrieve the financial data you requested. Please try again."
	RoutingFailureMessage   = "I encountered an error while processing your query. Please try again."
	answerContextChunkLimit = 5
)

// AnswerGenerator synthesizes final natural-language text from retrieved
// passages or market figures. Completion failures never propagate; callers
// always get usable text.
type AnswerGenerator struct {
	ai    anthropic.Client
	model string
}

// NewAnswerGenerator creates a generator using the given completion model.
func NewAnswerGenerator(ai anthropic.Client, llmModel string) *AnswerGenerator {
	return &AnswerGenerator{ai: ai, model: llmModel}
}

// GenerateAnswer produces a grounded answer from the top retrieved chunks.
// With no chunks it returns the fixed no-information message without calling
// the completion service.
func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, question string, chunks []model.Chunk) string {
	if len(chunks) == 0 {
		return NoRelevantInfoMessage
	}

	temp := 0.3
	resp, err := g.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   1000,
		System:      answerSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(answerPrompt, chunkContext(chunks), question)},
		},
	})
	if err != nil {
		zap.L().Error("generate: answer generation failed", zap.Error(err))
		return AnswerFailureMessage
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return AnswerFailureMessage
	}
	return answer
}

// AnalyzeSentiment summarizes the sentiment of the retrieved chunks. Returns
// "" with no chunks or on any failure; sentiment is best-effort.
func (g *AnswerGenerator) AnalyzeSentiment(ctx context.Context, chunks []model.Chunk) string {
	if len(chunks) == 0 {
		return ""
	}

	temp := 0.3
	resp, err := g.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   500,
		System:      sentimentSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(sentimentPrompt, chunkContext(chunks))},
		},
	})
	if err != nil {
		zap.L().Error("generate: sentiment analysis failed", zap.Error(err))
		return ""
	}
	return strings.TrimSpace(extractText(resp))
}

// GenerateMarketAnswer answers a question from live quote data. On completion
// failure it degrades to the templated quote summary.
func (g *AnswerGenerator) GenerateMarketAnswer(ctx context.Context, question string, quotes map[string]model.Quote) string {
	if len(quotes) == 0 {
		return NoStockDataMessage
	}

	var lines []string
	for _, symbol := range sortedSymbols(quotes) {
		q := quotes[symbol]
		lines = append(lines, fmt.Sprintf("%s: $%.2f (%+.2f, %+.2f%%)", symbol, q.Price, q.Change, q.ChangePercent))
	}

	temp := 0.3
	resp, err := g.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       g.model,
		MaxTokens:   500,
		System:      marketAnswerSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(marketAnswerPrompt, strings.Join(lines, "\n"), question)},
		},
	})
	if err != nil {
		zap.L().Error("generate: market answer generation failed", zap.Error(err))
		return SimpleQuoteAnswer(quotes)
	}

	answer := strings.TrimSpace(extractText(resp))
	if answer == "" {
		return SimpleQuoteAnswer(quotes)
	}
	return answer
}

// SimpleQuoteAnswer renders quotes as a deterministic templated answer.
func SimpleQuoteAnswer(quotes map[string]model.Quote) string {
	if len(quotes) == 0 {
		return NoStockDataMessage
	}
	var parts []string
	for _, symbol := range sortedSymbols(quotes) {
		q := quotes[symbol]
		parts = append(parts, fmt.Sprintf("%s is currently trading at $%.2f (%+.2f, %+.2f%%)",
			symbol, q.Price, q.Change, q.ChangePercent))
	}
	return strings.Join(parts, " | ")
}

// MarketSummaryAnswer renders index quotes as a templated summary, using
// display names where known.
func MarketSummaryAnswer(summary map[string]model.Quote, names map[string]string) string {
	if len(summary) == 0 {
		return NoMarketDataMessage
	}
	var parts []string
	for _, symbol := range sortedSymbols(summary) {
		q := summary[symbol]
		name := symbol
		if n, ok := names[symbol]; ok {
			name = n
		}
		parts = append(parts, fmt.Sprintf("%s: %.2f (%+.2f, %+.2f%%)", name, q.Price, q.Change, q.ChangePercent))
	}
	return strings.Join(parts, " | ")
}

// chunkContext builds the bounded prompt context: top chunks, each tagged
// with its source company and year.
func chunkContext(chunks []model.Chunk) string {
	var parts []string
	for i, c := range chunks {
		if i >= answerContextChunkLimit {
			break
		}
		if strings.TrimSpace(c.Content) == "" {
			continue
		}
		company := c.Company
		if company == "" {
			company = "Unknown"
		}
		year := "Unknown"
		if c.Year != 0 {
			year = fmt.Sprintf("%d", c.Year)
		}
		parts = append(parts, fmt.Sprintf("Document %d (%s, %s):\n%s\n", i+1, company, year, c.Content))
	}
	if len(parts) == 0 {
		return "No relevant documents found."
	}
	return strings.Join(parts, "\n")
}

func sortedSymbols(quotes map[string]model.Quote) []string {
	symbols := make([]string, 0, len(quotes))
	for s := range quotes {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols
}
