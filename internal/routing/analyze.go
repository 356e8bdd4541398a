package routing

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
)

//go:embed keywords.yaml
var keywordsYAML []byte

type keywordSets struct {
	Market    []string `yaml:"market"`
	Narrative []string `yaml:"narrative"`
}

var keywords = mustLoadKeywords()

func mustLoadKeywords() keywordSets {
	var ks keywordSets
	if err := yaml.Unmarshal(keywordsYAML, &ks); err != nil {
		panic(fmt.Sprintf("routing: bad embedded keyword config: %v", err))
	}
	return ks
}

// symbolPattern matches uppercase 1-5 letter tokens as candidate tickers.
var symbolPattern = regexp.MustCompile(`\b[A-Z]{1,5}\b`)

const analyzeSystemPrompt = `You are a query router for a financial Q&A system. Always respond with valid JSON only.`

const analyzePrompt = `Analyze this financial query and determine the best data source to answer it.

Query: "%s"

Consider:
- retrieval (documents): for qualitative analysis, company strategies, reports, qualitative insights
- market (live data): for current prices, quantitative data, predictions, market data, stock prices, charts, trends
- mixed: for queries requiring both qualitative and quantitative information

Also consider if the query is asking for:
- Visual representation (charts, graphs)
- Market summaries
- Multi-company comparisons
- Historical trends

Respond with JSON only:
{
    "query_type": "retrieval|market|mixed",
    "confidence": 0.0-1.0,
    "symbols": ["AAPL", "GOOGL"],
    "is_prediction": true/false,
    "is_quantitative": true/false,
    "reasoning": "explanation"
}`

// Analyzer decides which data source a question needs. The completion call is
// attempted once; any failure drops straight to the deterministic keyword
// scoring rather than retrying.
type Analyzer struct {
	ai    anthropic.Client
	model string
}

// NewAnalyzer creates an analyzer. A nil client skips the completion path
// entirely and always uses keyword scoring.
func NewAnalyzer(ai anthropic.Client, llmModel string) *Analyzer {
	return &Analyzer{ai: ai, model: llmModel}
}

// Analyze classifies the question's query type. It never fails; the keyword
// fallback always produces an answer.
func (a *Analyzer) Analyze(ctx context.Context, question string) model.QueryAnalysis {
	if a.ai == nil {
		return KeywordAnalysis(question)
	}

	temp := 0.0
	resp, err := a.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       a.model,
		MaxTokens:   300,
		System:      analyzeSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(analyzePrompt, question)},
		},
	})
	if err != nil {
		zap.L().Warn("routing: query analysis call failed, using keyword scoring", zap.Error(err))
		return KeywordAnalysis(question)
	}

	analysis, err := parseAnalysis(resp)
	if err != nil {
		zap.L().Warn("routing: query analysis parse failed, using keyword scoring", zap.Error(err))
		return KeywordAnalysis(question)
	}
	return analysis
}

func parseAnalysis(resp *anthropic.MessageResponse) (model.QueryAnalysis, error) {
	text := strings.TrimSpace(extractText(resp))

	// Strip code fences and surrounding prose.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var raw struct {
		QueryType      string   `json:"query_type"`
		Confidence     float64  `json:"confidence"`
		Symbols        []string `json:"symbols"`
		IsPrediction   bool     `json:"is_prediction"`
		IsQuantitative bool     `json:"is_quantitative"`
		Reasoning      string   `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return model.QueryAnalysis{}, err
	}

	qt := model.QueryType(strings.ToLower(raw.QueryType))
	valid := false
	for _, t := range model.AllQueryTypes() {
		if t == qt {
			valid = true
			break
		}
	}
	if !valid {
		qt = model.QueryTypeRetrieval
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return model.QueryAnalysis{
		QueryType:      qt,
		Confidence:     confidence,
		Symbols:        raw.Symbols,
		IsPrediction:   raw.IsPrediction,
		IsQuantitative: raw.IsQuantitative,
		Reasoning:      raw.Reasoning,
	}, nil
}

// KeywordAnalysis scores the question against the fixed market and narrative
// keyword sets. Ties at zero with ticker-like tokens present default to
// market; otherwise retrieval.
func KeywordAnalysis(question string) model.QueryAnalysis {
	lower := strings.ToLower(question)

	symbols := symbolPattern.FindAllString(question, -1)

	marketScore := countMatches(lower, keywords.Market)
	narrativeScore := countMatches(lower, keywords.Narrative)

	var qt model.QueryType
	var confidence float64
	switch {
	case marketScore > narrativeScore && marketScore > 0:
		qt = model.QueryTypeMarket
		confidence = min(0.9, float64(marketScore)/5)
	case narrativeScore > marketScore && narrativeScore > 0:
		qt = model.QueryTypeRetrieval
		confidence = min(0.9, float64(narrativeScore)/5)
	case len(symbols) > 0:
		qt = model.QueryTypeMarket
		confidence = 0.7
	default:
		qt = model.QueryTypeRetrieval
		confidence = 0.5
	}

	return model.QueryAnalysis{
		QueryType:      qt,
		Confidence:     confidence,
		Symbols:        symbols,
		IsPrediction:   strings.Contains(lower, "prediction") || strings.Contains(lower, "forecast"),
		IsQuantitative: marketScore > 0,
		Reasoning: fmt.Sprintf("Keyword analysis: market=%d, narrative=%d, symbols=%v",
			marketScore, narrativeScore, symbols),
	}
}

func countMatches(lower string, terms []string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			count++
		}
	}
	return count
}

// extractText concatenates all text blocks from a message response.
func extractText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
