package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/answering"
	"github.com/sells-group/finsight/internal/forecast"
	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
	"github.com/sells-group/finsight/pkg/marketdata"
)

const defaultTrendPeriod = "3mo"

const financeIntentSystemPrompt = `You are an intent classifier for financial market questions. Always respond with valid JSON only.`

const financeIntentPrompt = `Classify the intent of this financial market question.

Question: "%s"

Intents:
- "market_summary": the user wants an overview of the major market indices
- "multi_symbol_trend": the user wants to compare the price performance of specific stocks over time
- "forecast": the user wants a price prediction for a specific stock
- "none": none of the above apply

Respond with JSON only:
{
    "intent": "market_summary|multi_symbol_trend|forecast|none",
    "symbols": ["AAPL", "GOOGL"],
    "time_period": "3mo"
}

time_period is a history window like "1mo", "3mo", "1y" for trends, or a
horizon like "Q4 2025" or "3 months" for forecasts. Use "3mo" if unspecified.`

var chartPalette = []string{"#8884d8", "#82ca9d", "#ffc658", "#d0ed57"}

var pieColors = []string{"#0088FE", "#00C49F", "#FFBB28", "#FF8042"}

// MarketBranch handles the market side of routing: it sub-classifies the
// finance intent and builds the matching chart and answer, degrading to a
// plain per-symbol quote answer when the sub-classifier or chart generation
// fails.
type MarketBranch struct {
	ai         anthropic.Client
	model      string
	market     marketdata.Client
	forecaster *forecast.Service
	generator  *answering.AnswerGenerator
}

// NewMarketBranch wires the market branch.
func NewMarketBranch(ai anthropic.Client, llmModel string, market marketdata.Client, forecaster *forecast.Service, generator *answering.AnswerGenerator) *MarketBranch {
	return &MarketBranch{
		ai:         ai,
		model:      llmModel,
		market:     market,
		forecaster: forecaster,
		generator:  generator,
	}
}

type financeIntent struct {
	Intent     string   `json:"intent"`
	Symbols    []string `json:"symbols"`
	TimePeriod string   `json:"time_period"`
}

// Handle answers a market-routed question. It returns an error only when no
// data source at all could produce an answer.
func (b *MarketBranch) Handle(ctx context.Context, question string, analysis model.QueryAnalysis) (string, []model.Chart, error) {
	intent := b.classifyIntent(ctx, question)

	symbols := intent.Symbols
	if len(symbols) == 0 {
		symbols = analysis.Symbols
	}
	period := intent.TimePeriod
	if period == "" {
		period = defaultTrendPeriod
	}

	switch {
	case intent.Intent == "market_summary":
		return b.marketSummaryChart(ctx)
	case intent.Intent == "multi_symbol_trend" && len(symbols) > 0:
		return b.trendChart(ctx, symbols, period)
	case intent.Intent == "forecast" && len(symbols) > 0:
		return b.forecastChart(ctx, symbols[0], period)
	default:
		return b.quoteFallback(ctx, question, symbols)
	}
}

// classifyIntent runs the finance sub-classifier. Any failure maps to the
// "none" intent; the caller falls back to quotes.
func (b *MarketBranch) classifyIntent(ctx context.Context, question string) financeIntent {
	none := financeIntent{Intent: "none"}
	if b.ai == nil {
		return none
	}

	temp := 0.0
	resp, err := b.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       b.model,
		MaxTokens:   200,
		System:      financeIntentSystemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(financeIntentPrompt, question)},
		},
	})
	if err != nil {
		zap.L().Warn("routing: finance intent call failed", zap.Error(err))
		return none
	}

	text := strings.TrimSpace(extractText(resp))
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		text = text[start : end+1]
	}

	var intent financeIntent
	if err := json.Unmarshal([]byte(text), &intent); err != nil {
		zap.L().Warn("routing: finance intent parse failed", zap.Error(err))
		return none
	}
	return intent
}

// marketSummaryChart builds a pie chart of the major indices weighted by
// market capitalization.
func (b *MarketBranch) marketSummaryChart(ctx context.Context) (string, []model.Chart, error) {
	var data []map[string]any
	total := 0.0
	for _, symbol := range marketdata.MarketIndices {
		quote, err := b.market.GetQuote(ctx, symbol)
		if err != nil || quote.MarketCap <= 0 {
			continue
		}
		data = append(data, map[string]any{
			"company": quote.Symbol,
			"value":   quote.MarketCap,
		})
		total += quote.MarketCap
	}
	if len(data) == 0 || total == 0 {
		return "", nil, eris.New("routing: no market cap data for summary chart")
	}
	for _, d := range data {
		d["share"] = math.Round(100*d["value"].(float64)/total*100) / 100
	}

	chart := model.Chart{
		ID:       "market-share",
		Type:     "pie",
		Title:    "Market Share Distribution",
		Data:     data,
		DataKeys: []string{"share"},
		Colors:   pieColors,
	}
	return "Market summary pie chart of major indices based on market capitalization.", []model.Chart{chart}, nil
}

// trendChart builds a multi-series line chart of price history, one series
// per symbol, aligned on the shortest series.
func (b *MarketBranch) trendChart(ctx context.Context, symbols []string, period string) (string, []model.Chart, error) {
	type series struct {
		symbol string
		hist   *model.HistoricalSeries
	}

	var found []series
	minLen := 0
	for _, symbol := range symbols {
		hist, err := b.market.GetHistory(ctx, symbol, period)
		if err != nil {
			zap.L().Warn("routing: trend history fetch failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		if minLen == 0 || len(hist.Prices) < minLen {
			minLen = len(hist.Prices)
		}
		found = append(found, series{symbol: strings.ToUpper(symbol), hist: hist})
	}
	if len(found) == 0 || minLen == 0 {
		return "No historical data found for the specified symbols.", nil, nil
	}

	data := make([]map[string]any, 0, minLen)
	for i := 0; i < minLen; i++ {
		point := map[string]any{
			"date": found[0].hist.Dates[i].Format("2006-01-02"),
		}
		for _, s := range found {
			point[s.symbol] = s.hist.Prices[i]
		}
		data = append(data, point)
	}

	names := make([]string, len(found))
	for i, s := range found {
		names[i] = s.symbol
	}

	colors := chartPalette
	if len(names) < len(colors) {
		colors = colors[:len(names)]
	}

	chart := model.Chart{
		ID:        "multi-company-trend",
		Type:      "line",
		Title:     "Performance Over Time",
		Data:      data,
		XKey:      "date",
		DataKeys:  names,
		Colors:    colors,
		TimeRange: period,
	}
	content := fmt.Sprintf("Multi line chart showing performance of %s over %s.", strings.Join(names, ", "), period)
	return content, []model.Chart{chart}, nil
}

// forecastChart builds a line chart combining historical prices with the
// projected values and confidence band.
func (b *MarketBranch) forecastChart(ctx context.Context, symbol, horizon string) (string, []model.Chart, error) {
	result, err := b.forecaster.Predict(ctx, strings.ToUpper(symbol), horizon)
	if err != nil {
		return "", nil, err
	}

	data := make([]map[string]any, 0, len(result.Historical.Dates)+len(result.Prediction.Dates))
	for i, date := range result.Historical.Dates {
		data = append(data, map[string]any{
			"date":  date.Format("2006-01-02"),
			"value": result.Historical.Prices[i],
			"type":  "historical",
		})
	}
	for i, date := range result.Prediction.Dates {
		data = append(data, map[string]any{
			"date":             date.Format("2006-01-02"),
			"value":            result.Prediction.Values[i],
			"type":             "prediction",
			"confidence_lower": result.Prediction.ConfidenceLower[i],
			"confidence_upper": result.Prediction.ConfidenceUpper[i],
		})
	}

	chart := model.Chart{
		ID:             "price-prediction",
		Type:           "line",
		Title:          fmt.Sprintf("%s Price Prediction", result.Symbol),
		Data:           data,
		XKey:           "date",
		YKey:           "value",
		DataKeys:       []string{"value"},
		Colors:         chartPalette[:1],
		TimeRange:      "custom",
		ConfidenceBand: true,
	}
	content := fmt.Sprintf("Prediction for %s: Current price $%.2f, predicted price $%.2f by %s.",
		result.Symbol, result.CurrentPrice, result.PredictedPrice, horizon)
	return content, []model.Chart{chart}, nil
}

// quoteFallback answers from direct per-symbol quotes; with no symbols it
// degrades further to a templated index summary.
func (b *MarketBranch) quoteFallback(ctx context.Context, question string, symbols []string) (string, []model.Chart, error) {
	quotes := b.fetchQuotes(ctx, symbols)
	if len(quotes) > 0 {
		return b.generator.GenerateMarketAnswer(ctx, question, quotes), nil, nil
	}

	summary, err := b.market.MarketSummary(ctx)
	if err != nil {
		return "", nil, eris.Wrap(err, "routing: market fallback")
	}
	return answering.MarketSummaryAnswer(summary, marketdata.IndexNames), nil, nil
}

func (b *MarketBranch) fetchQuotes(ctx context.Context, symbols []string) map[string]model.Quote {
	quotes := make(map[string]model.Quote)
	for _, symbol := range symbols {
		quote, err := b.market.GetQuote(ctx, symbol)
		if err != nil {
			zap.L().Warn("routing: quote fetch failed",
				zap.String("symbol", symbol),
				zap.Error(err),
			)
			continue
		}
		quotes[quote.Symbol] = *quote
	}
	return quotes
}

// QuoteSummary renders a compact quote line for mixed-result merging when
// chart generation failed.
func (b *MarketBranch) QuoteSummary(ctx context.Context, symbols []string) string {
	quotes := b.fetchQuotes(ctx, symbols)
	if len(quotes) == 0 {
		return ""
	}
	return answering.SimpleQuoteAnswer(quotes)
}
