package answering

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
)

const defaultMaxRetries = 3

// IntentExtractor pulls structured entities (companies, years) out of a free
// text question. Extract never returns an error: after maxRetries immediate
// attempts it settles on the empty intent.
type IntentExtractor struct {
	ai         anthropic.Client
	model      string
	maxRetries int
}

// NewIntentExtractor creates an extractor. maxRetries <= 0 uses the default
// of 3 attempts.
func NewIntentExtractor(ai anthropic.Client, llmModel string, maxRetries int) *IntentExtractor {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &IntentExtractor{ai: ai, model: llmModel, maxRetries: maxRetries}
}

// Extract identifies companies and years mentioned in the question. The
// optional extra map (available companies, years) is appended to the prompt
// as context. Empty questions short-circuit to the empty intent without an
// API call.
func (e *IntentExtractor) Extract(ctx context.Context, question string, extra map[string]any) model.ExtractedIntent {
	if strings.TrimSpace(question) == "" {
		zap.L().Warn("intent: empty question provided")
		return model.ExtractedIntent{}
	}

	prompt := intentPrompt + contextJSON(extra) + "\nQuestion: " + question + "\n\nExtraction:"

	temp := 0.1
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       e.model,
			MaxTokens:   150,
			System:      intentSystemPrompt,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err == nil {
			var intent model.ExtractedIntent
			intent, err = parseIntent(extractText(resp))
			if err == nil {
				zap.L().Debug("intent: extracted",
					zap.Strings("companies", intent.Companies),
					zap.Ints("years", intent.Years),
				)
				return intent
			}
		}
		zap.L().Warn("intent: extraction attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	zap.L().Error("intent: all extraction attempts failed", zap.String("question", question))
	return model.ExtractedIntent{}
}

// parseIntent decodes the model output. Company names are case-folded; a year
// value that fails integer coercion fails the whole attempt rather than being
// partially accepted.
func parseIntent(text string) (model.ExtractedIntent, error) {
	var raw struct {
		Companies []string `json:"companies"`
		Years     []any    `json:"years"`
	}
	if err := json.Unmarshal([]byte(cleanJSON(text)), &raw); err != nil {
		return model.ExtractedIntent{}, eris.Wrap(err, "intent: decode response")
	}

	folder := cases.Fold()
	companies := make([]string, 0, len(raw.Companies))
	for _, c := range raw.Companies {
		companies = append(companies, folder.String(strings.TrimSpace(c)))
	}

	years := make([]int, 0, len(raw.Years))
	for _, y := range raw.Years {
		year, err := coerceYear(y)
		if err != nil {
			return model.ExtractedIntent{}, err
		}
		years = append(years, year)
	}

	return model.ExtractedIntent{Companies: companies, Years: years}, nil
}

func coerceYear(v any) (int, error) {
	switch y := v.(type) {
	case float64:
		if y != float64(int(y)) {
			return 0, eris.Errorf("intent: non-integer year %v", y)
		}
		return int(y), nil
	case string:
		year, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil {
			return 0, eris.Wrapf(err, "intent: bad year %q", y)
		}
		return year, nil
	case json.Number:
		year, err := y.Int64()
		if err != nil {
			return 0, eris.Wrapf(err, "intent: bad year %v", y)
		}
		return int(year), nil
	default:
		return 0, eris.New(fmt.Sprintf("intent: unsupported year type %T", v))
	}
}
