package answering

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
)

// QuestionClassifier determines which response facets (text, recommendation,
// charts, preview) a question calls for. Classify never returns an error:
// after maxRetries immediate attempts it settles on the text-only default.
type QuestionClassifier struct {
	ai         anthropic.Client
	model      string
	maxRetries int
}

// NewQuestionClassifier creates a classifier. maxRetries <= 0 uses the
// default of 3 attempts.
func NewQuestionClassifier(ai anthropic.Client, llmModel string, maxRetries int) *QuestionClassifier {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &QuestionClassifier{ai: ai, model: llmModel, maxRetries: maxRetries}
}

// Classify determines the response facets for a question. The text facet is
// always true in the returned result regardless of what the model said.
func (c *QuestionClassifier) Classify(ctx context.Context, question string, extra map[string]any) model.ClassificationResult {
	if strings.TrimSpace(question) == "" {
		zap.L().Warn("classifier: empty question provided")
		return model.DefaultClassification()
	}

	prompt := classifyPrompt + contextJSON(extra) + "\nQuestion: " + question + "\n\nClassification:"

	temp := 0.1
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		resp, err := c.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       c.model,
			MaxTokens:   150,
			System:      classifySystemPrompt,
			Temperature: &temp,
			Messages: []anthropic.Message{
				{Role: "user", Content: prompt},
			},
		})
		if err == nil {
			var result model.ClassificationResult
			result, err = parseClassification(extractText(resp))
			if err == nil {
				zap.L().Debug("classifier: question classified",
					zap.Bool("recommendation", result.Recommendation),
					zap.Bool("charts", result.Charts),
					zap.Bool("preview", result.Preview),
				)
				return result
			}
		}
		zap.L().Warn("classifier: classification attempt failed",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	zap.L().Error("classifier: all classification attempts failed", zap.String("question", question))
	return model.DefaultClassification()
}

// parseClassification decodes the model output. A response that parses but is
// not a JSON object counts as a parse failure. The text facet is forcibly set
// to true after parsing; it is an invariant, not a default.
func parseClassification(text string) (model.ClassificationResult, error) {
	cleaned := cleanJSON(text)

	var probe any
	if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
		return model.ClassificationResult{}, eris.Wrap(err, "classifier: decode response")
	}
	if _, ok := probe.(map[string]any); !ok {
		return model.ClassificationResult{}, eris.New("classifier: response is not a JSON object")
	}

	var result model.ClassificationResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return model.ClassificationResult{}, eris.Wrap(err, "classifier: decode facets")
	}

	result.Text = true
	return result, nil
}
