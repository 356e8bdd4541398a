package answering

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/finsight/internal/model"
)

func TestClassify_AllFacets(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"text": true, "recommendation": true, "charts": true, "preview": false}`), nil).Once()

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "Compare Apple and Google profitability and recommend the better investment", nil)

	assert.True(t, result.Text)
	assert.True(t, result.Recommendation)
	assert.True(t, result.Charts)
	assert.False(t, result.Preview)
	ai.AssertExpectations(t)
}

func TestClassify_TextForcedTrue(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	// The model explicitly says text: false; the invariant overrides it.
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"text": false, "recommendation": false, "charts": true, "preview": false}`), nil).Once()

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "Show me revenue trends", nil)

	assert.True(t, result.Text)
	assert.True(t, result.Charts)
}

func TestClassify_StripsCodeFences(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse("```json\n{\"text\": true, \"recommendation\": true, \"charts\": false, \"preview\": false}\n```"), nil).Once()

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "Should we expand into Europe?", nil)

	assert.True(t, result.Recommendation)
}

func TestClassify_ExhaustsRetriesThenDefault(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("api down")).Times(3)

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "What was the revenue?", nil)

	assert.Equal(t, model.DefaultClassification(), result)
	ai.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestClassify_NonObjectJSONConsumesRetry(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	// An array parses as JSON but is not an object; it must consume a retry.
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`[true, false]`), nil).Times(3)

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "What was the revenue?", nil)

	assert.Equal(t, model.DefaultClassification(), result)
	ai.AssertNumberOfCalls(t, "CreateMessage", 3)
}

func TestClassify_EmptyQuestionSkipsAPI(t *testing.T) {
	ai := &mockAnthropicClient{}

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(context.Background(), "   ", nil)

	assert.Equal(t, model.DefaultClassification(), result)
	ai.AssertNumberOfCalls(t, "CreateMessage", 0)
}

func TestClassify_RecoversAfterFailedAttempt(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse("not json"), nil).Once()
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse(`{"text": true, "recommendation": false, "charts": true, "preview": true}`), nil).Once()

	c := NewQuestionClassifier(ai, "test-model", 3)
	result := c.Classify(ctx, "Show me the filing page about R&D", nil)

	assert.True(t, result.Preview)
	assert.True(t, result.Charts)
	ai.AssertNumberOfCalls(t, "CreateMessage", 2)
}
