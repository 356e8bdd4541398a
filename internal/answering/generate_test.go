package answering

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/finsight/internal/model"
)

func TestGenerateAnswer_NoChunksSkipsAPI(t *testing.T) {
	ai := &mockAnthropicClient{}

	g := NewAnswerGenerator(ai, "test-model")
	answer := g.GenerateAnswer(context.Background(), "q", nil)

	assert.Equal(t, NoRelevantInfoMessage, answer)
	ai.AssertNumberOfCalls(t, "CreateMessage", 0)
}

func TestGenerateAnswer_FailureReturnsApology(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("overloaded")).Once()

	g := NewAnswerGenerator(ai, "test-model")
	answer := g.GenerateAnswer(ctx, "q", []model.Chunk{{Content: "text"}})

	assert.Equal(t, AnswerFailureMessage, answer)
}

func TestGenerateAnswer_EmptyResponseReturnsApology(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(textResponse("   "), nil).Once()

	g := NewAnswerGenerator(ai, "test-model")
	answer := g.GenerateAnswer(ctx, "q", []model.Chunk{{Content: "text"}})

	assert.Equal(t, AnswerFailureMessage, answer)
}

func TestAnalyzeSentiment_BestEffort(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("timeout")).Once()

	g := NewAnswerGenerator(ai, "test-model")

	assert.Empty(t, g.AnalyzeSentiment(ctx, []model.Chunk{{Content: "text"}}))
	assert.Empty(t, g.AnalyzeSentiment(ctx, nil))
	ai.AssertNumberOfCalls(t, "CreateMessage", 1)
}

func TestGenerateMarketAnswer_DegradesToTemplate(t *testing.T) {
	ctx := context.Background()
	ai := &mockAnthropicClient{}
	ai.On("CreateMessage", ctx, mock.AnythingOfType("anthropic.MessageRequest")).
		Return(nil, errors.New("overloaded")).Once()

	g := NewAnswerGenerator(ai, "test-model")
	quotes := map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: 195.5, Change: 2.25, ChangePercent: 1.16},
	}
	answer := g.GenerateMarketAnswer(ctx, "How is Apple doing?", quotes)

	assert.Equal(t, "AAPL is currently trading at $195.50 (+2.25, +1.16%)", answer)
}

func TestSimpleQuoteAnswer_SortedAndJoined(t *testing.T) {
	quotes := map[string]model.Quote{
		"MSFT": {Symbol: "MSFT", Price: 410, Change: -1.5, ChangePercent: -0.36},
		"AAPL": {Symbol: "AAPL", Price: 195.5, Change: 2.25, ChangePercent: 1.16},
	}

	got := SimpleQuoteAnswer(quotes)

	assert.Equal(t,
		"AAPL is currently trading at $195.50 (+2.25, +1.16%) | MSFT is currently trading at $410.00 (-1.50, -0.36%)",
		got)
}

func TestSimpleQuoteAnswer_Empty(t *testing.T) {
	assert.Equal(t, NoStockDataMessage, SimpleQuoteAnswer(nil))
}

func TestMarketSummaryAnswer_UsesDisplayNames(t *testing.T) {
	summary := map[string]model.Quote{
		"^GSPC": {Symbol: "^GSPC", Price: 5300.25, Change: 12.5, ChangePercent: 0.24},
	}
	names := map[string]string{"^GSPC": "S&P 500"}

	got := MarketSummaryAnswer(summary, names)

	assert.Equal(t, "S&P 500: 5300.25 (+12.50, +0.24%)", got)
}

func TestChunkContext_CapsAtFiveChunks(t *testing.T) {
	chunks := make([]model.Chunk, 8)
	for i := range chunks {
		chunks[i] = model.Chunk{Content: "chunk", Company: "apple", Year: 2023}
	}

	ctx := chunkContext(chunks)

	assert.Contains(t, ctx, "Document 5 (apple, 2023):")
	assert.NotContains(t, ctx, "Document 6")
}
