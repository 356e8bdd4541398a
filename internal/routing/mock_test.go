package routing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/finsight/internal/index"
	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/anthropic"
	"github.com/sells-group/finsight/pkg/marketdata"
)

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Market Data Mock ---

type mockMarketClient struct {
	mock.Mock
}

func (m *mockMarketClient) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Quote), args.Error(1)
}

func (m *mockMarketClient) GetHistory(ctx context.Context, symbol, period string) (*model.HistoricalSeries, error) {
	args := m.Called(ctx, symbol, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HistoricalSeries), args.Error(1)
}

func (m *mockMarketClient) MarketSummary(ctx context.Context) (map[string]model.Quote, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]model.Quote), args.Error(1)
}

// --- Index Mock ---

type mockIndex struct {
	mock.Mock
}

func (m *mockIndex) QueryByText(ctx context.Context, text string, k int, pred index.Predicate) ([]index.Hit, error) {
	args := m.Called(ctx, text, k, pred)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]index.Hit), args.Error(1)
}

func (m *mockIndex) GetByMetadata(ctx context.Context, pred index.Predicate, limit int) ([]model.DocumentRecord, error) {
	args := m.Called(ctx, pred, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) GetByID(ctx context.Context, id string) (*model.DocumentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) ListDistinct(ctx context.Context, field string) ([]string, error) {
	args := m.Called(ctx, field)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockIndex) Recent(ctx context.Context, limit int) ([]model.DocumentRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentRecord), args.Error(1)
}

func (m *mockIndex) AddDocument(ctx context.Context, doc model.DocumentRecord, chunks []index.IngestChunk) error {
	args := m.Called(ctx, doc, chunks)
	return args.Error(0)
}

func (m *mockIndex) Migrate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockIndex) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Interface compliance checks.
var (
	_ anthropic.Client  = (*mockAnthropicClient)(nil)
	_ marketdata.Client = (*mockMarketClient)(nil)
	_ index.Index       = (*mockIndex)(nil)
)

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}
