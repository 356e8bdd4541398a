// Package marketdata provides live and historical quote data from a
// Yahoo-Finance-compatible quote API.
package marketdata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/internal/resilience"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

// MarketIndices are the major index symbols used for market summaries.
var MarketIndices = []string{"^GSPC", "^DJI", "^IXIC", "^VIX"}

// IndexNames maps index symbols to display names.
var IndexNames = map[string]string{
	"^GSPC": "S&P 500",
	"^DJI":  "Dow Jones",
	"^IXIC": "NASDAQ",
	"^VIX":  "VIX",
}

// Client fetches quote and history data for ticker symbols.
type Client interface {
	GetQuote(ctx context.Context, symbol string) (*model.Quote, error)
	GetHistory(ctx context.Context, symbol, period string) (*model.HistoricalSeries, error)
	MarketSummary(ctx context.Context) (map[string]model.Quote, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a market data client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol                     string  `json:"symbol"`
			RegularMarketPrice         float64 `json:"regularMarketPrice"`
			RegularMarketChange        float64 `json:"regularMarketChange"`
			RegularMarketChangePercent float64 `json:"regularMarketChangePercent"`
			RegularMarketVolume        int64   `json:"regularMarketVolume"`
			MarketCap                  float64 `json:"marketCap"`
			TrailingPE                 float64 `json:"trailingPE"`
			DividendYield              float64 `json:"dividendYield"`
		} `json:"result"`
	} `json:"quoteResponse"`
}

func (c *httpClient) GetQuote(ctx context.Context, symbol string) (*model.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, eris.New("marketdata: empty symbol")
	}

	q := url.Values{}
	q.Set("symbols", symbol)
	endpoint := c.baseURL + "/v7/finance/quote?" + q.Encode()

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("marketdata", "get_quote")

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var parsed quoteResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "marketdata: decode quote response")
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return nil, eris.Errorf("marketdata: no quote data for %s", symbol)
	}

	r := parsed.QuoteResponse.Result[0]
	return &model.Quote{
		Symbol:        r.Symbol,
		Price:         r.RegularMarketPrice,
		Change:        r.RegularMarketChange,
		ChangePercent: r.RegularMarketChangePercent,
		Volume:        r.RegularMarketVolume,
		MarketCap:     r.MarketCap,
		PERatio:       r.TrailingPE,
		DividendYield: r.DividendYield,
		Timestamp:     time.Now().UTC(),
	}, nil
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (c *httpClient) GetHistory(ctx context.Context, symbol, period string) (*model.HistoricalSeries, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, eris.New("marketdata: empty symbol")
	}
	if period == "" {
		period = "1y"
	}

	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", "1d")
	endpoint := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?" + q.Encode()

	cfg := resilience.DefaultRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("marketdata", "get_history")

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.get(ctx, endpoint)
	})
	if err != nil {
		return nil, err
	}

	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, eris.Wrap(err, "marketdata: decode chart response")
	}
	if parsed.Chart.Error != nil {
		return nil, eris.Errorf("marketdata: chart error for %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, eris.Errorf("marketdata: no history data for %s", symbol)
	}

	result := parsed.Chart.Result[0]
	quote := result.Indicators.Quote[0]

	series := &model.HistoricalSeries{
		Symbol: symbol,
		Period: period,
	}
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == nil {
			continue // market holidays produce null closes
		}
		series.Dates = append(series.Dates, time.Unix(ts, 0).UTC())
		series.Prices = append(series.Prices, *quote.Close[i])
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			series.Volumes = append(series.Volumes, *quote.Volume[i])
		} else {
			series.Volumes = append(series.Volumes, 0)
		}
	}

	if len(series.Prices) == 0 {
		return nil, eris.Errorf("marketdata: empty history for %s", symbol)
	}
	return series, nil
}

func (c *httpClient) MarketSummary(ctx context.Context) (map[string]model.Quote, error) {
	summary := make(map[string]model.Quote, len(MarketIndices))
	for _, idx := range MarketIndices {
		quote, err := c.GetQuote(ctx, idx)
		if err != nil {
			// Partial summaries are acceptable; skip failed indices.
			continue
		}
		summary[idx] = *quote
	}
	if len(summary) == 0 {
		return nil, eris.New("marketdata: no index data available")
	}
	return summary, nil
}

func (c *httpClient) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: create request")
	}
	req.Header.Set("User-Agent", "finsight/1.0")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "marketdata: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("marketdata: status %d from %s", resp.StatusCode, endpoint)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	return body, nil
}
