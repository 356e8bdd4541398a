// Package forecast fits a fixed-order ARIMA model to daily closing prices
// and projects a short horizon expressed in human terms ("Q4 2025",
// "3 months").
package forecast

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/finsight/internal/model"
	"github.com/sells-group/finsight/pkg/marketdata"
)

// ErrDataUnavailable reports that no usable historical series exists for the
// requested symbol. Callers check it with errors.Is.
var ErrDataUnavailable = eris.New("forecast: historical data unavailable")

// historyPeriod is how much history the model is fitted on.
const historyPeriod = "5y"

// Service produces price forecasts from market history. A model fitting
// failure is a hard error; a degraded forecast is worse than none.
type Service struct {
	market marketdata.Client
}

// NewService creates a forecasting service over the given market data client.
func NewService(market marketdata.Client) *Service {
	return &Service{market: market}
}

// Predict fits ARIMA(2,1,2) on up to five years of daily closes for symbol
// and projects the parsed horizon.
func (s *Service) Predict(ctx context.Context, symbol, horizon string) (*model.ForecastResult, error) {
	history, err := s.market.GetHistory(ctx, symbol, historyPeriod)
	if err != nil {
		return nil, eris.Wrapf(ErrDataUnavailable, "forecast: no history for %s: %v", symbol, err)
	}
	if len(history.Prices) < minObservations {
		return nil, eris.Wrapf(ErrDataUnavailable, "forecast: only %d observations for %s", len(history.Prices), symbol)
	}

	targetDate, steps := ParseHorizon(horizon, time.Now())

	m, err := fitARIMA(history.Prices)
	if err != nil {
		return nil, err
	}

	values, lower, upper, err := m.Forecast(steps)
	if err != nil {
		return nil, err
	}

	lastDate := history.Dates[len(history.Dates)-1]
	dates := nextBusinessDays(lastDate, steps)

	zap.L().Info("forecast: prediction complete",
		zap.String("symbol", symbol),
		zap.Int("steps", steps),
		zap.Time("target_date", targetDate),
	)

	return &model.ForecastResult{
		Symbol:     symbol,
		Historical: *history,
		Prediction: model.ForecastSeries{
			Dates:           dates,
			Values:          values,
			ConfidenceLower: lower,
			ConfidenceUpper: upper,
		},
		TargetDate:     targetDate,
		CurrentPrice:   history.Prices[len(history.Prices)-1],
		PredictedPrice: values[len(values)-1],
	}, nil
}
