package model

import "time"

// Quote is a snapshot of current market data for one symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        int64     `json:"volume"`
	MarketCap     float64   `json:"market_cap,omitempty"`
	PERatio       float64   `json:"pe_ratio,omitempty"`
	DividendYield float64   `json:"dividend_yield,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// HistoricalSeries is a daily price history for one symbol.
type HistoricalSeries struct {
	Symbol  string      `json:"symbol"`
	Dates   []time.Time `json:"dates"`
	Prices  []float64   `json:"prices"`
	Volumes []int64     `json:"volumes,omitempty"`
	Period  string      `json:"period"`
}

// ForecastSeries holds the projected portion of a forecast.
type ForecastSeries struct {
	Dates           []time.Time `json:"dates"`
	Values          []float64   `json:"values"`
	ConfidenceLower []float64   `json:"confidence_lower"`
	ConfidenceUpper []float64   `json:"confidence_upper"`
}

// ForecastResult is a short-horizon price forecast for one symbol.
type ForecastResult struct {
	Symbol         string           `json:"symbol"`
	Historical     HistoricalSeries `json:"historical"`
	Prediction     ForecastSeries   `json:"prediction"`
	TargetDate     time.Time        `json:"target_date"`
	CurrentPrice   float64          `json:"current_price"`
	PredictedPrice float64          `json:"predicted_price"`
}
