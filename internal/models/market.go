package models

import "time"

// DataType tags a kind of market data a directive needs.
type DataType string

const (
	DataQuote            DataType = "quote"
	DataPriceHistory     DataType = "price_history"
	DataVolume           DataType = "volume"
	DataTechnical        DataType = "technical"
	DataFundamental      DataType = "fundamental"
	DataSentiment        DataType = "sentiment"
	DataEarningsCalendar DataType = "earnings_calendar"
)

type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Volume        float64   `json:"volume"`
	AvgVolume     float64   `json:"avg_volume"`
	Timestamp     time.Time `json:"timestamp"`
}

type Fundamentals struct {
	Symbol       string     `json:"symbol"`
	PERatio      *float64   `json:"pe_ratio,omitempty"`
	EPS          *float64   `json:"eps,omitempty"`
	MarketCap    *float64   `json:"market_cap,omitempty"`
	NextEarnings *time.Time `json:"next_earnings,omitempty"`
}

type Sentiment struct {
	Symbol    string    `json:"symbol"`
	Score     float64   `json:"score"` // -1 bearish .. 1 bullish
	Articles  int       `json:"articles"`
	Timestamp time.Time `json:"timestamp"`
}

// DataMode separates real provider data from synthetic data.
type DataMode string

const (
	ModeLive       DataMode = "live"
	ModeSimulation DataMode = "simulation"
)

// SymbolData is everything gathered for one symbol before scoring.
// Any pointer field may be nil when the provider had nothing.
type SymbolData struct {
	Symbol       string
	Series       *PriceSeries
	Quote        *Quote
	Fundamentals *Fundamentals
	Sentiment    *Sentiment
	Now          time.Time
	// Synthetic is set when any part came from the simulation provider.
	Synthetic bool
}
