package models

import (
	"errors"
	"time"
)

var ErrOutOfOrder = errors.New("models: bar is not after the last bar")

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a chronological, append-only list of bars.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	bars   []Bar
}

func NewPriceSeries(symbol string, bars ...Bar) (*PriceSeries, error) {
	s := &PriceSeries{Symbol: symbol}
	for _, b := range bars {
		if err := s.Append(b); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Append extends the series. Bars must arrive in strictly increasing time.
func (s *PriceSeries) Append(b Bar) error {
	if n := len(s.bars); n > 0 && !b.Time.After(s.bars[n-1].Time) {
		return ErrOutOfOrder
	}
	s.bars = append(s.bars, b)
	return nil
}

func (s *PriceSeries) Len() int { return len(s.bars) }

// Bars returns a copy so callers cannot rewrite history.
func (s *PriceSeries) Bars() []Bar {
	out := make([]Bar, len(s.bars))
	copy(out, s.bars)
	return out
}

func (s *PriceSeries) Last() (Bar, bool) {
	if len(s.bars) == 0 {
		return Bar{}, false
	}
	return s.bars[len(s.bars)-1], true
}

func (s *PriceSeries) Closes() []float64  { return s.column(func(b Bar) float64 { return b.Close }) }
func (s *PriceSeries) Highs() []float64   { return s.column(func(b Bar) float64 { return b.High }) }
func (s *PriceSeries) Lows() []float64    { return s.column(func(b Bar) float64 { return b.Low }) }
func (s *PriceSeries) Volumes() []float64 { return s.column(func(b Bar) float64 { return b.Volume }) }

// SessionStart is the index of the first bar at or after t, Len() if none.
func (s *PriceSeries) SessionStart(t time.Time) int {
	for i, b := range s.bars {
		if !b.Time.Before(t) {
			return i
		}
	}
	return len(s.bars)
}

func (s *PriceSeries) column(f func(Bar) float64) []float64 {
	out := make([]float64, len(s.bars))
	for i, b := range s.bars {
		out[i] = f(b)
	}
	return out
}
