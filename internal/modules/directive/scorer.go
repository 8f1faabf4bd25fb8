// Package directive holds the scoring rules, their default definitions and the
// registry that merges deployment overrides and computes composite scores.
package directive

import (
	"errors"
	"fmt"
	"math"

	"scoring_engine/internal/models"
)

var (
	ErrMissingData           = errors.New("directive: required data missing")
	ErrMissingImplementation = errors.New("directive: no implementation registered")
	ErrUnknownDirective      = errors.New("directive: unknown id")
	ErrDuplicate             = errors.New("directive: duplicate id")
)

// Result is one directive's verdict. Score lies in [0, MaxScore].
type Result struct {
	Score     float64            `json:"score"`
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
}

// Scorer is implemented by every directive.
type Scorer interface {
	ID() models.DirectiveID
	Schema() models.ConfigSchema
	CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error)
	MaxScore(cfg models.DirectiveConfig) float64
	Explain(cfg models.DirectiveConfig) string
}

// base carries the parts every built-in scorer shares.
type base struct {
	id     models.DirectiveID
	schema models.ConfigSchema
}

func (b base) ID() models.DirectiveID                   { return b.id }
func (b base) Schema() models.ConfigSchema              { return b.schema }
func (b base) MaxScore(models.DirectiveConfig) float64 { return 100 }

func intParam(min, max, def float64) models.ParamSpec {
	return models.ParamSpec{Type: models.ParamInt, Min: min, Max: max, Default: def, Step: 1}
}

func floatParam(min, max, def, step float64) models.ParamSpec {
	return models.ParamSpec{Type: models.ParamFloat, Min: min, Max: max, Default: def, Step: step}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

// linearDown maps v to 100 at or below lo and 0 at or above hi.
func linearDown(v, lo, hi float64) float64 {
	if hi <= lo {
		if v <= lo {
			return 100
		}
		return 0
	}
	return clamp(100*(hi-v)/(hi-lo), 0, 100)
}

// ohlcv is the column view of a symbol's history.
type ohlcv struct {
	highs, lows, closes, volumes []float64
}

func series(data *models.SymbolData, id models.DirectiveID) (ohlcv, error) {
	if data == nil || data.Series == nil || data.Series.Len() == 0 {
		return ohlcv{}, fmt.Errorf("%s: %w: price history", id, ErrMissingData)
	}
	s := data.Series
	return ohlcv{highs: s.Highs(), lows: s.Lows(), closes: s.Closes(), volumes: s.Volumes()}, nil
}

// lastPrice prefers the live quote over the last close.
func lastPrice(data *models.SymbolData, closes []float64) float64 {
	if data.Quote != nil && data.Quote.Price > 0 {
		return data.Quote.Price
	}
	return closes[len(closes)-1]
}

func wrap(id models.DirectiveID, err error) error {
	return fmt.Errorf("%s: %w", id, err)
}
