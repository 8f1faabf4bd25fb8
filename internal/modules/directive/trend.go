package directive

import (
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/pkg/indicators"
)

const (
	BollingerPosition models.DirectiveID = "bollinger_position"
	ADXTrend          models.DirectiveID = "adx_trend"
	MACross           models.DirectiveID = "ma_cross"
)

// bollingerPosition scores the close against the bands: lower band 100, upper band 0.
type bollingerPosition struct{ base }

func newBollingerPosition() Scorer {
	return bollingerPosition{base{id: BollingerPosition, schema: models.ConfigSchema{
		"period": intParam(5, 50, 20),
		"k":      floatParam(1, 4, 2, 0.1),
	}}}
}

func (d bollingerPosition) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	bb, err := indicators.BollingerBands(s.closes, cfg.Int("period"), cfg.Float("k"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	return Result{
		Score: 100 * (1 - clamp(bb.PercentB, 0, 1)),
		Breakdown: map[string]float64{
			"upper":     bb.Upper,
			"middle":    bb.Middle,
			"lower":     bb.Lower,
			"percent_b": bb.PercentB,
		},
	}, nil
}

func (d bollingerPosition) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("Bollinger(%d, %.1f): 100 at or under the lower band, 0 at or over the upper band.",
		cfg.Int("period"), cfg.Float("k"))
}

// adxTrend is 50 when there is no trend and moves toward 100 or 0 with a strong
// up or down trend.
type adxTrend struct{ base }

func newADXTrend() Scorer {
	return adxTrend{base{id: ADXTrend, schema: models.ConfigSchema{
		"period": intParam(5, 50, 14),
		"strong": floatParam(15, 50, 25, 1),
	}}}
}

func (d adxTrend) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	a, err := indicators.ADX(s.highs, s.lows, s.closes, cfg.Int("period"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	strength := clamp(a.ADX/(2*cfg.Float("strong")), 0, 1)
	return Result{
		Score: clamp(50+50*sign(a.PlusDI-a.MinusDI)*strength, 0, 100),
		Breakdown: map[string]float64{
			"adx":      a.ADX,
			"plus_di":  a.PlusDI,
			"minus_di": a.MinusDI,
		},
	}, nil
}

func (d adxTrend) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("ADX(%d): direction from +DI/-DI, reaching 0 or 100 at twice the %.0f strong-trend level.",
		cfg.Int("period"), cfg.Float("strong"))
}

// maCross compares a short and a long SMA and rewards a fresh golden cross.
type maCross struct{ base }

func newMACross() Scorer {
	return maCross{base{id: MACross, schema: models.ConfigSchema{
		"short": intParam(2, 50, 20),
		"long":  intParam(10, 200, 50),
	}}}
}

func (d maCross) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	short, long := cfg.Int("short"), cfg.Int("long")
	if short >= long {
		return Result{}, wrap(d.id, indicators.ErrInvalidPeriod)
	}
	if len(s.closes) < long+1 {
		return Result{}, wrap(d.id, indicators.ErrInsufficientData)
	}

	c, err := smaCross(s.closes, short, long)
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	return Result{Score: c.score(), Breakdown: map[string]float64{
		"sma_short": c.short,
		"sma_long":  c.long,
	}}, nil
}

func (d maCross) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("SMA(%d) vs SMA(%d): golden cross 100, above 75, equal 50, below 25, death cross 0.",
		cfg.Int("short"), cfg.Int("long"))
}

// cross is the state of two moving averages now and one bar earlier.
type cross struct {
	short, long         float64
	prevShort, prevLong float64
}

func smaCross(closes []float64, short, long int) (cross, error) {
	var c cross
	var err error
	if c.short, err = indicators.SMA(closes, short); err != nil {
		return c, err
	}
	if c.long, err = indicators.SMA(closes, long); err != nil {
		return c, err
	}
	prev := closes[:len(closes)-1]
	if c.prevShort, err = indicators.SMA(prev, short); err != nil {
		return c, err
	}
	if c.prevLong, err = indicators.SMA(prev, long); err != nil {
		return c, err
	}
	return c, nil
}

func (c cross) score() float64 {
	switch {
	case c.short > c.long && c.prevShort <= c.prevLong:
		return 100
	case c.short < c.long && c.prevShort >= c.prevLong:
		return 0
	case c.short > c.long:
		return 75
	case c.short < c.long:
		return 25
	default:
		return 50
	}
}

// MACrossScore is the same rule as the ma_cross directive, exposed for the
// category scorer.
func MACrossScore(closes []float64, short, long int) (float64, error) {
	if short >= long {
		return 0, indicators.ErrInvalidPeriod
	}
	if len(closes) < long+1 {
		return 0, indicators.ErrInsufficientData
	}
	c, err := smaCross(closes, short, long)
	if err != nil {
		return 0, err
	}
	return c.score(), nil
}
