package directive

import (
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/pkg/indicators"
)

const (
	RSIOversold        models.DirectiveID = "rsi_oversold"
	MACDMomentum       models.DirectiveID = "macd_momentum"
	StochasticReversal models.DirectiveID = "stochastic_reversal"
	MFIFlow            models.DirectiveID = "mfi_flow"
	CCIExtreme         models.DirectiveID = "cci_extreme"
)

// rsiOversold scores 100 at or below the oversold level and 0 at or above overbought.
type rsiOversold struct{ base }

func newRSIOversold() Scorer {
	return rsiOversold{base{id: RSIOversold, schema: models.ConfigSchema{
		"period":     intParam(2, 50, 14),
		"oversold":   floatParam(5, 50, 30, 1),
		"overbought": floatParam(50, 95, 70, 1),
	}}}
}

func (d rsiOversold) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	rsi, err := indicators.RSI(s.closes, cfg.Int("period"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	return Result{
		Score:     linearDown(rsi, cfg.Float("oversold"), cfg.Float("overbought")),
		Breakdown: map[string]float64{"rsi": rsi},
	}, nil
}

func (d rsiOversold) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("RSI(%d) at or below %.0f scores full marks, at or above %.0f scores zero, linear in between.",
		cfg.Int("period"), cfg.Float("oversold"), cfg.Float("overbought"))
}

// macdMomentum rewards a positive and rising histogram.
type macdMomentum struct{ base }

func newMACDMomentum() Scorer {
	return macdMomentum{base{id: MACDMomentum, schema: models.ConfigSchema{
		"fast":   intParam(2, 50, 12),
		"slow":   intParam(5, 100, 26),
		"signal": intParam(2, 50, 9),
	}}}
}

func (d macdMomentum) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	m, err := indicators.MACD(s.closes, cfg.Int("fast"), cfg.Int("slow"), cfg.Int("signal"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	score := 50.0
	score += 25 * sign(m.Histogram)
	score += 25 * sign(m.Histogram-m.PrevHistogram)
	return Result{
		Score: clamp(score, 0, 100),
		Breakdown: map[string]float64{
			"macd":      m.MACD,
			"signal":    m.Signal,
			"histogram": m.Histogram,
		},
	}, nil
}

func (d macdMomentum) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("MACD(%d,%d,%d): +25 for a positive histogram, +25 when it is rising, from a base of 50.",
		cfg.Int("fast"), cfg.Int("slow"), cfg.Int("signal"))
}

// stochasticReversal favours a low %K, with a bonus when %K is above %D.
type stochasticReversal struct{ base }

func newStochasticReversal() Scorer {
	return stochasticReversal{base{id: StochasticReversal, schema: models.ConfigSchema{
		"k_period":   intParam(5, 30, 14),
		"d_period":   intParam(1, 10, 3),
		"slowing":    intParam(1, 10, 3),
		"oversold":   floatParam(5, 40, 20, 1),
		"overbought": floatParam(60, 95, 80, 1),
	}}}
}

func (d stochasticReversal) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	st, err := indicators.Stochastic(s.highs, s.lows, s.closes, cfg.Int("k_period"), cfg.Int("d_period"), cfg.Int("slowing"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	score := 0.7 * linearDown(st.K, cfg.Float("oversold"), cfg.Float("overbought"))
	if st.K > st.D {
		score += 30
	}
	return Result{
		Score:     clamp(score, 0, 100),
		Breakdown: map[string]float64{"k": st.K, "d": st.D},
	}, nil
}

func (d stochasticReversal) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("Stochastic(%d,%d,%d): up to 70 as %%K falls from %.0f to %.0f, +30 while %%K is above %%D.",
		cfg.Int("k_period"), cfg.Int("d_period"), cfg.Int("slowing"), cfg.Float("overbought"), cfg.Float("oversold"))
}

// mfiFlow is the volume-weighted sibling of rsiOversold.
type mfiFlow struct{ base }

func newMFIFlow() Scorer {
	return mfiFlow{base{id: MFIFlow, schema: models.ConfigSchema{
		"period":     intParam(5, 50, 14),
		"oversold":   floatParam(5, 40, 20, 1),
		"overbought": floatParam(60, 95, 80, 1),
	}}}
}

func (d mfiFlow) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	mfi, err := indicators.MFI(s.highs, s.lows, s.closes, s.volumes, cfg.Int("period"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	return Result{
		Score:     linearDown(mfi, cfg.Float("oversold"), cfg.Float("overbought")),
		Breakdown: map[string]float64{"mfi": mfi},
	}, nil
}

func (d mfiFlow) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("MFI(%d) at or below %.0f scores full marks, at or above %.0f scores zero.",
		cfg.Int("period"), cfg.Float("oversold"), cfg.Float("overbought"))
}

// cciExtreme treats deep negative CCI as a mean-reversion opportunity.
type cciExtreme struct{ base }

func newCCIExtreme() Scorer {
	return cciExtreme{base{id: CCIExtreme, schema: models.ConfigSchema{
		"period":    intParam(5, 50, 20),
		"threshold": floatParam(50, 300, 100, 10),
	}}}
}

func (d cciExtreme) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	cci, err := indicators.CCI(s.highs, s.lows, s.closes, cfg.Int("period"), 0.015)
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	return Result{
		Score:     50 - 50*clamp(cci/cfg.Float("threshold"), -1, 1),
		Breakdown: map[string]float64{"cci": cci},
	}, nil
}

func (d cciExtreme) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("CCI(%d): 100 at -%.0f or below, 0 at +%.0f or above, 50 at zero.",
		cfg.Int("period"), cfg.Float("threshold"), cfg.Float("threshold"))
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
