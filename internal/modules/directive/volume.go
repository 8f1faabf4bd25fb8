package directive

import (
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/pkg/indicators"
)

const (
	VolumeSurge  models.DirectiveID = "volume_surge"
	OBVTrend     models.DirectiveID = "obv_trend"
	VWAPPosition models.DirectiveID = "vwap_position"
)

// volumeSurge compares the last bar's volume with the average of the bars before it.
type volumeSurge struct{ base }

func newVolumeSurge() Scorer {
	return volumeSurge{base{id: VolumeSurge, schema: models.ConfigSchema{
		"period":      intParam(5, 60, 20),
		"surge_ratio": floatParam(1.1, 10, 2, 0.1),
	}}}
}

func (d volumeSurge) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	ratio, err := VolumeRatio(s.volumes, cfg.Int("period"))
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	surge := cfg.Float("surge_ratio")
	return Result{
		Score:     clamp(100*(ratio-1)/(surge-1), 0, 100),
		Breakdown: map[string]float64{"ratio": ratio},
	}, nil
}

func (d volumeSurge) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("Last volume over the %d-bar average: 0 at or below average, 100 at %.1fx.",
		cfg.Int("period"), cfg.Float("surge_ratio"))
}

// VolumeRatio is the last volume divided by the mean of the period volumes before it.
func VolumeRatio(volumes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, indicators.ErrInvalidPeriod
	}
	n := len(volumes)
	if n < period+1 {
		return 0, indicators.ErrInsufficientData
	}
	avg, err := indicators.SMA(volumes[:n-1], period)
	if err != nil {
		return 0, err
	}
	if avg <= 0 {
		return 0, indicators.ErrNoVolume
	}
	return volumes[n-1] / avg, nil
}

// obvTrend normalises the OBV change over the window by the volume traded in it.
type obvTrend struct{ base }

func newOBVTrend() Scorer {
	return obvTrend{base{id: OBVTrend, schema: models.ConfigSchema{
		"period": intParam(5, 60, 20),
	}}}
}

func (d obvTrend) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	period := cfg.Int("period")
	n := len(s.closes)
	if n < period+2 {
		return Result{}, wrap(d.id, indicators.ErrInsufficientData)
	}
	now, err := indicators.OBV(s.closes, s.volumes)
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	then, err := indicators.OBV(s.closes[:n-period], s.volumes[:n-period])
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	var traded float64
	for _, v := range s.volumes[n-period:] {
		traded += v
	}
	if traded <= 0 {
		return Result{}, wrap(d.id, indicators.ErrNoVolume)
	}
	slope := (now - then) / traded
	return Result{
		Score:     50 + 50*clamp(slope, -1, 1),
		Breakdown: map[string]float64{"obv": now, "obv_change": now - then},
	}, nil
}

func (d obvTrend) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("OBV change over %d bars relative to the volume traded: all buying 100, all selling 0.",
		cfg.Int("period"))
}

// vwapPosition rewards a price trading below the session VWAP.
type vwapPosition struct{ base }

func newVWAPPosition() Scorer {
	return vwapPosition{base{id: VWAPPosition, schema: models.ConfigSchema{
		"session_bars": intParam(1, 60, 20),
		"band_pct":     floatParam(0.5, 10, 2, 0.5),
	}}}
}

func (d vwapPosition) CalculateScore(data *models.SymbolData, cfg models.DirectiveConfig) (Result, error) {
	s, err := series(data, d.id)
	if err != nil {
		return Result{}, err
	}
	n := len(s.closes)
	start := n - cfg.Int("session_bars")
	if start < 0 {
		return Result{}, wrap(d.id, indicators.ErrInsufficientData)
	}
	vwap, err := indicators.VWAP(s.highs, s.lows, s.closes, s.volumes, start)
	if err != nil {
		return Result{}, wrap(d.id, err)
	}
	if vwap <= 0 {
		return Result{}, fmt.Errorf("%s: %w: non-positive vwap", d.id, ErrMissingData)
	}
	price := lastPrice(data, s.closes)
	dev := (price - vwap) / vwap * 100
	return Result{
		Score:     50 - 50*clamp(dev/cfg.Float("band_pct"), -1, 1),
		Breakdown: map[string]float64{"vwap": vwap, "deviation_pct": dev},
	}, nil
}

func (d vwapPosition) Explain(cfg models.DirectiveConfig) string {
	return fmt.Sprintf("Price vs %d-bar VWAP: 100 at %.1f%% below, 0 at %.1f%% above.",
		cfg.Int("session_bars"), cfg.Float("band_pct"), cfg.Float("band_pct"))
}
