package scoring

import (
	"math"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/pkg/indicators"
)

// Category names and their fixed weights. The weights sum to 1.
const (
	CategoryPrice   = "price"
	CategoryVolume  = "volume"
	CategoryRSI     = "rsi"
	CategoryMACD    = "macd"
	CategoryMACross = "ma_cross"
)

var categoryWeights = map[string]float64{
	CategoryPrice:   0.20,
	CategoryVolume:  0.15,
	CategoryRSI:     0.25,
	CategoryMACD:    0.25,
	CategoryMACross: 0.15,
}

var categoryOrder = []string{CategoryPrice, CategoryVolume, CategoryRSI, CategoryMACD, CategoryMACross}

// Categories holds the five sub-scores, each meant to be in [0,100], plus the
// raw indicator values they came from.
type Categories struct {
	Scores map[string]float64
	Values map[string]float64
}

// CategoryScore clamps each sub-score, sums the weighted contributions and
// rounds to the final integer score.
func CategoryScore(c Categories) (int, map[string]models.Component) {
	components := make(map[string]models.Component, len(categoryOrder))
	var total float64
	for _, name := range categoryOrder {
		score := clampScore(c.Scores[name])
		w := categoryWeights[name]
		contribution := score * w
		total += contribution
		components[name] = models.Component{
			Value:        c.Values[name],
			Score:        score,
			Weight:       w,
			Contribution: contribution,
		}
	}
	return int(math.Round(clampScore(total))), components
}

// ComputeCategories derives the sub-scores from history and quote.
func ComputeCategories(data *models.SymbolData) (Categories, error) {
	closes := data.Series.Closes()
	c := Categories{Scores: make(map[string]float64, 5), Values: make(map[string]float64, 5)}

	change, err := changePercent(data, closes)
	if err != nil {
		return c, err
	}
	c.Values[CategoryPrice] = change
	c.Scores[CategoryPrice] = 50 + change*10

	ratio, err := volumeRatio(data)
	if err != nil {
		return c, err
	}
	c.Values[CategoryVolume] = ratio
	c.Scores[CategoryVolume] = ratio * 50

	rsi, err := indicators.RSI(closes, 14)
	if err != nil {
		return c, err
	}
	c.Values[CategoryRSI] = rsi
	c.Scores[CategoryRSI] = rsiScore(rsi)

	m, err := indicators.MACD(closes, 12, 26, 9)
	if err != nil {
		return c, err
	}
	c.Values[CategoryMACD] = m.Histogram
	c.Scores[CategoryMACD] = 50 + 25*sign(m.Histogram) + 25*sign(m.Histogram-m.PrevHistogram)

	cross, err := directive.MACrossScore(closes, 20, 50)
	if err != nil {
		return c, err
	}
	c.Values[CategoryMACross] = cross
	c.Scores[CategoryMACross] = cross
	return c, nil
}

func changePercent(data *models.SymbolData, closes []float64) (float64, error) {
	if q := data.Quote; q != nil && q.Price > 0 {
		if q.ChangePercent != 0 {
			return q.ChangePercent, nil
		}
		if prev := q.Price - q.Change; prev > 0 {
			return q.Change / prev * 100, nil
		}
	}
	n := len(closes)
	if n < 2 {
		return 0, indicators.ErrInsufficientData
	}
	if closes[n-2] <= 0 {
		return 0, indicators.ErrInsufficientData
	}
	return (closes[n-1] - closes[n-2]) / closes[n-2] * 100, nil
}

func volumeRatio(data *models.SymbolData) (float64, error) {
	if q := data.Quote; q != nil && q.Volume > 0 && q.AvgVolume > 0 {
		return q.Volume / q.AvgVolume, nil
	}
	return directive.VolumeRatio(data.Series.Volumes(), 20)
}

// rsiScore maps RSI onto a score: 0→100, 30→80, 70→20, 100→0, linear between.
func rsiScore(rsi float64) float64 {
	switch {
	case rsi <= 30:
		return 100 - rsi*20/30
	case rsi >= 70:
		return 20 * (100 - rsi) / 30
	default:
		return 80 - (rsi-30)*1.5
	}
}

func clampScore(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
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
