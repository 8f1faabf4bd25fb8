package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

type BollingerResult struct {
	Upper    float64
	Middle   float64
	Lower    float64
	PercentB float64 // 0 at the lower band, 1 at the upper band
}

// BollingerBands returns SMA(period) ± k standard deviations.
func BollingerBands(prices []float64, period int, k float64) (BollingerResult, error) {
	if period < 2 {
		return BollingerResult{}, ErrInvalidPeriod
	}
	if len(prices) < period {
		return BollingerResult{}, ErrInsufficientData
	}

	// MAType 0 = SMA
	upper, middle, lower := talib.BBands(prices, period, k, k, 0)
	last := len(prices) - 1
	res := BollingerResult{Upper: upper[last], Middle: middle[last], Lower: lower[last]}
	if math.IsNaN(res.Middle) {
		return BollingerResult{}, ErrInsufficientData
	}

	res.PercentB = 0.5
	if width := res.Upper - res.Lower; width > 0 {
		res.PercentB = (prices[last] - res.Lower) / width
	}
	return res, nil
}

type ADXResult struct {
	ADX     float64
	PlusDI  float64
	MinusDI float64
}

// ADX is Wilder's average directional index. DI values are 0 when the smoothed
// true range is zero and DX is 0 when both DIs are zero.
func ADX(highs, lows, closes []float64, period int) (ADXResult, error) {
	if period <= 0 {
		return ADXResult{}, ErrInvalidPeriod
	}
	if !sameLength(highs, lows, closes) {
		return ADXResult{}, ErrLengthMismatch
	}
	n := len(closes)
	if n < 2*period {
		return ADXResult{}, ErrInsufficientData
	}

	tr := make([]float64, n-1)
	pdm := make([]float64, n-1)
	mdm := make([]float64, n-1)
	for i := 1; i < n; i++ {
		up := highs[i] - highs[i-1]
		down := lows[i-1] - lows[i]
		if up > down && up > 0 {
			pdm[i-1] = up
		}
		if down > up && down > 0 {
			mdm[i-1] = down
		}
		tr[i-1] = math.Max(highs[i]-lows[i],
			math.Max(math.Abs(highs[i]-closes[i-1]), math.Abs(lows[i]-closes[i-1])))
	}

	p := float64(period)
	var smTR, smP, smM float64
	for i := 0; i < period; i++ {
		smTR += tr[i]
		smP += pdm[i]
		smM += mdm[i]
	}

	var res ADXResult
	dx := func() float64 {
		res.PlusDI, res.MinusDI = 0, 0
		if smTR > 0 {
			res.PlusDI = 100 * smP / smTR
			res.MinusDI = 100 * smM / smTR
		}
		sum := res.PlusDI + res.MinusDI
		if sum == 0 {
			return 0
		}
		return 100 * math.Abs(res.PlusDI-res.MinusDI) / sum
	}

	dxs := make([]float64, 0, len(tr)-period+1)
	dxs = append(dxs, dx())
	for i := period; i < len(tr); i++ {
		smTR = smTR - smTR/p + tr[i]
		smP = smP - smP/p + pdm[i]
		smM = smM - smM/p + mdm[i]
		dxs = append(dxs, dx())
	}

	adx := stat.Mean(dxs[:period], nil)
	for _, v := range dxs[period:] {
		adx = (adx*(p-1) + v) / p
	}
	res.ADX = adx
	return res, nil
}

// CCI is (typical price - SMA) / (constant * mean absolute deviation); it is 0
// when the deviation is zero.
func CCI(highs, lows, closes []float64, period int, constant float64) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if constant <= 0 {
		constant = 0.015
	}
	tp, err := TypicalPrices(highs, lows, closes)
	if err != nil {
		return 0, err
	}
	if len(tp) < period {
		return 0, ErrInsufficientData
	}

	window := tp[len(tp)-period:]
	md := MeanAbsDeviation(window)
	if md == 0 {
		return 0, nil
	}
	return (tp[len(tp)-1] - stat.Mean(window, nil)) / (constant * md), nil
}
