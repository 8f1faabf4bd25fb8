package indicators

import (
	"gonum.org/v1/gonum/stat"
)

// RSI is the Wilder relative strength index. The first averages are taken over
// the first period differences, later differences are Wilder-smoothed.
// RS is pinned to 100 when the average loss is zero.
func RSI(closes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(closes) < period+1 {
		return 0, ErrInsufficientData
	}

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	p := float64(period)
	avgGain, avgLoss := gain/p, loss/p

	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	rs := 100.0
	if avgLoss != 0 {
		rs = avgGain / avgLoss
	}
	return 100 - 100/(1+rs), nil
}

// EMA seeds with the SMA of the first period values after offset and then
// applies ema = (price-ema)*m + ema with m = 2/(period+1).
func EMA(prices []float64, period, offset int) (float64, error) {
	if offset < 0 {
		offset = 0
	}
	if offset > len(prices) {
		return 0, ErrInsufficientData
	}
	series, err := EMASeries(prices[offset:], period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// EMASeries returns every EMA value; element k corresponds to prices[period-1+k].
func EMASeries(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(prices) < period {
		return nil, ErrInsufficientData
	}
	m := 2.0 / float64(period+1)
	ema := stat.Mean(prices[:period], nil)

	out := make([]float64, 0, len(prices)-period+1)
	out = append(out, ema)
	for _, p := range prices[period:] {
		ema = (p-ema)*m + ema
		out = append(out, ema)
	}
	return out, nil
}

type MACDResult struct {
	MACD          float64
	Signal        float64
	Histogram     float64
	PrevHistogram float64
}

// MACD computes fast EMA - slow EMA, its signal EMA and the histogram.
func MACD(prices []float64, fast, slow, signal int) (MACDResult, error) {
	if fast <= 0 || slow <= 0 || signal <= 0 || fast >= slow {
		return MACDResult{}, ErrInvalidPeriod
	}
	if len(prices) < slow+signal {
		return MACDResult{}, ErrInsufficientData
	}

	fastS, err := EMASeries(prices, fast)
	if err != nil {
		return MACDResult{}, err
	}
	slowS, err := EMASeries(prices, slow)
	if err != nil {
		return MACDResult{}, err
	}

	// slowS[k] and fastS[k+slow-fast] both sit on prices[slow-1+k].
	line := make([]float64, len(slowS))
	for k := range slowS {
		line[k] = fastS[k+slow-fast] - slowS[k]
	}
	sig, err := EMASeries(line, signal)
	if err != nil {
		return MACDResult{}, err
	}

	last := len(line) - 1
	res := MACDResult{
		MACD:      line[last],
		Signal:    sig[len(sig)-1],
		Histogram: line[last] - sig[len(sig)-1],
	}
	if len(sig) > 1 {
		res.PrevHistogram = line[last-1] - sig[len(sig)-2]
	}
	return res, nil
}

type StochasticResult struct {
	K float64
	D float64
}

// Stochastic computes %K over kPeriod (50 on a zero range), smooths it over
// slowing bars and takes %D as the SMA of %K over dPeriod.
func Stochastic(highs, lows, closes []float64, kPeriod, dPeriod, slowing int) (StochasticResult, error) {
	if kPeriod <= 0 || dPeriod <= 0 {
		return StochasticResult{}, ErrInvalidPeriod
	}
	if slowing < 1 {
		slowing = 1
	}
	if !sameLength(highs, lows, closes) {
		return StochasticResult{}, ErrLengthMismatch
	}
	if len(closes) < kPeriod+slowing-1+dPeriod-1 {
		return StochasticResult{}, ErrInsufficientData
	}

	raw := make([]float64, 0, len(closes)-kPeriod+1)
	for i := kPeriod - 1; i < len(closes); i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kPeriod + 1; j < i; j++ {
			if highs[j] > hh {
				hh = highs[j]
			}
			if lows[j] < ll {
				ll = lows[j]
			}
		}
		k := 50.0
		if hh != ll {
			k = 100 * (closes[i] - ll) / (hh - ll)
		}
		raw = append(raw, k)
	}

	k := raw
	if slowing > 1 {
		var err error
		if k, err = SMASeries(raw, slowing); err != nil {
			return StochasticResult{}, err
		}
	}
	d, err := SMA(k, dPeriod)
	if err != nil {
		return StochasticResult{}, err
	}
	return StochasticResult{K: k[len(k)-1], D: d}, nil
}
