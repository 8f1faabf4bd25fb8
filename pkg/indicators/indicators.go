// Package indicators holds pure technical-indicator math over numeric series.
//
// Every function reports ErrInsufficientData when the series is shorter than the
// window it needs. Callers never get a silent zero in place of a missing value.
package indicators

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"
)

var (
	ErrInsufficientData = errors.New("indicators: insufficient data")
	ErrInvalidPeriod    = errors.New("indicators: invalid period")
	ErrLengthMismatch   = errors.New("indicators: series length mismatch")
	ErrNoVolume         = errors.New("indicators: no traded volume in window")
)

// SMA returns the simple average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(values) < period {
		return 0, ErrInsufficientData
	}
	return stat.Mean(values[len(values)-period:], nil), nil
}

// SMASeries returns the rolling simple average; element k covers values[k : k+period].
func SMASeries(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, ErrInvalidPeriod
	}
	if len(values) < period {
		return nil, ErrInsufficientData
	}
	out := make([]float64, 0, len(values)-period+1)
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out, nil
}

// TypicalPrices returns (H+L+C)/3 per bar.
func TypicalPrices(highs, lows, closes []float64) ([]float64, error) {
	if len(highs) != len(lows) || len(lows) != len(closes) {
		return nil, ErrLengthMismatch
	}
	out := make([]float64, len(closes))
	for i := range closes {
		out[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	return out, nil
}

// MeanAbsDeviation is the average absolute distance from the mean.
func MeanAbsDeviation(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := stat.Mean(values, nil)
	dev := 0.0
	for _, v := range values {
		dev += math.Abs(v - mean)
	}
	return dev / float64(len(values))
}

func sameLength(series ...[]float64) bool {
	for i := 1; i < len(series); i++ {
		if len(series[i]) != len(series[0]) {
			return false
		}
	}
	return true
}
