package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var rsiCloses = []float64{44, 44.25, 44.5, 43.75, 44.65, 45.12, 45.00, 45.1, 45.2, 45.3, 45.5, 45.8, 46.0, 46.03, 46.41}

func TestRSI_KnownSeries(t *testing.T) {
	v, err := RSI(rsiCloses, 14)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestRSI_InsufficientData(t *testing.T) {
	_, err := RSI(rsiCloses[:14], 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRSI_AlwaysInRange(t *testing.T) {
	series := [][]float64{
		{1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1},
		{3, 3, 3, 3, 3, 3},
		{1, 100, 1, 100, 1, 100},
		{1e-9, 1e9, 1e-9, 1e9, 5, 5},
	}
	for _, s := range series {
		v, err := RSI(s, 5)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	v, err := RSI([]float64{10, 9, 8, 7, 6}, 4)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, v, 1e-9)
}

func TestEMA_SeedAndRecurrence(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	series, err := EMASeries(prices, 3)
	require.NoError(t, err)
	require.Len(t, series, 3)
	assert.InDelta(t, 2.0, series[0], 1e-12)
	for k := 1; k < len(series); k++ {
		assert.Greater(t, series[k], series[k-1])
		assert.Less(t, series[k], prices[k+2])
	}

	last, err := EMA(prices, 3, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, last, 1e-12)
}

func TestEMA_Offset(t *testing.T) {
	v, err := EMA([]float64{100, 1, 2, 3}, 3, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, v, 1e-12)

	_, err = EMA([]float64{1, 2, 3}, 3, 1)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestMACD(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 100 + float64(i)
	}
	res, err := MACD(prices, 12, 26, 9)
	require.NoError(t, err)
	assert.Greater(t, res.MACD, 0.0)
	assert.InDelta(t, res.MACD-res.Signal, res.Histogram, 1e-12)

	_, err = MACD(prices[:34], 12, 26, 9)
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = MACD(prices, 26, 12, 9)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestBollingerBands(t *testing.T) {
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	res, err := BollingerBands(prices, 20, 2)
	require.NoError(t, err)
	sd := math.Sqrt(399.0 / 12.0)
	assert.InDelta(t, 10.5, res.Middle, 1e-6)
	assert.InDelta(t, 10.5+2*sd, res.Upper, 1e-6)
	assert.InDelta(t, 10.5-2*sd, res.Lower, 1e-6)
	assert.Greater(t, res.PercentB, 0.5)

	_, err = BollingerBands(prices[:19], 20, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestStochastic_ZeroRange(t *testing.T) {
	flat := []float64{5, 5, 5, 5, 5, 5, 5, 5}
	res, err := Stochastic(flat, flat, flat, 4, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 50.0, res.K)
	assert.Equal(t, 50.0, res.D)
}

func TestStochastic_CloseAtHigh(t *testing.T) {
	highs := []float64{2, 3, 4, 5, 6, 7, 8, 9}
	lows := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	closes := highs
	res, err := Stochastic(highs, lows, closes, 3, 2, 2)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.K, 1e-9)
	assert.InDelta(t, 100.0, res.D, 1e-9)

	_, err = Stochastic(highs[:4], lows[:4], closes[:4], 3, 2, 2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestADX_DegenerateInputHasNoNaN(t *testing.T) {
	flat := make([]float64, 30)
	for i := range flat {
		flat[i] = 10
	}
	res, err := ADX(flat, flat, flat, 14)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.ADX)
	assert.Equal(t, 0.0, res.PlusDI)
	assert.Equal(t, 0.0, res.MinusDI)
}

func TestADX_Uptrend(t *testing.T) {
	n := 40
	highs, lows, closes := make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		base := 100 + 2*float64(i)
		highs[i], lows[i], closes[i] = base+1, base-1, base+0.5
	}
	res, err := ADX(highs, lows, closes, 14)
	require.NoError(t, err)
	assert.Greater(t, res.PlusDI, res.MinusDI)
	assert.Greater(t, res.ADX, 50.0)
	assert.LessOrEqual(t, res.ADX, 100.0)

	_, err = ADX(highs[:27], lows[:27], closes[:27], 14)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestOBV(t *testing.T) {
	v, err := OBV([]float64{10, 11, 11, 9, 12}, []float64{100, 200, 300, 400, 500})
	require.NoError(t, err)
	assert.Equal(t, 200.0-400.0+500.0, v)

	_, err = OBV([]float64{1, 2}, []float64{1})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestMFI_ZeroNegativeFlow(t *testing.T) {
	h := []float64{2, 3, 4, 5, 6}
	l := []float64{1, 2, 3, 4, 5}
	c := []float64{1.5, 2.5, 3.5, 4.5, 5.5}
	vol := []float64{10, 10, 10, 10, 10}
	v, err := MFI(h, l, c, vol, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)

	flat := []float64{1, 1, 1, 1, 1}
	v, err = MFI(flat, flat, flat, vol, 4)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v)
}

func TestMFI_Mixed(t *testing.T) {
	h := []float64{2, 3, 2, 3, 2}
	l := []float64{1, 2, 1, 2, 1}
	c := []float64{1.5, 2.5, 1.5, 2.5, 1.5}
	vol := []float64{10, 10, 10, 10, 10}
	v, err := MFI(h, l, c, vol, 4)
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 100.0)
}

func TestCCI_ZeroDeviation(t *testing.T) {
	flat := []float64{7, 7, 7, 7, 7}
	v, err := CCI(flat, flat, flat, 5, 0.015)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestCCI_AboveAverage(t *testing.T) {
	c := []float64{1, 2, 3, 4, 10}
	v, err := CCI(c, c, c, 5, 0)
	require.NoError(t, err)
	assert.Greater(t, v, 100.0)
}

func TestVWAP(t *testing.T) {
	c := []float64{10, 20, 30}
	vol := []float64{1, 1, 2}
	v, err := VWAP(c, c, c, vol, 0)
	require.NoError(t, err)
	assert.InDelta(t, 22.5, v, 1e-12)

	v, err = VWAP(c, c, c, vol, 1)
	require.NoError(t, err)
	assert.InDelta(t, 80.0/3.0, v, 1e-12)

	_, err = VWAP(c, c, c, []float64{0, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrNoVolume)

	_, err = VWAP(c, c, c, vol, 3)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestSMASeries(t *testing.T) {
	s, err := SMASeries([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, s)
}
