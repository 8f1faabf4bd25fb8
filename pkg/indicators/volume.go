package indicators

// OBV accumulates volume on up closes and subtracts it on down closes.
func OBV(closes, volumes []float64) (float64, error) {
	if len(closes) != len(volumes) {
		return 0, ErrLengthMismatch
	}
	if len(closes) < 2 {
		return 0, ErrInsufficientData
	}
	obv := 0.0
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i] > closes[i-1]:
			obv += volumes[i]
		case closes[i] < closes[i-1]:
			obv -= volumes[i]
		}
	}
	return obv, nil
}

// MFI is the money flow index over the last period bars. It is 100 when the
// negative flow sum is zero.
func MFI(highs, lows, closes, volumes []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, ErrInvalidPeriod
	}
	if len(volumes) != len(closes) {
		return 0, ErrLengthMismatch
	}
	tp, err := TypicalPrices(highs, lows, closes)
	if err != nil {
		return 0, err
	}
	if len(tp) < period+1 {
		return 0, ErrInsufficientData
	}

	var pos, neg float64
	for i := len(tp) - period; i < len(tp); i++ {
		flow := tp[i] * volumes[i]
		switch {
		case tp[i] > tp[i-1]:
			pos += flow
		case tp[i] < tp[i-1]:
			neg += flow
		}
	}
	if neg == 0 {
		return 100, nil
	}
	return 100 - 100/(1+pos/neg), nil
}

// VWAP is cumulative typical price × volume over cumulative volume, counted from
// the sessionStart index (0 for the whole series).
func VWAP(highs, lows, closes, volumes []float64, sessionStart int) (float64, error) {
	if len(volumes) != len(closes) {
		return 0, ErrLengthMismatch
	}
	tp, err := TypicalPrices(highs, lows, closes)
	if err != nil {
		return 0, err
	}
	if sessionStart < 0 {
		sessionStart = 0
	}
	if sessionStart >= len(tp) {
		return 0, ErrInsufficientData
	}

	var pv, vol float64
	for i := sessionStart; i < len(tp); i++ {
		pv += tp[i] * volumes[i]
		vol += volumes[i]
	}
	if vol == 0 {
		return 0, ErrNoVolume
	}
	return pv / vol, nil
}
