package directive

import "scoring_engine/internal/models"

var priceHistory = []models.DataType{models.DataPriceHistory}

// DefaultDefinitions is the system directive table. Deployment overrides are
// merged over it at read time.
func DefaultDefinitions() []models.Directive {
	defs := []models.Directive{
		{
			ID: RSIOversold, Name: "RSI Oversold", Priority: 1, Weight: 15,
			Description:      "Relative strength index near oversold territory.",
			Bullish:          "RSI is oversold, selling pressure is exhausted.",
			Bearish:          "RSI is overbought, upside is stretched.",
			DataRequirements: priceHistory,
		},
		{
			ID: MACDMomentum, Name: "MACD Momentum", Priority: 2, Weight: 15,
			Description:      "MACD histogram sign and slope.",
			Bullish:          "Histogram positive and rising.",
			Bearish:          "Histogram negative and falling.",
			DataRequirements: priceHistory,
		},
		{
			ID: VolumeSurge, Name: "Volume Surge", Priority: 3, Weight: 10,
			Description:      "Latest volume against its recent average.",
			Bullish:          "Unusual participation behind the move.",
			Bearish:          "Volume below average.",
			DataRequirements: []models.DataType{models.DataPriceHistory, models.DataVolume},
		},
		{
			ID: BollingerPosition, Name: "Bollinger Position", Priority: 4, Weight: 10,
			Description:      "Close relative to the Bollinger bands.",
			Bullish:          "Price at or under the lower band.",
			Bearish:          "Price at or over the upper band.",
			DataRequirements: priceHistory,
		},
		{
			ID: MACross, Name: "Moving Average Cross", Priority: 5, Weight: 10,
			Description:      "Short versus long simple moving average.",
			Bullish:          "Golden cross or short average above long.",
			Bearish:          "Death cross or short average below long.",
			DataRequirements: priceHistory,
		},
		{
			ID: StochasticReversal, Name: "Stochastic Reversal", Priority: 6, Weight: 8,
			Description:      "Stochastic oscillator turning from oversold.",
			Bullish:          "%K low and crossing above %D.",
			Bearish:          "%K high and below %D.",
			DataRequirements: priceHistory,
		},
		{
			ID: ADXTrend, Name: "ADX Trend", Priority: 7, Weight: 8,
			Description:      "Trend strength and direction from ADX and the DI lines.",
			Bullish:          "Strong trend with +DI above -DI.",
			Bearish:          "Strong trend with -DI above +DI.",
			DataRequirements: []models.DataType{models.DataPriceHistory, models.DataTechnical},
		},
		{
			ID: MFIFlow, Name: "Money Flow", Priority: 8, Weight: 6,
			Description:      "Money flow index.",
			Bullish:          "Money flow oversold.",
			Bearish:          "Money flow overbought.",
			DataRequirements: []models.DataType{models.DataPriceHistory, models.DataVolume},
		},
		{
			ID: CCIExtreme, Name: "CCI Extreme", Priority: 9, Weight: 6,
			Description:      "Commodity channel index extremes.",
			Bullish:          "CCI deeply negative.",
			Bearish:          "CCI strongly positive.",
			DataRequirements: priceHistory,
		},
		{
			ID: OBVTrend, Name: "OBV Trend", Priority: 10, Weight: 6,
			Description:      "On-balance volume accumulation.",
			Bullish:          "Volume flowing in on up days.",
			Bearish:          "Volume flowing out on down days.",
			DataRequirements: []models.DataType{models.DataPriceHistory, models.DataVolume},
		},
		{
			ID: VWAPPosition, Name: "VWAP Position", Priority: 11, Weight: 5,
			Description:      "Price relative to the volume-weighted average price.",
			Bullish:          "Trading below VWAP.",
			Bearish:          "Trading above VWAP.",
			DataRequirements: []models.DataType{models.DataPriceHistory, models.DataVolume, models.DataQuote},
		},
		{
			ID: EarningsProximity, Name: "Earnings Proximity", Priority: 12, Weight: 4,
			Description:      "Days until the next earnings report.",
			Bullish:          "Report due soon.",
			Bearish:          "No report in view.",
			DataRequirements: []models.DataType{models.DataFundamental, models.DataEarningsCalendar},
		},
		{
			ID: ISACalendar, Name: "ISA Calendar", Priority: 13, Weight: 2,
			Description: "Position in the UK ISA allowance year.",
			Bullish:     "Year-end deadline inflows or fresh allowance.",
			Bearish:     "Mid-year lull.",
		},
	}
	for i := range defs {
		defs[i].Active = true
		defs[i].MaxScore = 100
	}
	return defs
}

// BuiltinScorers returns one instance of every shipped directive.
func BuiltinScorers() []Scorer {
	return []Scorer{
		newRSIOversold(),
		newMACDMomentum(),
		newVolumeSurge(),
		newBollingerPosition(),
		newMACross(),
		newStochasticReversal(),
		newADXTrend(),
		newMFIFlow(),
		newCCIExtreme(),
		newOBVTrend(),
		newVWAPPosition(),
		newEarningsProximity(),
		newISACalendar(),
	}
}
