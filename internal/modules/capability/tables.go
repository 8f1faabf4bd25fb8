package capability

import "scoring_engine/internal/models"

// DefaultFreshness applies to data types missing from the freshness table.
const DefaultFreshness = 1800 // seconds

// providerOrder is the preference order when several providers serve a type.
var providerOrder = []string{
	"alpha_vantage",
	"finnhub",
	"twelve_data",
	"polygon",
	"coingecko",
	"yahoo_finance",
}

// StaticTables declares what each known upstream can serve.
func StaticTables() map[string][]models.DataType {
	return map[string][]models.DataType{
		"alpha_vantage": {
			models.DataQuote, models.DataPriceHistory, models.DataVolume,
			models.DataTechnical, models.DataFundamental, models.DataEarningsCalendar,
		},
		"finnhub": {
			models.DataQuote, models.DataPriceHistory, models.DataFundamental,
			models.DataSentiment, models.DataEarningsCalendar,
		},
		"twelve_data": {
			models.DataQuote, models.DataPriceHistory, models.DataVolume, models.DataTechnical,
		},
		"polygon": {
			models.DataQuote, models.DataPriceHistory, models.DataVolume,
		},
		"coingecko": {
			models.DataQuote, models.DataPriceHistory, models.DataVolume,
		},
		"yahoo_finance": {
			models.DataQuote, models.DataPriceHistory, models.DataVolume,
			models.DataFundamental, models.DataEarningsCalendar,
		},
	}
}

// FreshnessTable is the maximum acceptable age per data type, in seconds.
func FreshnessTable() map[models.DataType]int {
	return map[models.DataType]int{
		models.DataQuote:            300,
		models.DataPriceHistory:     3600,
		models.DataVolume:           900,
		models.DataTechnical:        3600,
		models.DataFundamental:      86400,
		models.DataSentiment:        3600,
		models.DataEarningsCalendar: 86400,
	}
}
