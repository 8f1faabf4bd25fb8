package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"scoring_engine/internal/models"
)

const SimulatedName = "simulated"

// Simulated produces deterministic synthetic market data seeded by symbol and
// day. Every result carries Synthetic=true.
type Simulated struct {
	Now func() time.Time
}

var _ DataProvider = (*Simulated)(nil)

func NewSimulated() *Simulated {
	return &Simulated{Now: time.Now}
}

func (s *Simulated) Name() string { return SimulatedName }

func (s *Simulated) Capabilities() []models.DataType {
	return []models.DataType{
		models.DataQuote, models.DataPriceHistory, models.DataVolume, models.DataTechnical,
		models.DataFundamental, models.DataSentiment, models.DataEarningsCalendar,
	}
}

func (s *Simulated) GetQuote(ctx context.Context, symbol string) (Result[models.Quote], error) {
	bars, err := s.bars(ctx, symbol, 21)
	if err != nil {
		return Result[models.Quote]{}, err
	}
	last, prev := bars[len(bars)-1], bars[len(bars)-2]
	var avg float64
	for _, b := range bars[:len(bars)-1] {
		avg += b.Volume
	}
	avg /= float64(len(bars) - 1)

	q := models.Quote{
		Symbol:        symbol,
		Price:         last.Close,
		Change:        last.Close - prev.Close,
		ChangePercent: (last.Close - prev.Close) / prev.Close * 100,
		Volume:        last.Volume,
		AvgVolume:     avg,
		Timestamp:     s.Now().UTC(),
	}
	return synthetic(s, q), nil
}

func (s *Simulated) GetTechnicalIndicators(ctx context.Context, symbol string, n int) (Result[[]models.Bar], error) {
	bars, err := s.bars(ctx, symbol, n)
	if err != nil {
		return Result[[]models.Bar]{}, err
	}
	return synthetic(s, bars), nil
}

func (s *Simulated) GetFundamentalData(ctx context.Context, symbol string) (Result[models.Fundamentals], error) {
	if err := ctx.Err(); err != nil {
		return Result[models.Fundamentals]{}, Transient(SimulatedName, "GetFundamentalData", err)
	}
	r := s.rng(symbol, 1)
	pe := 8 + r.Float64()*30
	eps := 0.5 + r.Float64()*6
	mcap := math.Round(1e9 + r.Float64()*5e11)
	next := s.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1+r.Intn(90))
	return synthetic(s, models.Fundamentals{
		Symbol:       symbol,
		PERatio:      &pe,
		EPS:          &eps,
		MarketCap:    &mcap,
		NextEarnings: &next,
	}), nil
}

func (s *Simulated) GetSentimentData(ctx context.Context, symbol string) (Result[models.Sentiment], error) {
	if err := ctx.Err(); err != nil {
		return Result[models.Sentiment]{}, Transient(SimulatedName, "GetSentimentData", err)
	}
	r := s.rng(symbol, 2)
	return synthetic(s, models.Sentiment{
		Symbol:    symbol,
		Score:     r.Float64()*2 - 1,
		Articles:  r.Intn(40),
		Timestamp: s.Now().UTC(),
	}), nil
}

// simulatedHorizon is the length of the walk every request is cut from, so
// quotes and histories for one symbol and day agree.
const simulatedHorizon = 260

// bars returns the last n bars of a seeded daily random walk ending today.
func (s *Simulated) bars(ctx context.Context, symbol string, n int) ([]models.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, Transient(SimulatedName, "bars", err)
	}
	if n < 2 {
		n = 2
	}
	total := simulatedHorizon
	if n > total {
		total = n
	}
	r := s.rng(symbol, 0)
	end := s.Now().UTC().Truncate(24 * time.Hour)
	price := 20 + r.Float64()*480
	baseVol := 1e5 + r.Float64()*5e6

	out := make([]models.Bar, total)
	for i := range out {
		open := price
		price = math.Max(1, price*(1+r.NormFloat64()*0.015+0.0005))
		hi := math.Max(open, price) * (1 + r.Float64()*0.01)
		lo := math.Min(open, price) * (1 - r.Float64()*0.01)
		out[i] = models.Bar{
			Time:   end.AddDate(0, 0, i-total+1),
			Open:   open,
			High:   hi,
			Low:    lo,
			Close:  price,
			Volume: math.Round(baseVol * (0.5 + r.Float64())),
		}
	}
	return out[total-n:], nil
}

func (s *Simulated) rng(symbol string, stream uint64) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	day := uint64(s.Now().UTC().Truncate(24*time.Hour).Unix())
	return rand.New(rand.NewSource(int64(h.Sum64() ^ day ^ stream<<56)))
}

func synthetic[T any](s *Simulated, data T) Result[T] {
	return Result[T]{
		Data:      data,
		APICalls:  1,
		Provider:  SimulatedName,
		FetchedAt: s.Now().UTC(),
		Synthetic: true,
	}
}
