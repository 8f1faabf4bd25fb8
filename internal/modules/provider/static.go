package provider

import (
	"context"
	"sync"
	"time"

	"scoring_engine/internal/models"
)

// Static serves fixtures held in memory. Errs injects a failure per symbol
// for every call until cleared.
type Static struct {
	name string
	caps []models.DataType
	now  func() time.Time

	mu           sync.Mutex
	quotes       map[string]models.Quote
	bars         map[string][]models.Bar
	fundamentals map[string]models.Fundamentals
	sentiment    map[string]models.Sentiment
	errs         map[string]error
	calls        map[string]int
}

var _ DataProvider = (*Static)(nil)

func NewStatic(name string, now func() time.Time, caps ...models.DataType) *Static {
	if now == nil {
		now = time.Now
	}
	if len(caps) == 0 {
		caps = []models.DataType{models.DataQuote, models.DataPriceHistory, models.DataVolume, models.DataTechnical}
	}
	return &Static{
		name:         name,
		caps:         caps,
		now:          now,
		quotes:       make(map[string]models.Quote),
		bars:         make(map[string][]models.Bar),
		fundamentals: make(map[string]models.Fundamentals),
		sentiment:    make(map[string]models.Sentiment),
		errs:         make(map[string]error),
		calls:        make(map[string]int),
	}
}

func (s *Static) Name() string                    { return s.name }
func (s *Static) Capabilities() []models.DataType { return s.caps }

func (s *Static) SetQuote(q models.Quote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[q.Symbol] = q
}

func (s *Static) SetBars(symbol string, bars []models.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[symbol] = append([]models.Bar(nil), bars...)
}

func (s *Static) SetFundamentals(f models.Fundamentals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fundamentals[f.Symbol] = f
}

func (s *Static) SetSentiment(v models.Sentiment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sentiment[v.Symbol] = v
}

// SetError makes every call for symbol fail with err; nil clears it.
func (s *Static) SetError(symbol string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, symbol)
		return
	}
	s.errs[symbol] = err
}

// Calls reports how many requests were made for symbol.
func (s *Static) Calls(symbol string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[symbol]
}

func (s *Static) GetQuote(ctx context.Context, symbol string) (Result[models.Quote], error) {
	return lookup(ctx, s, "GetQuote", symbol, s.quotes)
}

func (s *Static) GetTechnicalIndicators(ctx context.Context, symbol string, n int) (Result[[]models.Bar], error) {
	r, err := lookup(ctx, s, "GetTechnicalIndicators", symbol, s.bars)
	if err == nil && n > 0 && len(r.Data) > n {
		r.Data = r.Data[len(r.Data)-n:]
	}
	return r, err
}

func (s *Static) GetFundamentalData(ctx context.Context, symbol string) (Result[models.Fundamentals], error) {
	return lookup(ctx, s, "GetFundamentalData", symbol, s.fundamentals)
}

func (s *Static) GetSentimentData(ctx context.Context, symbol string) (Result[models.Sentiment], error) {
	return lookup(ctx, s, "GetSentimentData", symbol, s.sentiment)
}

func lookup[T any](ctx context.Context, s *Static, op, symbol string, src map[string]T) (Result[T], error) {
	var zero Result[T]
	if err := ctx.Err(); err != nil {
		return zero, Transient(s.name, op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[symbol]++
	if err := s.errs[symbol]; err != nil {
		return zero, err
	}
	v, ok := src[symbol]
	if !ok {
		return zero, Unavailable(s.name, op, nil)
	}
	return Result[T]{Data: v, APICalls: 1, Provider: s.name, FetchedAt: s.now().UTC()}, nil
}
