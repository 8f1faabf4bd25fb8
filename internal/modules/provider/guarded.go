package provider

import (
	"context"
	"errors"
	"time"

	"scoring_engine/internal/models"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

type GuardConfig struct {
	RatePerSecond   float64
	Burst           int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Guarded rate-limits a provider and trips a circuit breaker after consecutive
// transient failures. Unavailable results do not count against the breaker.
type Guarded struct {
	next    DataProvider
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

var _ DataProvider = (*Guarded)(nil)

func NewGuarded(next DataProvider, cfg GuardConfig) *Guarded {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}

	st := gobreaker.Settings{
		Name:    next.Name(),
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			k := KindOf(err)
			return k == "" || k == KindUnavailable
		},
	}
	return &Guarded{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		breaker: gobreaker.NewCircuitBreaker(st),
	}
}

func (g *Guarded) Name() string                    { return g.next.Name() }
func (g *Guarded) Capabilities() []models.DataType { return g.next.Capabilities() }

// State exposes the breaker state for health reporting.
func (g *Guarded) State() gobreaker.State { return g.breaker.State() }

func (g *Guarded) GetQuote(ctx context.Context, symbol string) (Result[models.Quote], error) {
	return guard(ctx, g, "GetQuote", func(ctx context.Context) (Result[models.Quote], error) {
		return g.next.GetQuote(ctx, symbol)
	})
}

func (g *Guarded) GetTechnicalIndicators(ctx context.Context, symbol string, bars int) (Result[[]models.Bar], error) {
	return guard(ctx, g, "GetTechnicalIndicators", func(ctx context.Context) (Result[[]models.Bar], error) {
		return g.next.GetTechnicalIndicators(ctx, symbol, bars)
	})
}

func (g *Guarded) GetFundamentalData(ctx context.Context, symbol string) (Result[models.Fundamentals], error) {
	return guard(ctx, g, "GetFundamentalData", func(ctx context.Context) (Result[models.Fundamentals], error) {
		return g.next.GetFundamentalData(ctx, symbol)
	})
}

func (g *Guarded) GetSentimentData(ctx context.Context, symbol string) (Result[models.Sentiment], error) {
	return guard(ctx, g, "GetSentimentData", func(ctx context.Context) (Result[models.Sentiment], error) {
		return g.next.GetSentimentData(ctx, symbol)
	})
}

func guard[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (Result[T], error)) (Result[T], error) {
	var zero Result[T]
	if err := g.limiter.Wait(ctx); err != nil {
		return zero, Transient(g.Name(), op, err)
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return zero, Transient(g.Name(), op, err)
	}
	if err != nil {
		return zero, err
	}
	return out.(Result[T]), nil
}
