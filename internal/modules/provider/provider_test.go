package provider

import (
	"context"
	"errors"
	"testing"
	"time"

	"scoring_engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindTransient, KindOf(errors.New("boom")))
	assert.Equal(t, KindUnavailable, KindOf(Unavailable("p", "op", nil)))

	wrapped := errors.Join(errors.New("ctx"), Permanent("p", "op", errors.New("bad key")))
	assert.Equal(t, KindPermanent, KindOf(wrapped))
}

func TestSimulatedDeterministicAndSynthetic(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)
	s := &Simulated{Now: func() time.Time { return now }}
	ctx := context.Background()

	a, err := s.GetTechnicalIndicators(ctx, "AAPL", 60)
	require.NoError(t, err)
	b, err := s.GetTechnicalIndicators(ctx, "AAPL", 60)
	require.NoError(t, err)

	assert.True(t, a.Synthetic)
	assert.Equal(t, a.Data, b.Data)
	require.Len(t, a.Data, 60)
	for i := 1; i < len(a.Data); i++ {
		assert.True(t, a.Data[i].Time.After(a.Data[i-1].Time))
		assert.GreaterOrEqual(t, a.Data[i].High, a.Data[i].Low)
	}

	q, err := s.GetQuote(ctx, "AAPL")
	require.NoError(t, err)
	assert.True(t, q.Synthetic)
	assert.Equal(t, 1, q.APICalls)
	assert.Greater(t, q.Data.Price, 0.0)
}

func TestStaticUnavailableAndInjectedErrors(t *testing.T) {
	ctx := context.Background()
	s := NewStatic("fixture", nil)
	s.SetQuote(models.Quote{Symbol: "MSFT", Price: 400})

	r, err := s.GetQuote(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 400.0, r.Data.Price)
	assert.False(t, r.Synthetic)

	_, err = s.GetQuote(ctx, "NOPE")
	assert.Equal(t, KindUnavailable, KindOf(err))

	s.SetError("MSFT", Transient("fixture", "GetQuote", errors.New("timeout")))
	_, err = s.GetQuote(ctx, "MSFT")
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, 3, s.Calls("MSFT"))
}

func TestGuardedOpensBreaker(t *testing.T) {
	ctx := context.Background()
	inner := NewStatic("fixture", nil)
	inner.SetError("X", errors.New("connection reset"))
	g := NewGuarded(inner, GuardConfig{BreakerFailures: 2, BreakerTimeout: time.Hour})

	for i := 0; i < 2; i++ {
		_, err := g.GetQuote(ctx, "X")
		assert.Equal(t, KindTransient, KindOf(err))
	}
	_, err := g.GetQuote(ctx, "X")
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Equal(t, 2, inner.Calls("X"), "open breaker must not reach the provider")
}

func TestGuardedIgnoresUnavailable(t *testing.T) {
	ctx := context.Background()
	inner := NewStatic("fixture", nil)
	g := NewGuarded(inner, GuardConfig{BreakerFailures: 1, BreakerTimeout: time.Hour})

	for i := 0; i < 3; i++ {
		_, err := g.GetQuote(ctx, "MISSING")
		assert.Equal(t, KindUnavailable, KindOf(err))
	}
	assert.Equal(t, 3, inner.Calls("MISSING"))
}

func TestSetNames(t *testing.T) {
	s := NewSet(NewStatic("b", nil), NewStatic("a", nil))
	assert.Equal(t, []string{"a", "b"}, s.Names())
	_, ok := s.Get("a")
	assert.True(t, ok)
	assert.Len(t, s.Declarations()["a"], 4)
}
