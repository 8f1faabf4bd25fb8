package directive

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store/options"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testNow = time.Date(2026, 3, 20, 12, 0, 0, 0, time.UTC)

func makeData(t *testing.T, closes []float64) *models.SymbolData {
	t.Helper()
	start := testNow.AddDate(0, 0, -len(closes))
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		bars[i] = models.Bar{
			Time:   start.AddDate(0, 0, i),
			Open:   open,
			High:   math.Max(open, c) * 1.01,
			Low:    math.Min(open, c) * 0.99,
			Close:  c,
			Volume: 1000 + float64(i%7)*100,
		}
	}
	s, err := models.NewPriceSeries("TEST", bars...)
	require.NoError(t, err)
	next := testNow.AddDate(0, 0, 7)
	return &models.SymbolData{
		Symbol:       "TEST",
		Series:       s,
		Quote:        &models.Quote{Symbol: "TEST", Price: closes[len(closes)-1], Timestamp: testNow},
		Fundamentals: &models.Fundamentals{Symbol: "TEST", NextEarnings: &next},
		Now:          testNow,
	}
}

func wave(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 10*math.Sin(float64(i)/6) + float64(i)*0.1
	}
	return out
}

func newTestRegistry(t *testing.T, opts options.Store, extra ...Scorer) *Registry {
	t.Helper()
	if opts == nil {
		opts = options.NewMemory()
	}
	r, err := NewRegistry(zap.NewNop(), opts, append(BuiltinScorers(), extra...)...)
	require.NoError(t, err)
	return r
}

type fixedScorer struct {
	id    models.DirectiveID
	score float64
	err   error
}

func (f fixedScorer) ID() models.DirectiveID                   { return f.id }
func (f fixedScorer) Schema() models.ConfigSchema              { return nil }
func (f fixedScorer) MaxScore(models.DirectiveConfig) float64 { return 100 }
func (f fixedScorer) Explain(models.DirectiveConfig) string    { return "fixed" }
func (f fixedScorer) CalculateScore(*models.SymbolData, models.DirectiveConfig) (Result, error) {
	return Result{Score: f.score}, f.err
}

func TestBuiltinScorersStayInRange(t *testing.T) {
	data := makeData(t, wave(160))
	r := newTestRegistry(t, nil)

	for _, d := range r.Directives() {
		s, ok := r.Scorer(d.ID)
		require.True(t, ok, d.ID)
		cfg := r.Config(d.ID, nil)
		res, err := s.CalculateScore(data, cfg)
		require.NoError(t, err, d.ID)
		assert.GreaterOrEqual(t, res.Score, 0.0, d.ID)
		assert.LessOrEqual(t, res.Score, s.MaxScore(cfg), d.ID)
		assert.NotEmpty(t, s.Explain(cfg), d.ID)
	}
}

func TestScorersReportMissingData(t *testing.T) {
	empty := &models.SymbolData{Symbol: "X"}
	for _, s := range BuiltinScorers() {
		_, err := s.CalculateScore(empty, models.NewDirectiveConfig(s.Schema(), nil))
		assert.ErrorIs(t, err, ErrMissingData, s.ID())
	}
}

func TestNewRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(zap.NewNop(), options.NewMemory(), newRSIOversold(), newRSIOversold())
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestReloadMergesOverrides(t *testing.T) {
	ctx := context.Background()
	opts := options.NewMemory()
	weight, inactive := 40.0, false
	customWeight := 10.0
	require.NoError(t, opts.Set(ctx, options.KeyDirectiveOverrides, map[string]models.DirectiveOverride{
		"rsi_oversold":    {Weight: &weight, Active: &inactive},
		"custom_breakout": {Weight: &customWeight},
	}))

	r := newTestRegistry(t, opts)
	require.NoError(t, r.Reload(ctx))

	rsi, ok := r.Directive(RSIOversold)
	require.True(t, ok)
	assert.Equal(t, 40.0, rsi.Weight)
	assert.False(t, rsi.Active)
	assert.Equal(t, "RSI Oversold", rsi.Name, "unset fields keep the default")

	custom, ok := r.Directive("custom_breakout")
	require.True(t, ok)
	assert.Equal(t, "Custom Breakout", custom.Name)
	assert.True(t, custom.Custom)
	assert.True(t, custom.Active)

	_, active := r.Requirements()[RSIOversold]
	assert.False(t, active)
}

func TestConfigIsClampedOnRead(t *testing.T) {
	ctx := context.Background()
	opts := options.NewMemory()
	require.NoError(t, opts.Set(ctx, options.KeyDirectiveConfig, map[string]map[string]float64{
		"rsi_oversold": {"period": 500, "oversold": -3},
	}))
	r := newTestRegistry(t, opts)
	require.NoError(t, r.Reload(ctx))

	cfg := r.Config(RSIOversold, nil)
	assert.Equal(t, 50, cfg.Int("period"))
	assert.Equal(t, 5.0, cfg.Float("oversold"))

	cfg = r.Config(RSIOversold, map[string]float64{"period": 1.4})
	assert.Equal(t, 2, cfg.Int("period"))
}

func TestValidate(t *testing.T) {
	r := newTestRegistry(t, nil)
	require.NoError(t, r.Validate(RSIOversold, MACDMomentum))

	err := r.Validate(RSIOversold, "nope", "also_nope")
	require.ErrorIs(t, err, ErrUnknownDirective)
	assert.Contains(t, err.Error(), "also_nope, nope")
}

func TestCompositeWeightedAverage(t *testing.T) {
	ctx := context.Background()
	opts := options.NewMemory()
	w := 1.0
	require.NoError(t, opts.Set(ctx, options.KeyDirectiveOverrides, map[string]models.DirectiveOverride{
		"fake_a": {Weight: &w},
		"fake_b": {Weight: &w},
	}))
	r := newTestRegistry(t, opts,
		fixedScorer{id: "fake_a", score: 80},
		fixedScorer{id: "fake_b", score: 40},
	)
	require.NoError(t, r.Reload(ctx))

	res := r.Composite(&models.SymbolData{}, Weighting{Weights: map[models.DirectiveID]float64{
		"fake_a": 1,
		"fake_b": 3,
	}}, 0)
	assert.False(t, res.UsedFallback)
	assert.InDelta(t, 50, res.Score, 1e-9)
	assert.InDelta(t, 20, res.Components["fake_a"].Contribution, 1e-9)
	assert.InDelta(t, 30, res.Components["fake_b"].Contribution, 1e-9)
}

func TestCompositeFallsBackToPrevious(t *testing.T) {
	r := newTestRegistry(t, nil)
	res := r.Composite(makeData(t, wave(160)), Weighting{Weights: map[models.DirectiveID]float64{
		RSIOversold: 0,
		MACross:     -5,
	}}, 61)
	assert.True(t, res.UsedFallback)
	assert.Equal(t, 61.0, res.Score)
}

func TestCompositeIsolatesDirectiveFailures(t *testing.T) {
	ctx := context.Background()
	opts := options.NewMemory()
	w := 50.0
	require.NoError(t, opts.Set(ctx, options.KeyDirectiveOverrides, map[string]models.DirectiveOverride{
		"custom_breakout": {Weight: &w},
		"broken":          {Weight: &w},
	}))
	r := newTestRegistry(t, opts, fixedScorer{id: "broken", err: errors.New("boom")})
	require.NoError(t, r.Reload(ctx))

	res := r.Composite(makeData(t, wave(160)), Weighting{}, 0)
	assert.False(t, res.UsedFallback)

	failed := map[models.DirectiveID]error{}
	for _, is := range res.Issues {
		failed[is.Directive] = is.Err
	}
	assert.ErrorIs(t, failed["custom_breakout"], ErrMissingImplementation)
	assert.EqualError(t, failed["broken"], "boom")
	assert.NotContains(t, res.Components, "broken")
	assert.Contains(t, res.Components, string(RSIOversold))
}

func TestCompositeAlwaysInRange(t *testing.T) {
	r := newTestRegistry(t, nil)
	data := makeData(t, wave(160))
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		weights := map[models.DirectiveID]float64{}
		for _, d := range r.Directives() {
			weights[d.ID] = rng.Float64() * 150
		}
		res := r.Composite(data, Weighting{Weights: weights}, 0)
		assert.GreaterOrEqual(t, res.Score, 0.0)
		assert.LessOrEqual(t, res.Score, 100.0)
	}
}

func TestReloadIsAtomicForReaders(t *testing.T) {
	ctx := context.Background()
	opts := options.NewMemory()
	r := newTestRegistry(t, opts)
	want := len(DefaultDefinitions())

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				ds := r.Directives()
				if len(ds) < want {
					t.Errorf("partial state: %d directives", len(ds))
					return
				}
			}
		}()
	}
	for i := 0; i < 50; i++ {
		w := float64(i)
		require.NoError(t, opts.Set(ctx, options.KeyDirectiveOverrides, map[string]models.DirectiveOverride{
			fmt.Sprintf("custom_%d", i): {Weight: &w},
		}))
		require.NoError(t, r.Reload(ctx))
	}
	close(stop)
	wg.Wait()
}

func TestExplain(t *testing.T) {
	r := newTestRegistry(t, nil)
	text, err := r.Explain(RSIOversold)
	require.NoError(t, err)
	assert.Contains(t, text, "RSI(14)")

	_, err = r.Explain("nope")
	assert.ErrorIs(t, err, ErrUnknownDirective)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Custom Breakout", DisplayName("custom_breakout"))
	assert.Equal(t, "Gap Up Open", DisplayName("gap-up_open"))
	assert.Equal(t, "Élan Über", DisplayName("élan_über"))
}

func TestRSIOversoldOnFallingSeries(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100 - float64(i)
	}
	s := newRSIOversold()
	res, err := s.CalculateScore(makeData(t, closes), models.NewDirectiveConfig(s.Schema(), nil))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
	assert.Equal(t, 0.0, res.Breakdown["rsi"])
}

func TestMACrossScore(t *testing.T) {
	v, err := MACrossScore([]float64{10, 10, 10, 9, 12}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 100.0, v, "golden cross")

	v, err = MACrossScore([]float64{10, 10, 10, 11, 8}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v, "death cross")

	_, err = MACrossScore([]float64{1, 2, 3}, 3, 2)
	assert.Error(t, err)
}

func TestTaxYearPosition(t *testing.T) {
	toEnd, since := TaxYearPosition(time.Date(2026, 4, 5, 18, 0, 0, 0, time.UTC))
	assert.Equal(t, 0, toEnd)
	assert.Equal(t, 364, since)

	toEnd, since = TaxYearPosition(time.Date(2026, 4, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 364, toEnd)
	assert.Equal(t, 0, since)

	s := newISACalendar()
	res, err := s.CalculateScore(&models.SymbolData{Now: time.Date(2026, 4, 5, 9, 0, 0, 0, time.UTC)},
		models.NewDirectiveConfig(s.Schema(), nil))
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.Score)
}
