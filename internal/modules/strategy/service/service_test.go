package service

import (
	"context"
	"math"
	"testing"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/memory"
	"scoring_engine/internal/store/options"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) *Service {
	t.Helper()
	reg, err := directive.NewRegistry(zap.NewNop(), options.NewMemory(), directive.BuiltinScorers()...)
	require.NoError(t, err)
	return New(zap.NewNop(), memory.New(), reg)
}

func validInput() Input {
	return Input{
		Name:      "Oversold bounce",
		Category:  "momentum",
		CreatedBy: "alice",
		Directives: []DirectiveInput{
			{ID: directive.RSIOversold, Weight: 20, Config: map[string]float64{"period": 14}},
			{ID: directive.MACDMomentum, Weight: 10},
		},
	}
}

func TestCreate_ClampsWeightsAndConfig(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	in := validInput()
	in.Directives[0].Weight = 150
	in.Directives[0].Config = map[string]float64{"period": 500, "bogus": 3}
	in.Directives[1].Weight = -5

	st, err := s.Create(ctx, in)
	require.NoError(t, err)
	assert.NotZero(t, st.ID)
	assert.Equal(t, 1, st.Version)

	require.Len(t, st.Directives, 2)
	assert.Equal(t, 100.0, st.Directives[0].Weight)
	assert.Equal(t, map[string]float64{"period": 50}, st.Directives[0].Config)
	assert.Equal(t, 0.0, st.Directives[1].Weight)
	assert.True(t, st.Directives[1].Active)
	assert.Equal(t, 1, st.Directives[1].SortOrder)
}

func TestCreate_RejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	cases := map[string]func(*Input){
		"missing name":      func(in *Input) { in.Name = "" },
		"missing owner":     func(in *Input) { in.CreatedBy = "" },
		"no directives":     func(in *Input) { in.Directives = nil },
		"empty directive":   func(in *Input) { in.Directives[1].ID = "" },
		"duplicate":         func(in *Input) { in.Directives[1].ID = in.Directives[0].ID },
		"unknown directive": func(in *Input) { in.Directives[1].ID = "moon_phase" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validInput()
			mutate(&in)
			_, err := s.Create(ctx, in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	in := validInput()
	in.Directives[1].ID = "moon_phase"
	_, err := s.Create(ctx, in)
	assert.ErrorIs(t, err, directive.ErrUnknownDirective)
}

func TestUpdateAndVersions(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	st, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	in := validInput()
	in.Name = "Oversold bounce v2"
	in.Directives = in.Directives[:1]
	updated, err := s.Update(ctx, st.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Len(t, updated.Directives, 1)

	versions, err := s.Versions(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, models.ChangeCreated, versions[0].ChangeType)
	assert.Equal(t, models.ChangeUpdated, versions[1].ChangeType)

	v1, err := s.Version(ctx, st.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Oversold bounce", v1.Snapshot.Name)
	assert.Len(t, v1.Snapshot.Directives, 2)

	_, err = s.Update(ctx, 999, in)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestArchive(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	st, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, s.Archive(ctx, st.ID))
	require.NoError(t, s.Archive(ctx, st.ID))

	got, err := s.Get(ctx, st.ID)
	require.NoError(t, err)
	assert.True(t, got.Archived)

	versions, err := s.Versions(ctx, st.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, models.ChangeArchived, versions[1].ChangeType)

	_, err = s.Update(ctx, st.ID, validInput())
	assert.ErrorIs(t, err, ErrArchived)

	list, err := s.List(ctx, models.StrategyFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.List(ctx, models.StrategyFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	st, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	empty, err := s.Stats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StrategyStats{StrategyID: st.ID}, empty)

	for _, r := range []struct {
		score   float64
		success bool
	}{{80, true}, {70, true}, {60, true}, {10, false}} {
		require.NoError(t, s.RecordTestResult(ctx, models.StrategyTestResult{
			StrategyID: st.ID, RunID: "r1", Symbol: "AAA", Score: r.score, Success: r.success,
		}))
	}

	stats, err := s.Stats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Tests)
	assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)
	assert.InDelta(t, 55, stats.AverageScore, 1e-9)
}

func TestStats_RollingWindow(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	st, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	for i := 0; i < StatsWindow+20; i++ {
		require.NoError(t, s.RecordTestResult(ctx, models.StrategyTestResult{
			StrategyID: st.ID, Score: 50, Success: i >= 20,
		}))
	}

	stats, err := s.Stats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, StatsWindow, stats.Tests)
	assert.Equal(t, 1.0, stats.SuccessRate)
}

func trendingData(symbol string) *models.SymbolData {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, 120)
	for i := range bars {
		c := 100 + float64(i)*0.2 + 3*math.Sin(float64(i)/4)
		bars[i] = models.Bar{Time: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 1e6}
	}
	series, _ := models.NewPriceSeries(symbol, bars...)
	return &models.SymbolData{Symbol: symbol, Series: series, Now: start.AddDate(0, 0, 120)}
}

func TestEvaluate_RecordsResults(t *testing.T) {
	ctx := context.Background()
	s := newService(t)
	st, err := s.Create(ctx, validInput())
	require.NoError(t, err)

	evals, err := s.Evaluate(ctx, st.ID, "run-1", []*models.SymbolData{
		trendingData("AAA"),
		{Symbol: "EMPTY"},
	}, 0)
	require.NoError(t, err)
	require.Len(t, evals, 2)

	assert.False(t, evals[0].Result.UsedFallback)
	assert.Contains(t, evals[0].Result.Components, string(directive.RSIOversold))
	assert.GreaterOrEqual(t, evals[0].Score, 0.0)
	assert.LessOrEqual(t, evals[0].Score, 100.0)
	assert.Equal(t, evals[0].Score >= DefaultPassScore, evals[0].Success)

	assert.True(t, evals[1].Result.UsedFallback)
	assert.False(t, evals[1].Success)

	stats, err := s.Stats(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tests)

	require.NoError(t, s.Archive(ctx, st.ID))
	_, err = s.Evaluate(ctx, st.ID, "run-2", nil, 0)
	assert.ErrorIs(t, err, ErrArchived)
}

func TestEvaluateActive_SkipsArchived(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	live, err := s.Create(ctx, validInput())
	require.NoError(t, err)
	in := validInput()
	in.Name = "Retired"
	retired, err := s.Create(ctx, in)
	require.NoError(t, err)
	require.NoError(t, s.Archive(ctx, retired.ID))

	n, err := s.EvaluateActive(ctx, "run-7", []*models.SymbolData{trendingData("AAA"), trendingData("BBB")})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	stats, err := s.Stats(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Tests)

	stats, err = s.Stats(ctx, retired.ID)
	require.NoError(t, err)
	assert.Zero(t, stats.Tests)
}
