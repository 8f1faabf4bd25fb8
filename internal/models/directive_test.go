package models

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamSpec_ValidateClampsAndIsIdempotent(t *testing.T) {
	specs := []ParamSpec{
		{Type: ParamInt, Min: 2, Max: 50, Default: 14, Step: 1},
		{Type: ParamFloat, Min: 0.5, Max: 3.5, Default: 2, Step: 0.1},
		{Type: ParamInt, Min: 1.5, Max: 3.7, Default: 2},
		{Type: ParamFloat, Min: 10, Max: 1, Default: 5},
	}
	inputs := []float64{math.Inf(1), math.Inf(-1), math.NaN(), -1e300, 1e300, 0, 3.6, 14.4, 2.5}

	for _, spec := range specs {
		lo, hi := math.Min(spec.Min, spec.Max), math.Max(spec.Min, spec.Max)
		for _, in := range inputs {
			v := spec.Validate(in)
			assert.GreaterOrEqual(t, v, lo)
			assert.LessOrEqual(t, v, hi)
			assert.Equal(t, v, spec.Validate(v))
		}
	}
}

func TestParamSpec_IntRounds(t *testing.T) {
	spec := ParamSpec{Type: ParamInt, Min: 2, Max: 50, Default: 14}
	assert.Equal(t, 15.0, spec.Validate(14.6))
	assert.Equal(t, 14.0, spec.Validate(math.NaN()))
}

func TestDirectiveConfig_DefaultsAndUnknownKeys(t *testing.T) {
	schema := ConfigSchema{
		"period":     {Type: ParamInt, Min: 2, Max: 50, Default: 14},
		"oversold":   {Type: ParamFloat, Min: 5, Max: 50, Default: 30},
		"overbought": {Type: ParamFloat, Min: 50, Max: 95, Default: 70},
	}
	cfg := NewDirectiveConfig(schema, map[string]float64{"period": 500, "junk": 1, "oversold": 1})

	assert.Equal(t, 50, cfg.Int("period"))
	assert.Equal(t, 5.0, cfg.Float("oversold"))
	assert.Equal(t, 70.0, cfg.Float("overbought"))
	assert.NotContains(t, cfg.Values(), "junk")

	v, ok := cfg.ValidateField("overbought", 10)
	assert.True(t, ok)
	assert.Equal(t, 50.0, v)
	_, ok = cfg.ValidateField("junk", 10)
	assert.False(t, ok)

	over := cfg.With(map[string]float64{"period": 7})
	assert.Equal(t, 7, over.Int("period"))
	assert.Equal(t, 50, cfg.Int("period"))
}

func TestDirective_MergeOverrideWins(t *testing.T) {
	base := Directive{ID: "rsi", Name: "RSI", Weight: 20, Active: true, Priority: 1, MaxScore: 100}
	name := "RSI (tuned)"
	weight := 250.0
	active := false
	merged := base.Merge(DirectiveOverride{Name: &name, Weight: &weight, Active: &active})

	assert.Equal(t, "RSI (tuned)", merged.Name)
	assert.Equal(t, 100.0, merged.Weight)
	assert.False(t, merged.Active)
	assert.Equal(t, 1, merged.Priority)
	assert.Equal(t, 20.0, base.Weight)
}

func TestPriceSeries_AppendOnlyChronological(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := NewPriceSeries("AAPL", Bar{Time: t0, Close: 1}, Bar{Time: t0.Add(time.Hour), Close: 2})
	require.NoError(t, err)

	assert.ErrorIs(t, s.Append(Bar{Time: t0.Add(time.Hour), Close: 3}), ErrOutOfOrder)
	require.NoError(t, s.Append(Bar{Time: t0.Add(2 * time.Hour), Close: 3}))
	assert.Equal(t, []float64{1, 2, 3}, s.Closes())

	bars := s.Bars()
	bars[0].Close = 99
	assert.Equal(t, 1.0, s.Closes()[0])
	assert.Equal(t, 1, s.SessionStart(t0.Add(30*time.Minute)))
}
