package models

import (
	"math"
	"sort"
)

type DirectiveID string

// Directive is the merged definition of one scoring rule.
type Directive struct {
	ID               DirectiveID `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	Weight           float64     `json:"weight"` // 0..100
	Active           bool        `json:"active"`
	Bullish          string      `json:"bullish"`
	Bearish          string      `json:"bearish"`
	Priority         int         `json:"priority"`
	MaxScore         float64     `json:"max_score"`
	DataRequirements []DataType  `json:"data_requirements"`
	// Custom marks a directive that exists only in deployment overrides.
	Custom bool `json:"custom,omitempty"`
}

// DirectiveOverride carries deployment-specific values. Nil fields keep the default.
type DirectiveOverride struct {
	Name             *string    `json:"name,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Weight           *float64   `json:"weight,omitempty"`
	Active           *bool      `json:"active,omitempty"`
	Bullish          *string    `json:"bullish,omitempty"`
	Bearish          *string    `json:"bearish,omitempty"`
	Priority         *int       `json:"priority,omitempty"`
	MaxScore         *float64   `json:"max_score,omitempty"`
	DataRequirements []DataType `json:"data_requirements,omitempty"`
}

// Merge applies o on top of d field by field.
func (d Directive) Merge(o DirectiveOverride) Directive {
	if o.Name != nil {
		d.Name = *o.Name
	}
	if o.Description != nil {
		d.Description = *o.Description
	}
	if o.Weight != nil {
		d.Weight = *o.Weight
	}
	if o.Active != nil {
		d.Active = *o.Active
	}
	if o.Bullish != nil {
		d.Bullish = *o.Bullish
	}
	if o.Bearish != nil {
		d.Bearish = *o.Bearish
	}
	if o.Priority != nil {
		d.Priority = *o.Priority
	}
	if o.MaxScore != nil {
		d.MaxScore = *o.MaxScore
	}
	if len(o.DataRequirements) > 0 {
		d.DataRequirements = append([]DataType(nil), o.DataRequirements...)
	}
	d.Weight = ClampWeight(d.Weight)
	return d
}

// ClampWeight keeps a directive weight inside 0..100.
func ClampWeight(w float64) float64 {
	if math.IsNaN(w) || w < 0 {
		return 0
	}
	return math.Min(w, 100)
}

type ParamType string

const (
	ParamInt   ParamType = "int"
	ParamFloat ParamType = "float"
)

// ParamSpec describes one tunable directive parameter.
type ParamSpec struct {
	Type    ParamType `json:"type"`
	Min     float64   `json:"min"`
	Max     float64   `json:"max"`
	Default float64   `json:"default"`
	Step    float64   `json:"step"`
}

// Validate returns v clamped into [Min,Max]; ints are rounded. NaN becomes the default.
// Validate(Validate(v)) == Validate(v).
func (p ParamSpec) Validate(v float64) float64 {
	lo, hi := p.Min, p.Max
	if lo > hi {
		lo, hi = hi, lo
	}
	if math.IsNaN(v) {
		v = p.Default
		if math.IsNaN(v) {
			v = lo
		}
	}
	v = math.Max(lo, math.Min(hi, v))
	if p.Type == ParamInt {
		v = math.Max(lo, math.Min(hi, math.Round(v)))
	}
	return v
}

type ConfigSchema map[string]ParamSpec

// DirectiveConfig is a validated set of parameter values for one directive.
type DirectiveConfig struct {
	schema ConfigSchema
	values map[string]float64
}

// NewDirectiveConfig keeps only known parameters and clamps every value.
// Missing parameters take their defaults.
func NewDirectiveConfig(schema ConfigSchema, values map[string]float64) DirectiveConfig {
	c := DirectiveConfig{schema: schema, values: make(map[string]float64, len(schema))}
	for name, spec := range schema {
		v, ok := values[name]
		if !ok {
			v = spec.Default
		}
		c.values[name] = spec.Validate(v)
	}
	return c
}

// ValidateField clamps a single value against the schema. ok is false for unknown names.
func (c DirectiveConfig) ValidateField(name string, v float64) (float64, bool) {
	spec, ok := c.schema[name]
	if !ok {
		return 0, false
	}
	return spec.Validate(v), true
}

func (c DirectiveConfig) Float(name string) float64 {
	if v, ok := c.values[name]; ok {
		return v
	}
	if spec, ok := c.schema[name]; ok {
		return spec.Validate(spec.Default)
	}
	return 0
}

func (c DirectiveConfig) Int(name string) int { return int(math.Round(c.Float(name))) }

func (c DirectiveConfig) Schema() ConfigSchema { return c.schema }

func (c DirectiveConfig) Values() map[string]float64 {
	out := make(map[string]float64, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// With returns a copy with overrides applied and clamped.
func (c DirectiveConfig) With(overrides map[string]float64) DirectiveConfig {
	merged := c.Values()
	for k, v := range overrides {
		merged[k] = v
	}
	return NewDirectiveConfig(c.schema, merged)
}

// SortDirectives orders by priority, then id.
func SortDirectives(ds []Directive) {
	sort.SliceStable(ds, func(i, j int) bool {
		if ds[i].Priority != ds[j].Priority {
			return ds[i].Priority < ds[j].Priority
		}
		return ds[i].ID < ds[j].ID
	})
}
