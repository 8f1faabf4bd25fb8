package directive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store/options"

	"go.uber.org/zap"
)

// Registry maps directive ids to scorers and keeps the merged definitions.
// Scorers are fixed at construction; definitions and stored config values are
// rebuilt by Reload and swapped in one pointer store.
type Registry struct {
	log      *zap.Logger
	opts     options.Store
	scorers  map[models.DirectiveID]Scorer
	defaults []models.Directive

	reloadMu sync.Mutex
	state    atomic.Pointer[registryState]
}

type registryState struct {
	byID     map[models.DirectiveID]models.Directive
	ordered  []models.Directive
	configs  map[models.DirectiveID]map[string]float64
	loadedAt time.Time
}

// NewRegistry rejects duplicate scorer ids. The initial state holds the
// defaults only; call Reload to pick up stored overrides.
func NewRegistry(log *zap.Logger, opts options.Store, scorers ...Scorer) (*Registry, error) {
	r := &Registry{
		log:      log.With(zap.String("component", "directive_registry")),
		opts:     opts,
		scorers:  make(map[models.DirectiveID]Scorer, len(scorers)),
		defaults: DefaultDefinitions(),
	}
	for _, s := range scorers {
		if _, dup := r.scorers[s.ID()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, s.ID())
		}
		r.scorers[s.ID()] = s
	}
	r.state.Store(r.build(nil, nil))
	return r, nil
}

// Reload reads overrides and config values from the option store and swaps
// in a freshly built state.
func (r *Registry) Reload(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("directive.Reload: %w", err)
		}
	}()

	r.reloadMu.Lock()
	defer r.reloadMu.Unlock()

	overrides, err := options.GetOrDefault(ctx, r.opts, options.KeyDirectiveOverrides, map[string]models.DirectiveOverride{})
	if err != nil {
		return err
	}
	configs, err := options.GetOrDefault(ctx, r.opts, options.KeyDirectiveConfig, map[string]map[string]float64{})
	if err != nil {
		return err
	}
	st := r.build(overrides, configs)
	r.state.Store(st)
	r.log.Info("directives reloaded", zap.Int("directives", len(st.ordered)), zap.Int("overrides", len(overrides)))
	return nil
}

func (r *Registry) build(overrides map[string]models.DirectiveOverride, configs map[string]map[string]float64) *registryState {
	st := &registryState{
		byID:     make(map[models.DirectiveID]models.Directive, len(r.defaults)+len(overrides)),
		configs:  make(map[models.DirectiveID]map[string]float64, len(configs)),
		loadedAt: time.Now(),
	}
	for _, d := range r.defaults {
		if o, ok := overrides[string(d.ID)]; ok {
			d = d.Merge(o)
		}
		d.DataRequirements = append([]models.DataType(nil), d.DataRequirements...)
		st.byID[d.ID] = d
	}
	for id, o := range overrides {
		did := models.DirectiveID(id)
		if _, known := st.byID[did]; known || id == "" {
			continue
		}
		custom := models.Directive{
			ID:       did,
			Name:     DisplayName(id),
			Active:   true,
			MaxScore: 100,
			Custom:   true,
		}
		st.byID[did] = custom.Merge(o)
	}
	for id, values := range configs {
		cp := make(map[string]float64, len(values))
		for k, v := range values {
			cp[k] = v
		}
		st.configs[models.DirectiveID(id)] = cp
	}

	st.ordered = make([]models.Directive, 0, len(st.byID))
	for _, d := range st.byID {
		st.ordered = append(st.ordered, d)
	}
	models.SortDirectives(st.ordered)
	return st
}

// DisplayName turns an id like custom_breakout into "Custom Breakout".
func DisplayName(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// Directives returns all merged definitions ordered by priority.
func (r *Registry) Directives() []models.Directive {
	st := r.state.Load()
	out := make([]models.Directive, len(st.ordered))
	copy(out, st.ordered)
	return out
}

func (r *Registry) Directive(id models.DirectiveID) (models.Directive, bool) {
	d, ok := r.state.Load().byID[id]
	return d, ok
}

func (r *Registry) Scorer(id models.DirectiveID) (Scorer, bool) {
	s, ok := r.scorers[id]
	return s, ok
}

// LoadedAt is when the current state was built.
func (r *Registry) LoadedAt() time.Time { return r.state.Load().loadedAt }

// Validate reports every id that is not a known directive.
func (r *Registry) Validate(ids ...models.DirectiveID) error {
	st := r.state.Load()
	var unknown []string
	for _, id := range ids {
		if _, ok := st.byID[id]; !ok {
			unknown = append(unknown, string(id))
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownDirective, strings.Join(unknown, ", "))
	}
	return nil
}

// Config returns the clamped parameter set for id: schema defaults, then stored
// values, then overrides.
func (r *Registry) Config(id models.DirectiveID, overrides map[string]float64) models.DirectiveConfig {
	var schema models.ConfigSchema
	if s, ok := r.scorers[id]; ok {
		schema = s.Schema()
	}
	cfg := models.NewDirectiveConfig(schema, r.state.Load().configs[id])
	if len(overrides) > 0 {
		cfg = cfg.With(overrides)
	}
	return cfg
}

// Explain describes id with its current config.
func (r *Registry) Explain(id models.DirectiveID) (string, error) {
	d, ok := r.Directive(id)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownDirective, id)
	}
	s, ok := r.scorers[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingImplementation, id)
	}
	return fmt.Sprintf("%s: %s", d.Name, s.Explain(r.Config(id, nil))), nil
}

// Requirements maps every active directive to the data types it needs.
func (r *Registry) Requirements() map[models.DirectiveID][]models.DataType {
	st := r.state.Load()
	out := make(map[models.DirectiveID][]models.DataType, len(st.byID))
	for id, d := range st.byID {
		if d.Active {
			out[id] = append([]models.DataType(nil), d.DataRequirements...)
		}
	}
	return out
}

// Issue is a per-directive failure that did not stop the composite.
type Issue struct {
	Directive models.DirectiveID
	Err       error
}

// Weighting selects directives and weights for Composite. With nil Weights the
// active merged definitions and their weights are used.
type Weighting struct {
	Weights   map[models.DirectiveID]float64
	Overrides map[models.DirectiveID]map[string]float64
}

type CompositeResult struct {
	Score        float64
	UsedFallback bool
	Components   map[string]models.Component
	Issues       []Issue
}

// Composite is Σ(normalized score × weight) / Σweight over directives with a
// positive weight that produced a score. When nothing contributes it returns previous.
func (r *Registry) Composite(data *models.SymbolData, w Weighting, previous float64) CompositeResult {
	st := r.state.Load()
	weights := w.Weights
	if weights == nil {
		weights = make(map[models.DirectiveID]float64, len(st.byID))
		for id, d := range st.byID {
			if d.Active {
				weights[id] = d.Weight
			}
		}
	}

	ids := make([]models.DirectiveID, 0, len(weights))
	for id := range weights {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	res := CompositeResult{Components: make(map[string]models.Component)}
	var sum, weightSum float64
	for _, id := range ids {
		weight := models.ClampWeight(weights[id])
		if weight <= 0 {
			continue
		}
		d, ok := st.byID[id]
		if !ok {
			res.Issues = append(res.Issues, Issue{Directive: id, Err: ErrUnknownDirective})
			continue
		}
		if !d.Active && w.Weights == nil {
			continue
		}
		s, ok := r.scorers[id]
		if !ok {
			res.Issues = append(res.Issues, Issue{Directive: id, Err: ErrMissingImplementation})
			continue
		}

		cfg := models.NewDirectiveConfig(s.Schema(), st.configs[id]).With(w.Overrides[id])
		out, err := s.CalculateScore(data, cfg)
		if err != nil {
			res.Issues = append(res.Issues, Issue{Directive: id, Err: err})
			continue
		}
		maxScore := s.MaxScore(cfg)
		if maxScore <= 0 {
			res.Issues = append(res.Issues, Issue{Directive: id, Err: errors.New("non-positive max score")})
			continue
		}
		normalized := clamp(out.Score/maxScore*100, 0, 100)
		res.Components[string(id)] = models.Component{Value: out.Score, Score: normalized, Weight: weight}
		sum += normalized * weight
		weightSum += weight
	}

	for _, is := range res.Issues {
		r.log.Warn("directive issue", zap.String("directive", string(is.Directive)), zap.Error(is.Err))
	}

	if weightSum <= 0 {
		res.Score = previous
		res.UsedFallback = true
		return res
	}
	for id, c := range res.Components {
		c.Contribution = c.Score * c.Weight / weightSum
		res.Components[id] = c
	}
	res.Score = clamp(sum/weightSum, 0, 100)
	return res
}
