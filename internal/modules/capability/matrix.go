// Package capability answers which providers can serve which data types and how
// fresh that data has to be.
package capability

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"scoring_engine/internal/models"

	"go.uber.org/zap"
)

// RequirementSource supplies directive data requirements. The directive
// registry implements it.
type RequirementSource interface {
	Requirements() map[models.DirectiveID][]models.DataType
}

type Config struct {
	TTL time.Duration
	// Enabled are the providers actually configured; ProviderFor only returns these.
	Enabled map[string][]models.DataType
}

type snapshot struct {
	platforms map[models.DataType][]string
	freshness map[models.DataType]int
	enabled   map[string]bool
	builtAt   time.Time
}

// Matrix is rebuilt lazily once the TTL expires. Builds are serialized and
// published with a single pointer store, so readers see either the old or the
// new matrix, never a mix.
type Matrix struct {
	log  *zap.Logger
	cfg  Config
	reqs RequirementSource
	now  func() time.Time

	buildMu sync.Mutex
	current atomic.Pointer[snapshot]
}

func New(log *zap.Logger, cfg Config, reqs RequirementSource) *Matrix {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Matrix{
		log:  log.With(zap.String("component", "capability")),
		cfg:  cfg,
		reqs: reqs,
		now:  time.Now,
	}
}

// Refresh drops the cached matrix and rebuilds it synchronously.
func (m *Matrix) Refresh() {
	m.buildMu.Lock()
	defer m.buildMu.Unlock()
	m.current.Store(m.build())
}

// BuiltAt is the build time of the current matrix, zero before the first build.
func (m *Matrix) BuiltAt() time.Time {
	if s := m.current.Load(); s != nil {
		return s.builtAt
	}
	return time.Time{}
}

func (m *Matrix) load() *snapshot {
	if s := m.current.Load(); s != nil && m.now().Sub(s.builtAt) < m.cfg.TTL {
		return s
	}
	m.buildMu.Lock()
	defer m.buildMu.Unlock()
	// another caller may have rebuilt while we waited
	if s := m.current.Load(); s != nil && m.now().Sub(s.builtAt) < m.cfg.TTL {
		return s
	}
	s := m.build()
	m.current.Store(s)
	return s
}

func (m *Matrix) build() *snapshot {
	declared := StaticTables()
	for name, types := range m.cfg.Enabled {
		declared[name] = mergeTypes(declared[name], types)
	}

	rank := make(map[string]int, len(providerOrder))
	for i, name := range providerOrder {
		rank[name] = i
	}
	names := make([]string, 0, len(declared))
	for name := range declared {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, iKnown := rank[names[i]]
		rj, jKnown := rank[names[j]]
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown != jKnown:
			return iKnown
		default:
			return names[i] < names[j]
		}
	})

	platforms := make(map[models.DataType][]string)
	for _, name := range names {
		for _, dt := range declared[name] {
			platforms[dt] = append(platforms[dt], name)
		}
	}

	if m.reqs != nil {
		for id, types := range m.reqs.Requirements() {
			for _, dt := range types {
				if _, ok := platforms[dt]; !ok {
					platforms[dt] = []string{}
					m.log.Warn("data type required but no provider supports it",
						zap.String("directive", string(id)), zap.String("data_type", string(dt)))
				}
			}
		}
	}

	enabled := make(map[string]bool, len(m.cfg.Enabled))
	for name := range m.cfg.Enabled {
		enabled[name] = true
	}

	s := &snapshot{
		platforms: platforms,
		freshness: FreshnessTable(),
		enabled:   enabled,
		builtAt:   m.now(),
	}
	m.log.Debug("capability matrix built", zap.Int("data_types", len(platforms)))
	return s
}

func mergeTypes(a, b []models.DataType) []models.DataType {
	seen := make(map[models.DataType]bool, len(a)+len(b))
	out := make([]models.DataType, 0, len(a)+len(b))
	for _, dt := range append(append([]models.DataType(nil), a...), b...) {
		if !seen[dt] {
			seen[dt] = true
			out = append(out, dt)
		}
	}
	return out
}

// PlatformsFor lists providers that serve dt in preference order.
func (m *Matrix) PlatformsFor(dt models.DataType) []string {
	return append([]string(nil), m.load().platforms[dt]...)
}

func (m *Matrix) PlatformSupports(provider string, dt models.DataType) bool {
	for _, name := range m.load().platforms[dt] {
		if name == provider {
			return true
		}
	}
	return false
}

// FreshnessFor returns the max acceptable age of dt in seconds.
func (m *Matrix) FreshnessFor(dt models.DataType) int {
	if sec, ok := m.load().freshness[dt]; ok {
		return sec
	}
	return DefaultFreshness
}

// IsFresh reports whether data fetched at fetchedAt is still usable at now.
func (m *Matrix) IsFresh(dt models.DataType, fetchedAt, now time.Time) bool {
	if fetchedAt.IsZero() {
		return false
	}
	return now.Sub(fetchedAt) <= time.Duration(m.FreshnessFor(dt))*time.Second
}

// ProviderFor picks the preferred enabled provider for dt.
func (m *Matrix) ProviderFor(dt models.DataType) (string, bool) {
	s := m.load()
	for _, name := range s.platforms[dt] {
		if s.enabled[name] {
			return name, true
		}
	}
	return "", false
}
