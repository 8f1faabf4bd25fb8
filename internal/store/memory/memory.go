// Package memory is an in-process store used by tests and single-node runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store"
)

type Store struct {
	mu sync.RWMutex

	strategies   map[int64]*models.Strategy
	versions     map[int64][]models.StrategyVersion
	testResults  map[int64][]models.StrategyTestResult
	nextStrategy int64
	nextVersion  int64

	runs map[string]*models.Run

	scores    map[string][]models.Score
	nextScore int64
	symbols   []string
	attempted map[string]time.Time

	queue []*models.QueueItem
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		strategies:  make(map[int64]*models.Strategy),
		versions:    make(map[int64][]models.StrategyVersion),
		testResults: make(map[int64][]models.StrategyTestResult),
		runs:        make(map[string]*models.Run),
		scores:      make(map[string][]models.Score),
		attempted:   make(map[string]time.Time),
	}
}

func (s *Store) SaveStrategy(_ context.Context, st *models.Strategy, change models.ChangeType) (*models.StrategyVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if st.ID == 0 {
		s.nextStrategy++
		st.ID = s.nextStrategy
		st.CreatedAt = now
	} else if _, ok := s.strategies[st.ID]; !ok {
		return nil, store.ErrNotFound
	}
	st.Version = len(s.versions[st.ID]) + 1
	st.UpdatedAt = now

	cp := cloneStrategy(st)
	s.strategies[st.ID] = &cp

	s.nextVersion++
	v := models.StrategyVersion{
		ID:         s.nextVersion,
		StrategyID: st.ID,
		Number:     st.Version,
		ChangeType: change,
		Snapshot:   cloneStrategy(st),
		CreatedAt:  now,
	}
	s.versions[st.ID] = append(s.versions[st.ID], v)
	return &v, nil
}

func (s *Store) GetStrategy(_ context.Context, id int64) (*models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.strategies[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := cloneStrategy(st)
	return &cp, nil
}

func (s *Store) ListStrategies(_ context.Context, f models.StrategyFilter) ([]models.Strategy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		if st.Archived && !f.IncludeArchived {
			continue
		}
		if f.CreatedBy != "" && st.CreatedBy != f.CreatedBy {
			continue
		}
		if f.Category != "" && st.Category != f.Category {
			continue
		}
		if f.PublicOnly && !st.Public {
			continue
		}
		out = append(out, cloneStrategy(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListVersions(_ context.Context, strategyID int64) ([]models.StrategyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.strategies[strategyID]; !ok {
		return nil, store.ErrNotFound
	}
	return append([]models.StrategyVersion(nil), s.versions[strategyID]...), nil
}

func (s *Store) GetVersion(_ context.Context, strategyID int64, number int) (*models.StrategyVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs := s.versions[strategyID]
	if number < 1 || number > len(vs) {
		return nil, store.ErrNotFound
	}
	v := vs[number-1]
	return &v, nil
}

func (s *Store) AppendTestResult(_ context.Context, r models.StrategyTestResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.strategies[r.StrategyID]; !ok {
		return store.ErrNotFound
	}
	s.testResults[r.StrategyID] = append(s.testResults[r.StrategyID], r)
	return nil
}

func (s *Store) RecentTestResults(_ context.Context, strategyID int64, limit int) ([]models.StrategyTestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.testResults[strategyID]
	out := make([]models.StrategyTestResult, 0, limit)
	for i := len(all) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *Store) CreateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *Store) UpdateRun(_ context.Context, r *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *r
	s.runs[r.ID] = &cp
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) LastRun(_ context.Context, status models.RunStatus) (*models.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var last *models.Run
	for _, r := range s.runs {
		if r.Status != status {
			continue
		}
		if last == nil || r.StartTime.After(last.StartTime) {
			last = r
		}
	}
	if last == nil {
		return nil, store.ErrNotFound
	}
	cp := *last
	return &cp, nil
}

func (s *Store) AppendScore(_ context.Context, sc *models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextScore++
	sc.ID = s.nextScore
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	s.scores[sc.Symbol] = append(s.scores[sc.Symbol], *sc)
	return nil
}

func (s *Store) LatestScore(_ context.Context, symbol string) (*models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.scores[symbol]
	if len(h) == 0 {
		return nil, store.ErrNotFound
	}
	sc := h[len(h)-1]
	return &sc, nil
}

func (s *Store) LatestScores(_ context.Context) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Score, 0, len(s.scores))
	for _, h := range s.scores {
		if len(h) > 0 {
			out = append(out, h[len(h)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (s *Store) History(_ context.Context, symbol string, limit int) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h := s.scores[symbol]
	out := make([]models.Score, 0, len(h))
	for i := len(h) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, h[i])
	}
	return out, nil
}

func (s *Store) AddSymbols(_ context.Context, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.symbols))
	for _, sym := range s.symbols {
		seen[sym] = true
	}
	for _, sym := range symbols {
		if sym != "" && !seen[sym] {
			seen[sym] = true
			s.symbols = append(s.symbols, sym)
		}
	}
	return nil
}

func (s *Store) MarkAttempted(_ context.Context, at time.Time, symbols ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sym := range symbols {
		s.attempted[sym] = at
	}
	return nil
}

func (s *Store) SymbolsDue(_ context.Context, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type due struct {
		symbol string
		last   time.Time
		order  int
	}
	list := make([]due, 0, len(s.symbols))
	for i, sym := range s.symbols {
		d := due{symbol: sym, order: i, last: s.attempted[sym]}
		if h := s.scores[sym]; len(h) > 0 && h[len(h)-1].CreatedAt.After(d.last) {
			d.last = h[len(h)-1].CreatedAt
		}
		list = append(list, d)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].last.Equal(list[j].last) {
			return list[i].last.Before(list[j].last)
		}
		return list[i].order < list[j].order
	})
	out := make([]string, 0, limit)
	for _, d := range list {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, d.symbol)
	}
	return out, nil
}

func (s *Store) Enqueue(_ context.Context, item *models.QueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}
	cp := *item
	s.queue = append(s.queue, &cp)
	return nil
}

func (s *Store) Dequeue(_ context.Context, now time.Time) (*models.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.queue {
		if item.NotBefore.After(now) {
			continue
		}
		s.queue = append(s.queue[:i], s.queue[i+1:]...)
		return item, nil
	}
	return nil, nil
}

func (s *Store) QueueLen(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.queue), nil
}

func cloneStrategy(st *models.Strategy) models.Strategy {
	cp := *st
	cp.Directives = make([]models.StrategyDirective, len(st.Directives))
	for i, d := range st.Directives {
		if d.Config != nil {
			cfg := make(map[string]float64, len(d.Config))
			for k, v := range d.Config {
				cfg[k] = v
			}
			d.Config = cfg
		}
		cp.Directives[i] = d
	}
	return cp
}
