package service

import (
	"context"
	"errors"
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/directive"
)

// DefaultPassScore is the composite score an evaluation needs to count as a success.
const DefaultPassScore = 60

type Evaluation struct {
	Symbol  string
	Score   float64
	Success bool
	Result  directive.CompositeResult
}

// Evaluate scores every symbol with the strategy's own weights and config
// overrides and records one test result per symbol under runID.
func (s *Service) Evaluate(ctx context.Context, id int64, runID string, data []*models.SymbolData, passScore float64) (out []Evaluation, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("strategy.Evaluate: %w", err)
		}
	}()

	st, err := s.store.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Archived {
		return nil, ErrArchived
	}
	if passScore <= 0 {
		passScore = DefaultPassScore
	}

	w := directive.Weighting{
		Weights:   st.Weights(),
		Overrides: make(map[models.DirectiveID]map[string]float64, len(st.Directives)),
	}
	for _, d := range st.Directives {
		if len(d.Config) > 0 {
			w.Overrides[d.DirectiveID] = d.Config
		}
	}

	out = make([]Evaluation, 0, len(data))
	for _, sd := range data {
		res := s.registry.Composite(sd, w, 0)
		ev := Evaluation{
			Symbol:  sd.Symbol,
			Score:   res.Score,
			Success: !res.UsedFallback && res.Score >= passScore,
			Result:  res,
		}
		if err := s.RecordTestResult(ctx, models.StrategyTestResult{
			StrategyID: id,
			RunID:      runID,
			Symbol:     sd.Symbol,
			Score:      res.Score,
			Success:    ev.Success,
		}); err != nil {
			return out, err
		}
		out = append(out, ev)
	}
	return out, nil
}

// EvaluateActive evaluates every non-archived strategy over data under runID and
// returns the number of test results recorded. One failing strategy does not
// stop the others.
func (s *Service) EvaluateActive(ctx context.Context, runID string, data []*models.SymbolData) (n int, err error) {
	list, err := s.store.ListStrategies(ctx, models.StrategyFilter{})
	if err != nil {
		return 0, fmt.Errorf("strategy.EvaluateActive: %w", err)
	}

	var errs []error
	for _, st := range list {
		out, err := s.Evaluate(ctx, st.ID, runID, data, DefaultPassScore)
		n += len(out)
		if err != nil {
			errs = append(errs, fmt.Errorf("strategy %d: %w", st.ID, err))
		}
	}
	return n, errors.Join(errs...)
}
