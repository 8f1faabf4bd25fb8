package scoring

import (
	"context"
	"fmt"
	"sort"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store/options"
)

// GenerateSignals publishes a signal for every latest score above the
// threshold and returns how many were raised.
func (o *Orchestrator) GenerateSignals(ctx context.Context) (n int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("scoring.GenerateSignals: %w", err)
		}
	}()

	latest, err := o.store.LatestScores(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	for _, sc := range latest {
		if sc.Value <= o.cfg.Threshold {
			continue
		}
		o.publish(ctx, o.signalFor(sc, "latest score above threshold"))
		n++
	}
	return n, nil
}

// Rankings orders the latest scores by value, highest first; ties by symbol.
func Rankings(latest []models.Score) []models.Ranking {
	sorted := append([]models.Score(nil), latest...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Value != sorted[j].Value {
			return sorted[i].Value > sorted[j].Value
		}
		return sorted[i].Symbol < sorted[j].Symbol
	})
	out := make([]models.Ranking, len(sorted))
	for i, sc := range sorted {
		out[i] = models.Ranking{Rank: i + 1, Symbol: sc.Symbol, Value: sc.Value}
	}
	return out
}

// UpdateRankings stores the current leaderboard under the rankings option key.
func (o *Orchestrator) UpdateRankings(ctx context.Context) (ranks []models.Ranking, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("scoring.UpdateRankings: %w", err)
		}
	}()

	latest, err := o.store.LatestScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	ranks = Rankings(latest)
	if err := o.opts.Set(ctx, options.KeyRankings, ranks); err != nil {
		return nil, err
	}
	return ranks, nil
}
