package service

import (
	"context"
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/store"

	"go.uber.org/zap"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, action models.Action, payload models.Payload) (*models.QueueItem, error)
}

// Warmuper queues one scoring pass over the whole watchlist at boot so a fresh
// deployment does not wait for the first cron tick.
type Warmuper struct {
	jobs      Enqueuer
	repo      store.SymbolRepository
	log       *zap.Logger
	batchSize int
}

func NewWarmuper(jobs Enqueuer, repo store.SymbolRepository, log *zap.Logger, batchSize int) *Warmuper {
	if batchSize <= 0 || batchSize > scoring.MaxBatchSize {
		batchSize = scoring.MaxBatchSize
	}
	return &Warmuper{jobs: jobs, repo: repo, log: log.Named("warmup"), batchSize: batchSize}
}

// Warmup enqueues calculate_scores items covering every due symbol in batch-sized
// chunks, followed by one update_rankings. It returns the number of items queued.
func (w *Warmuper) Warmup(ctx context.Context) (queued int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("warmup.Warmup: %w", err)
		}
	}()

	symbols, err := w.repo.SymbolsDue(ctx, 0)
	if err != nil {
		return 0, err
	}
	if len(symbols) == 0 {
		w.log.Info("watchlist empty, nothing to warm up")
		return 0, nil
	}

	for start := 0; start < len(symbols); start += w.batchSize {
		end := min(start+w.batchSize, len(symbols))
		payload := models.Payload{Symbols: symbols[start:end], RunType: models.RunScheduled}
		if _, err := w.jobs.Enqueue(ctx, models.ActionCalculateScores, payload); err != nil {
			return queued, err
		}
		queued++
	}
	if _, err := w.jobs.Enqueue(ctx, models.ActionUpdateRankings, models.Payload{}); err != nil {
		return queued, err
	}
	queued++

	w.log.Info("warmup queued", zap.Int("symbols", len(symbols)), zap.Int("items", queued))
	return queued, nil
}
