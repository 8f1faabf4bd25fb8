package jobs

import (
	"context"

	"scoring_engine/internal/metrics"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/options"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewRunner(log *zap.Logger, cfg *config.Config, st store.Store, opts options.Store, orch *scoring.Orchestrator, m *metrics.Metrics) *Runner {
	return New(log, Config{
		Policy: RetryPolicy{
			MaxRetries: cfg.Jobs.MaxRetries,
			BaseDelay:  cfg.Jobs.BaseDelay,
			MaxDelay:   cfg.Jobs.MaxDelay,
		},
		SuccessRatio: cfg.Jobs.SuccessRatio,
	}, st, opts, orch, m)
}

func startScheduler(lc fx.Lifecycle, cfg *config.Config, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			if err := s.Register(ctx, cfg.Jobs.ScheduleSpec, cfg.Jobs.DrainSpec); err != nil {
				cancel()
				return err
			}
			s.Start()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			s.Stop()
			return nil
		},
	})
}

func Module() fx.Option {
	return fx.Module("jobs",
		fx.Provide(
			NewRunner,
			NewScheduler,
		),
		fx.Invoke(startScheduler),
	)
}
