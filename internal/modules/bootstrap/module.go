package bootstrap

import (
	"context"

	bootstrap "scoring_engine/internal/modules/bootstrap/service"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/jobs"
	"scoring_engine/internal/store"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newWarmuper(r *jobs.Runner, st store.Store, cfg *config.Config, log *zap.Logger) *bootstrap.Warmuper {
	return bootstrap.NewWarmuper(r, st, log, cfg.Scoring.BatchSize)
}

// Module seeds the watchlist from config on start.
func Module() fx.Option {
	return fx.Module("bootstrap",
		fx.Provide(func(st store.Store, log *zap.Logger) *bootstrap.Watchlist {
			return bootstrap.NewWatchlist(st, log)
		}),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, wl *bootstrap.Watchlist) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					_, err := wl.Seed(ctx, cfg.Symbols)
					return err
				},
			})
		}),
	)
}

// WarmupModule queues the first scoring pass once the app is up.
func WarmupModule() fx.Option {
	return fx.Module("warmup",
		fx.Provide(newWarmuper),
		fx.Invoke(func(lc fx.Lifecycle, log *zap.Logger, wu *bootstrap.Warmuper) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go func() {
						if _, err := wu.Warmup(context.Background()); err != nil {
							log.Error("warmup failed", zap.Error(err))
						}
					}()
					return nil
				},
			})
		}),
	)
}
