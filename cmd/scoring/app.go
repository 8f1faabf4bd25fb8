package main

import (
	"context"

	"scoring_engine/internal/metrics"
	"scoring_engine/internal/modules/bootstrap"
	"scoring_engine/internal/modules/capability"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/options"
	"scoring_engine/internal/modules/postgres"
	"scoring_engine/internal/modules/provider"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/modules/strategy"
	"scoring_engine/internal/store"
	"scoring_engine/pkg/logger"
	"scoring_engine/pkg/tracing"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const serviceName = "scoring_engine"

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger.SetServiceName(serviceName)
	return logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
	})
}

func initTracing(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) error {
	tracing.SetServiceName(serviceName)
	_, closer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return errors.Wrap(err, "init tracer")
	}
	if cfg.Tracing.Enabled {
		log.Info("jaeger tracing enabled", zap.String("host", cfg.Tracing.Host), zap.Int("port", cfg.Tracing.Port))
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closer()
			return nil
		},
	})
	return nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

// migrateStore creates the schema when the selected store needs one.
func migrateStore(lc fx.Lifecycle, st store.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			m, ok := st.(migrator)
			if !ok {
				return nil
			}
			return errors.Wrap(m.Migrate(ctx), "migrate")
		},
	})
}

// core is everything a scoring run needs; serve adds jobs, notify and http on top.
func core(configPath string) fx.Option {
	return fx.Options(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newLogger,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		config.Module(configPath),
		metrics.Module(),
		postgres.Module(),
		options.Module(),
		provider.Module(),
		directive.Module(),
		capability.Module(),
		scoring.Module(),
		strategy.Module(),
		fx.Invoke(initTracing, migrateStore),
		bootstrap.Module(),
	)
}
