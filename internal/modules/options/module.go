package options

import (
	"context"

	"scoring_engine/internal/modules/config"
	optstore "scoring_engine/internal/store/options"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore connects to Redis when a URL is configured and falls back to memory otherwise.
func NewStore(ctx context.Context, lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) optstore.Store {
	if cfg.Redis.URL == "" {
		return optstore.NewMemory()
	}
	r, err := optstore.NewRedis(ctx, optstore.RedisConfig{URL: cfg.Redis.URL, Prefix: cfg.Redis.Prefix})
	if err != nil {
		log.Warn("redis unavailable, using in-memory option store", zap.Error(err))
		return optstore.NewMemory()
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return r.Close() },
	})
	return r
}

func Module() fx.Option {
	return fx.Module("options",
		fx.Provide(NewStore),
	)
}
