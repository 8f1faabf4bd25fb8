package directive

import (
	"context"

	"scoring_engine/internal/store/options"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewBuiltinRegistry(log *zap.Logger, opts options.Store) (*Registry, error) {
	return NewRegistry(log, opts, BuiltinScorers()...)
}

func loadOnStart(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return r.Reload(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("directive",
		fx.Provide(NewBuiltinRegistry),
		fx.Invoke(loadOnStart),
	)
}
