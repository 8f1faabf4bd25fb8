package capability

import (
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/provider"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewMatrix(log *zap.Logger, cfg *config.Config, providers *provider.Set, registry *directive.Registry) *Matrix {
	return New(log, Config{
		TTL:     cfg.Capability.TTL,
		Enabled: providers.Declarations(),
	}, registry)
}

func Module() fx.Option {
	return fx.Module("capability",
		fx.Provide(NewMatrix),
	)
}
