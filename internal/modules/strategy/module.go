package strategy

import (
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/modules/strategy/service"
	"scoring_engine/internal/store"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewService(log *zap.Logger, st store.Store, registry *directive.Registry) *service.Service {
	return service.New(log, st, registry)
}

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			NewService,
			// *service.Service -> scoring.StrategyEvaluator
			func(s *service.Service) scoring.StrategyEvaluator { return s },
		),
	)
}
