package scoring

import (
	"scoring_engine/internal/metrics"
	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/capability"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/provider"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/options"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Cfg       *config.Config
	Store     store.Store
	Opts      options.Store
	Providers *provider.Set
	Matrix    *capability.Matrix
	Registry  *directive.Registry
	Signals   SignalPublisher
	Metrics   *metrics.Metrics

	Strategies StrategyEvaluator `optional:"true"`
}

func NewOrchestrator(p Params) *Orchestrator {
	o := New(p.Log, Config{
		Algorithm:   models.Algorithm(p.Cfg.Scoring.Algorithm),
		Mode:        models.DataMode(p.Cfg.Scoring.Mode),
		Threshold:   p.Cfg.Scoring.Threshold,
		BatchSize:   p.Cfg.Scoring.BatchSize,
		MinHistory:  p.Cfg.Scoring.MinHistory,
		HistoryBars: p.Cfg.Provider.HistoryBars,
	}, p.Store, p.Opts, p.Providers, p.Matrix, p.Registry, p.Signals, p.Metrics)
	if p.Strategies != nil {
		o.SetStrategies(p.Strategies)
	}
	return o
}

func Module() fx.Option {
	return fx.Module("scoring",
		fx.Provide(NewOrchestrator),
	)
}
