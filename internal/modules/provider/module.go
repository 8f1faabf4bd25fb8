package provider

import (
	"scoring_engine/internal/modules/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewProviderSet registers the configured providers behind the guard.
// Only the simulated provider ships with the engine; real clients register the same way.
func NewProviderSet(cfg *config.Config, log *zap.Logger) *Set {
	guard := GuardConfig{
		RatePerSecond:   cfg.Provider.RatePerSecond,
		Burst:           cfg.Provider.Burst,
		BreakerFailures: cfg.Provider.BreakerFailures,
		BreakerTimeout:  cfg.Provider.BreakerTimeout,
	}
	var providers []DataProvider
	switch cfg.Provider.Name {
	case SimulatedName, "":
		if cfg.Scoring.Mode != "simulation" {
			log.Warn("simulated provider configured in live mode; its data will be rejected")
		}
		providers = append(providers, NewGuarded(NewSimulated(), guard))
	default:
		log.Error("unknown data provider", zap.String("provider", cfg.Provider.Name))
	}
	return NewSet(providers...)
}

func Module() fx.Option {
	return fx.Module("provider",
		fx.Provide(NewProviderSet),
	)
}
