package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
)

// Module registers the collectors on a dedicated registry that /metrics serves.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(
			prometheus.NewRegistry,
			func(reg *prometheus.Registry) *Metrics { return New(reg) },
		),
	)
}
