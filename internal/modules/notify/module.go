package notify

import (
	"context"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/notify"
	"scoring_engine/internal/store/options"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewFanout builds the sink list from config: log and websocket always,
// telegram and kafka when configured.
func NewFanout(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, hub *notify.Hub, opts options.Store) *notify.Fanout {
	sinks := []notify.Sink{notify.NewLog(log), hub}

	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, log)
		if err != nil {
			log.Error("telegram disabled", zap.Error(err))
		} else {
			tg.SetRankings(func(ctx context.Context) ([]models.Ranking, error) {
				return options.GetOrDefault(ctx, opts, options.KeyRankings, []models.Ranking(nil))
			})
			sinks = append(sinks, tg)
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					tg.Start(context.Background())
					return nil
				},
				OnStop: func(context.Context) error {
					tg.Stop()
					return nil
				},
			})
		}
	}

	if len(cfg.Kafka.Brokers) > 0 {
		k := notify.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		sinks = append(sinks, k)
		lc.Append(fx.Hook{
			OnStop: func(context.Context) error { return k.Close() },
		})
	}

	f := notify.NewFanout(log, sinks...)
	log.Info("signal sinks", zap.Strings("sinks", f.Sinks()))
	return f
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(
			notify.NewHub,
			NewFanout,
			// *notify.Fanout -> scoring.SignalPublisher
			func(f *notify.Fanout) scoring.SignalPublisher {
				return f
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, hub *notify.Hub) {
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					hub.Close()
					return nil
				},
			})
		}),
	)
}
