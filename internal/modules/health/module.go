package health

import (
	"context"
	"net"
	"net/http"
	"time"

	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/modules/health/service"
	"scoring_engine/internal/modules/jobs"
	"scoring_engine/internal/notify"

	"github.com/bytedance/sonic"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Reporter is the health source behind /healthz.
type Reporter interface {
	Health(ctx context.Context) (jobs.Report, error)
	Counters(ctx context.Context) (map[string]int64, error)
}

type Config struct {
	Addr string
	// MinScore is the health score below which /readyz fails.
	MinScore int
}

func NewConfig(cfg *config.Config) Config {
	return Config{Addr: cfg.Addr(), MinScore: 1}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func NewMux(cfg Config, state *service.State, rep Reporter, reg *prometheus.Registry, hub *notify.Hub) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		h, err := rep.Health(r.Context())
		if err != nil || h.Score < cfg.MinScore {
			http.Error(w, "unhealthy", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h, err := rep.Health(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		counters, err := rep.Counters(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ready":          state.Ready(),
			"uptime_sec":     int64(state.Uptime().Seconds()),
			"health_score":   h.Score,
			"error_states":   h.States,
			"last_success":   h.LastSuccess,
			"queue_depth":    h.QueueDepth,
			"counters":       counters,
			"ws_subscribers": hub.Clients(),
		})
	})

	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.Handle("/ws/signals", hub)

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, state *service.State, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			state.SetReady(true)
			log.Info("http listening", zap.String("addr", cfg.Addr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			NewMux,
			func(r *jobs.Runner) Reporter { return r },
		),
		fx.Invoke(RunHTTP),
	)
}
