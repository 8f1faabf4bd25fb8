package postgres

import (
	"context"
	"fmt"

	"scoring_engine/internal/modules/config"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/memory"
	"scoring_engine/internal/store/pg"
	"scoring_engine/pkg/db"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewStore opens the relational store selected by cfg.Store.
func NewStore(ctx context.Context, lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if cfg.Store != "postgres" {
		log.Info("using in-memory relational store")
		return memory.New(), nil
	}

	poolMaster, err := db.NewPool(ctx, db.PoolConfig{
		DSN:      cfg.DB,
		MaxConns: cfg.DBMaxConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create poolMaster: %w", err)
	}

	tx := db.NewPgTxManager(poolMaster)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			tx.Close()
			return nil
		},
	})
	return pg.New(tx), nil
}

func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(NewStore),
	)
}
