package db

import (
	"context"
	"time"

	"scoring_engine/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

type PoolConfig struct {
	DSN         string
	MaxConns    int32
	ConnectWait time.Duration // how long to keep retrying the first ping
}

type PgTxManager struct {
	poolMaster *pgxpool.Pool
}

func NewPgTxManager(poolMaster *pgxpool.Pool) *PgTxManager {
	return &PgTxManager{
		poolMaster: poolMaster,
	}
}

func (m *PgTxManager) Close() {
	m.poolMaster.Close()
}

// NewPool opens the pool and pings it with exponential backoff until ConnectWait runs out.
func NewPool(ctx context.Context, conf PoolConfig) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(conf.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if conf.MaxConns > 0 {
		pc.MaxConns = conf.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = conf.ConnectWait
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 30 * time.Second
	}
	err = backoff.Retry(func() error {
		pingErr := pool.Ping(ctx)
		if pingErr != nil {
			logger.Info("postgres not ready: %v", pingErr)
		}
		return pingErr
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	return pool, nil
}

func (m *PgTxManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx Transaction) error) error {
	options := pgx.TxOptions{
		IsoLevel: pgx.ReadCommitted,
	}
	return m.inTx(ctx, options, fn)
}

// RunRepeatableRead is used where a consistent read of several tables matters,
// e.g. strategy + children + next version number.
func (m *PgTxManager) RunRepeatableRead(ctx context.Context, fn func(ctxTx context.Context, tx Transaction) error) error {
	options := pgx.TxOptions{
		IsoLevel: pgx.RepeatableRead,
	}
	return m.inTx(ctx, options, fn)
}

func (m *PgTxManager) Conn() Transaction {
	return m.poolMaster
}

func (m *PgTxManager) inTx(
	ctx context.Context,
	options pgx.TxOptions,
	f func(ctxTx context.Context, tx Transaction) error,
) (err error) {
	tx, err := m.poolMaster.BeginTx(ctx, options)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}

	defer func() {
		if p := recover(); p != nil {
			logger.Error("tx panic: %v", p)
			_ = tx.Rollback(ctx)
			panic(p) // fallthrough panic after rollback on caught panic
		} else if err != nil {
			_ = tx.Rollback(ctx) // if error during computations
		} else {
			err = errors.Wrap(tx.Commit(ctx), "commit tx") // all good
		}
	}()

	err = f(ctx, tx)
	if err != nil {
		return errors.Wrap(err, "run fn")
	}

	return nil
}
