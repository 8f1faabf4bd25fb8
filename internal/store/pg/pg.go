// Package pg implements store.Store on PostgreSQL through pkg/db.
package pg

import (
	"context"
	"errors"
	"fmt"

	"scoring_engine/internal/store"
	"scoring_engine/pkg/db"

	"github.com/jackc/pgx/v5"
)

type Store struct {
	db db.TxManager
}

var _ store.Store = (*Store)(nil)

func New(tx db.TxManager) *Store {
	return &Store{db: tx}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Migrate: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, Schema)
	return err
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}
