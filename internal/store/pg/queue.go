package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/pkg/db"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"
)

func (s *Store) Enqueue(ctx context.Context, item *models.QueueItem) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Enqueue: %w", err)
		}
	}()
	payload, err := sonic.Marshal(item.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO job_queue (id, action, payload, retry_count, not_before, enqueued_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		item.ID, string(item.Action), payload, item.RetryCount, item.NotBefore, item.EnqueuedAt)
	return err
}

// Dequeue claims one due row with SKIP LOCKED so several runners can share the table.
func (s *Store) Dequeue(ctx context.Context, now time.Time) (item *models.QueueItem, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.Dequeue: %w", err)
		}
	}()

	err = s.db.RunMaster(ctx, func(ctx context.Context, tx db.Transaction) error {
		var (
			it      models.QueueItem
			action  string
			payload []byte
		)
		err := tx.QueryRow(ctx, `
			DELETE FROM job_queue
			WHERE seq = (
				SELECT seq FROM job_queue
				WHERE not_before <= $1
				ORDER BY seq
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, action, payload, retry_count, not_before, enqueued_at`, now).
			Scan(&it.ID, &action, &payload, &it.RetryCount, &it.NotBefore, &it.EnqueuedAt)
		if err != nil {
			return err
		}
		it.Action = models.Action(action)
		if err := sonic.Unmarshal(payload, &it.Payload); err != nil {
			return err
		}
		item = &it
		return nil
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return item, err
}

func (s *Store) QueueLen(ctx context.Context) (n int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.QueueLen: %w", err)
		}
	}()
	err = s.db.Conn().QueryRow(ctx, `SELECT count(*) FROM job_queue`).Scan(&n)
	return n, err
}
