package pg

import (
	"context"
	"fmt"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store"
)

const runColumns = `id, start_time, end_time, status, run_type,
	symbols_processed, symbols_failed, api_calls, scores_generated, trade_signals`

func (s *Store) CreateRun(ctx context.Context, r *models.Run) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.CreateRun: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `INSERT INTO scoring_runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, r.StartTime, r.EndTime, string(r.Status), string(r.RunType),
		r.SymbolsProcessed, r.SymbolsFailed, r.APICalls, r.ScoresGenerated, r.TradeSignals)
	return err
}

func (s *Store) UpdateRun(ctx context.Context, r *models.Run) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.UpdateRun: %w", err)
		}
	}()
	tag, err := s.db.Conn().Exec(ctx, `
		UPDATE scoring_runs
		SET end_time = $2, status = $3, symbols_processed = $4, symbols_failed = $5,
		    api_calls = $6, scores_generated = $7, trade_signals = $8
		WHERE id = $1`,
		r.ID, r.EndTime, string(r.Status), r.SymbolsProcessed, r.SymbolsFailed,
		r.APICalls, r.ScoresGenerated, r.TradeSignals)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) GetRun(ctx context.Context, id string) (r *models.Run, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.GetRun: %w", err)
		}
	}()
	r, err = scanRun(s.db.Conn().QueryRow(ctx, `SELECT `+runColumns+` FROM scoring_runs WHERE id = $1`, id))
	return r, notFound(err)
}

func (s *Store) LastRun(ctx context.Context, status models.RunStatus) (r *models.Run, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.LastRun: %w", err)
		}
	}()
	r, err = scanRun(s.db.Conn().QueryRow(ctx, `SELECT `+runColumns+` FROM scoring_runs
		WHERE status = $1 ORDER BY start_time DESC LIMIT 1`, string(status)))
	return r, notFound(err)
}

func scanRun(row scanner) (*models.Run, error) {
	var r models.Run
	var status, rtype string
	err := row.Scan(&r.ID, &r.StartTime, &r.EndTime, &status, &rtype,
		&r.SymbolsProcessed, &r.SymbolsFailed, &r.APICalls, &r.ScoresGenerated, &r.TradeSignals)
	if err != nil {
		return nil, err
	}
	r.Status = models.RunStatus(status)
	r.RunType = models.RunType(rtype)
	return &r, nil
}
