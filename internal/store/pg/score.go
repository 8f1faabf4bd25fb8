package pg

import (
	"context"
	"fmt"
	"time"

	"scoring_engine/internal/models"

	"github.com/bytedance/sonic"
)

const scoreColumns = `id, symbol, value, previous_value, has_previous, algorithm, components, run_id, created_at`

func (s *Store) AppendScore(ctx context.Context, sc *models.Score) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AppendScore: %w", err)
		}
	}()
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = time.Now().UTC()
	}
	components, err := sonic.Marshal(sc.Components)
	if err != nil {
		return err
	}
	return s.db.Conn().QueryRow(ctx, `
		INSERT INTO score_history (symbol, value, previous_value, has_previous, algorithm, components, run_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		sc.Symbol, sc.Value, sc.PreviousValue, sc.HasPrevious, string(sc.Algorithm), components, sc.RunID, sc.CreatedAt).
		Scan(&sc.ID)
}

func (s *Store) LatestScore(ctx context.Context, symbol string) (sc *models.Score, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.LatestScore: %w", err)
		}
	}()
	sc, err = scanScore(s.db.Conn().QueryRow(ctx, `SELECT `+scoreColumns+` FROM score_history
		WHERE symbol = $1 ORDER BY id DESC LIMIT 1`, symbol))
	return sc, notFound(err)
}

func (s *Store) LatestScores(ctx context.Context) (out []models.Score, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.LatestScores: %w", err)
		}
	}()
	return s.queryScores(ctx, `SELECT DISTINCT ON (symbol) `+scoreColumns+` FROM score_history
		ORDER BY symbol, id DESC`)
}

func (s *Store) History(ctx context.Context, symbol string, limit int) (out []models.Score, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.History: %w", err)
		}
	}()
	return s.queryScores(ctx, `SELECT `+scoreColumns+` FROM score_history
		WHERE symbol = $1 ORDER BY id DESC LIMIT $2`, symbol, limit)
}

func (s *Store) queryScores(ctx context.Context, q string, args ...any) ([]models.Score, error) {
	rows, err := s.db.Conn().Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Score
	for rows.Next() {
		sc, err := scanScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sc)
	}
	return out, rows.Err()
}

func scanScore(row scanner) (*models.Score, error) {
	var (
		sc   models.Score
		algo string
		raw  []byte
	)
	err := row.Scan(&sc.ID, &sc.Symbol, &sc.Value, &sc.PreviousValue, &sc.HasPrevious, &algo, &raw, &sc.RunID, &sc.CreatedAt)
	if err != nil {
		return nil, err
	}
	sc.Algorithm = models.Algorithm(algo)
	if err := sonic.Unmarshal(raw, &sc.Components); err != nil {
		return nil, err
	}
	return &sc, nil
}
