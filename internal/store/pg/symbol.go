package pg

import (
	"context"
	"fmt"
	"time"
)

func (s *Store) AddSymbols(ctx context.Context, symbols ...string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AddSymbols: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO symbols (symbol)
		SELECT unnest($1::text[])
		ON CONFLICT (symbol) DO NOTHING`, symbols)
	return err
}

func (s *Store) MarkAttempted(ctx context.Context, at time.Time, symbols ...string) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.MarkAttempted: %w", err)
		}
	}()
	if len(symbols) == 0 {
		return nil
	}
	_, err = s.db.Conn().Exec(ctx, `
		UPDATE symbols SET last_attempted_at = $1
		WHERE symbol = ANY($2::text[])`, at, symbols)
	return err
}

func (s *Store) SymbolsDue(ctx context.Context, limit int) (out []string, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SymbolsDue: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx, `
		SELECT w.symbol
		FROM symbols w
		LEFT JOIN (
			SELECT symbol, max(created_at) AS last_scored
			FROM score_history GROUP BY symbol
		) h ON h.symbol = w.symbol
		ORDER BY GREATEST(w.last_attempted_at, h.last_scored) ASC NULLS FIRST, w.added_at, w.symbol
		LIMIT NULLIF($1::int, 0)`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, err
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}
