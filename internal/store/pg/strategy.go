package pg

import (
	"context"
	"fmt"
	"strings"

	"scoring_engine/internal/models"
	"scoring_engine/internal/store"
	"scoring_engine/pkg/db"

	"github.com/bytedance/sonic"
)

func (s *Store) SaveStrategy(ctx context.Context, st *models.Strategy, change models.ChangeType) (v *models.StrategyVersion, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.SaveStrategy: %w", err)
		}
	}()

	err = s.db.RunRepeatableRead(ctx, func(ctx context.Context, tx db.Transaction) error {
		if st.ID == 0 {
			row := tx.QueryRow(ctx, `
				INSERT INTO strategies (name, description, category, created_by, is_public, archived, version)
				VALUES ($1, $2, $3, $4, $5, $6, 1)
				RETURNING id, version, created_at, updated_at`,
				st.Name, st.Description, st.Category, st.CreatedBy, st.Public, st.Archived)
			if err := row.Scan(&st.ID, &st.Version, &st.CreatedAt, &st.UpdatedAt); err != nil {
				return err
			}
		} else {
			row := tx.QueryRow(ctx, `
				UPDATE strategies
				SET name = $2, description = $3, category = $4, is_public = $5, archived = $6,
				    version = version + 1, updated_at = now()
				WHERE id = $1
				RETURNING version, created_at, updated_at`,
				st.ID, st.Name, st.Description, st.Category, st.Public, st.Archived)
			if err := row.Scan(&st.Version, &st.CreatedAt, &st.UpdatedAt); err != nil {
				return notFound(err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM strategy_directives WHERE strategy_id = $1`, st.ID); err != nil {
				return err
			}
		}

		for _, d := range st.Directives {
			cfg, err := sonic.Marshal(d.Config)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO strategy_directives (strategy_id, directive_id, weight, config, sort_order, active)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				st.ID, string(d.DirectiveID), d.Weight, cfg, d.SortOrder, d.Active); err != nil {
				return err
			}
		}

		snapshot, err := sonic.Marshal(st)
		if err != nil {
			return err
		}
		v = &models.StrategyVersion{StrategyID: st.ID, Number: st.Version, ChangeType: change, Snapshot: *st}
		return tx.QueryRow(ctx, `
			INSERT INTO strategy_versions (strategy_id, version, change_type, snapshot)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at`,
			st.ID, st.Version, string(change), snapshot).Scan(&v.ID, &v.CreatedAt)
	})
	return v, err
}

func (s *Store) GetStrategy(ctx context.Context, id int64) (st *models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.GetStrategy: %w", err)
		}
	}()

	st = &models.Strategy{}
	err = s.db.Conn().QueryRow(ctx, `
		SELECT id, name, description, category, created_by, is_public, archived, version, created_at, updated_at
		FROM strategies WHERE id = $1`, id).
		Scan(&st.ID, &st.Name, &st.Description, &st.Category, &st.CreatedBy, &st.Public, &st.Archived,
			&st.Version, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	if st.Directives, err = s.directives(ctx, id); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) directives(ctx context.Context, strategyID int64) ([]models.StrategyDirective, error) {
	rows, err := s.db.Conn().Query(ctx, `
		SELECT directive_id, weight, config, sort_order, active
		FROM strategy_directives WHERE strategy_id = $1
		ORDER BY sort_order, directive_id`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StrategyDirective
	for rows.Next() {
		var (
			d   models.StrategyDirective
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &d.Weight, &raw, &d.SortOrder, &d.Active); err != nil {
			return nil, err
		}
		d.DirectiveID = models.DirectiveID(id)
		if len(raw) > 0 {
			if err := sonic.Unmarshal(raw, &d.Config); err != nil {
				return nil, err
			}
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) ListStrategies(ctx context.Context, f models.StrategyFilter) (out []models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListStrategies: %w", err)
		}
	}()

	var (
		where []string
		args  []any
	)
	if !f.IncludeArchived {
		where = append(where, "NOT archived")
	}
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		where = append(where, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("category = $%d", len(args)))
	}
	if f.PublicOnly {
		where = append(where, "is_public")
	}
	q := `SELECT id FROM strategies`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id"

	rows, err := s.db.Conn().Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range ids {
		st, err := s.GetStrategy(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

func (s *Store) ListVersions(ctx context.Context, strategyID int64) (out []models.StrategyVersion, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.ListVersions: %w", err)
		}
	}()

	rows, err := s.db.Conn().Query(ctx, `
		SELECT id, strategy_id, version, change_type, snapshot, created_at
		FROM strategy_versions WHERE strategy_id = $1 ORDER BY version`, strategyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	return out, nil
}

func (s *Store) GetVersion(ctx context.Context, strategyID int64, number int) (v *models.StrategyVersion, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.GetVersion: %w", err)
		}
	}()

	row := s.db.Conn().QueryRow(ctx, `
		SELECT id, strategy_id, version, change_type, snapshot, created_at
		FROM strategy_versions WHERE strategy_id = $1 AND version = $2`, strategyID, number)
	v, err = scanVersion(row)
	return v, notFound(err)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(row scanner) (*models.StrategyVersion, error) {
	var (
		v      models.StrategyVersion
		change string
		raw    []byte
	)
	if err := row.Scan(&v.ID, &v.StrategyID, &v.Number, &change, &raw, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.ChangeType = models.ChangeType(change)
	if err := sonic.Unmarshal(raw, &v.Snapshot); err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *Store) AppendTestResult(ctx context.Context, r models.StrategyTestResult) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.AppendTestResult: %w", err)
		}
	}()
	_, err = s.db.Conn().Exec(ctx, `
		INSERT INTO strategy_test_results (strategy_id, run_id, symbol, score, success, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.StrategyID, r.RunID, r.Symbol, r.Score, r.Success, r.CreatedAt)
	return err
}

func (s *Store) RecentTestResults(ctx context.Context, strategyID int64, limit int) (out []models.StrategyTestResult, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("pg.RecentTestResults: %w", err)
		}
	}()
	rows, err := s.db.Conn().Query(ctx, `
		SELECT strategy_id, run_id, symbol, score, success, created_at
		FROM strategy_test_results WHERE strategy_id = $1
		ORDER BY id DESC LIMIT $2`, strategyID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.StrategyTestResult
		if err := rows.Scan(&r.StrategyID, &r.RunID, &r.Symbol, &r.Score, &r.Success, &r.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
