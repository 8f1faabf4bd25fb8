// Package service manages user strategies: versioned bundles of weighted
// directives with config overrides and rolling test statistics.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/store"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// StatsWindow is how many recent test results Stats aggregates.
const StatsWindow = 100

var (
	ErrInvalid  = errors.New("strategy: invalid input")
	ErrArchived = errors.New("strategy: archived")
)

type DirectiveInput struct {
	ID     models.DirectiveID `json:"directive_id" validate:"required"`
	Weight float64            `json:"weight"`
	Config map[string]float64 `json:"config,omitempty"`
	// Inactive directives are kept but do not score.
	Inactive bool `json:"inactive,omitempty"`
}

type Input struct {
	Name        string           `json:"name" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=1000"`
	Category    string           `json:"category" validate:"omitempty,max=50"`
	CreatedBy   string           `json:"created_by" validate:"required,max=100"`
	Public      bool             `json:"public"`
	Directives  []DirectiveInput `json:"directives" validate:"required,min=1,unique=ID,dive"`
}

type Service struct {
	log      *zap.Logger
	store    store.StrategyRepository
	registry *directive.Registry
	validate *validator.Validate
	now      func() time.Time
}

func New(log *zap.Logger, st store.StrategyRepository, registry *directive.Registry) *Service {
	return &Service{
		log:      log.With(zap.String("component", "strategy")),
		store:    st,
		registry: registry,
		validate: validator.New(),
		now:      time.Now,
	}
}

// check validates the input and returns the normalized directive rows.
// Weights and config values are clamped, never rejected.
func (s *Service) check(in Input) ([]models.StrategyDirective, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, len(verrs))
			for i, fe := range verrs {
				fields[i] = fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag())
			}
			return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(fields, ", "))
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	ids := make([]models.DirectiveID, len(in.Directives))
	for i, d := range in.Directives {
		ids[i] = d.ID
	}
	if err := s.registry.Validate(ids...); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	out := make([]models.StrategyDirective, len(in.Directives))
	for i, d := range in.Directives {
		row := models.StrategyDirective{
			DirectiveID: d.ID,
			Weight:      models.ClampWeight(d.Weight),
			SortOrder:   i,
			Active:      !d.Inactive,
		}
		if len(d.Config) > 0 {
			row.Config = s.clampConfig(d.ID, d.Config)
		}
		out[i] = row
	}
	return out, nil
}

// clampConfig keeps only parameters the directive knows and clamps them.
func (s *Service) clampConfig(id models.DirectiveID, values map[string]float64) map[string]float64 {
	cfg := s.registry.Config(id, nil)
	out := make(map[string]float64, len(values))
	for name, v := range values {
		if clamped, ok := cfg.ValidateField(name, v); ok {
			out[name] = clamped
		} else {
			s.log.Debug("dropping unknown parameter", zap.String("directive", string(id)), zap.String("param", name))
		}
	}
	return out
}

func (s *Service) Create(ctx context.Context, in Input) (st *models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("strategy.Create: %w", err)
		}
	}()

	rows, err := s.check(in)
	if err != nil {
		return nil, err
	}
	st = &models.Strategy{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		CreatedBy:   in.CreatedBy,
		Public:      in.Public,
		Directives:  rows,
	}
	if _, err := s.store.SaveStrategy(ctx, st, models.ChangeCreated); err != nil {
		return nil, err
	}
	s.log.Info("strategy created", zap.Int64("id", st.ID), zap.String("name", st.Name))
	return st, nil
}

// Update replaces the strategy's fields and directive set and writes a new version.
func (s *Service) Update(ctx context.Context, id int64, in Input) (st *models.Strategy, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("strategy.Update: %w", err)
		}
	}()

	st, err = s.store.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}
	if st.Archived {
		return nil, ErrArchived
	}
	rows, err := s.check(in)
	if err != nil {
		return nil, err
	}
	st.Name = in.Name
	st.Description = in.Description
	st.Category = in.Category
	st.Public = in.Public
	st.Directives = rows
	if _, err := s.store.SaveStrategy(ctx, st, models.ChangeUpdated); err != nil {
		return nil, err
	}
	return st, nil
}

// Archive soft-deletes a strategy. Archiving twice is a no-op.
func (s *Service) Archive(ctx context.Context, id int64) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("strategy.Archive: %w", err)
		}
	}()

	st, err := s.store.GetStrategy(ctx, id)
	if err != nil {
		return err
	}
	if st.Archived {
		return nil
	}
	st.Archived = true
	_, err = s.store.SaveStrategy(ctx, st, models.ChangeArchived)
	return err
}

func (s *Service) Get(ctx context.Context, id int64) (*models.Strategy, error) {
	return s.store.GetStrategy(ctx, id)
}

func (s *Service) List(ctx context.Context, f models.StrategyFilter) ([]models.Strategy, error) {
	return s.store.ListStrategies(ctx, f)
}

func (s *Service) Versions(ctx context.Context, id int64) ([]models.StrategyVersion, error) {
	return s.store.ListVersions(ctx, id)
}

func (s *Service) Version(ctx context.Context, id int64, number int) (*models.StrategyVersion, error) {
	return s.store.GetVersion(ctx, id, number)
}

func (s *Service) RecordTestResult(ctx context.Context, r models.StrategyTestResult) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now().UTC()
	}
	if err := s.store.AppendTestResult(ctx, r); err != nil {
		return fmt.Errorf("strategy.RecordTestResult: %w", err)
	}
	return nil
}

// Stats aggregates the last StatsWindow test results.
func (s *Service) Stats(ctx context.Context, id int64) (models.StrategyStats, error) {
	results, err := s.store.RecentTestResults(ctx, id, StatsWindow)
	if err != nil {
		return models.StrategyStats{}, fmt.Errorf("strategy.Stats: %w", err)
	}
	return aggregate(id, results), nil
}

func aggregate(id int64, results []models.StrategyTestResult) models.StrategyStats {
	stats := models.StrategyStats{StrategyID: id, Tests: len(results)}
	if len(results) == 0 {
		return stats
	}
	var wins int
	var total float64
	for _, r := range results {
		if r.Success {
			wins++
		}
		total += r.Score
	}
	stats.SuccessRate = float64(wins) / float64(len(results))
	stats.AverageScore = total / float64(len(results))
	return stats
}
