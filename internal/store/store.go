// Package store defines the persistence contracts the scoring core needs.
// Implementations live in the memory and pg subpackages.
package store

import (
	"context"
	"errors"
	"time"

	"scoring_engine/internal/models"
)

var ErrNotFound = errors.New("store: not found")

type StrategyRepository interface {
	// SaveStrategy assigns an id to new strategies, bumps the version number and
	// writes strategy, directive rows and version snapshot in one transaction.
	SaveStrategy(ctx context.Context, s *models.Strategy, change models.ChangeType) (*models.StrategyVersion, error)
	GetStrategy(ctx context.Context, id int64) (*models.Strategy, error)
	ListStrategies(ctx context.Context, filter models.StrategyFilter) ([]models.Strategy, error)
	ListVersions(ctx context.Context, strategyID int64) ([]models.StrategyVersion, error)
	GetVersion(ctx context.Context, strategyID int64, number int) (*models.StrategyVersion, error)
	AppendTestResult(ctx context.Context, r models.StrategyTestResult) error
	// RecentTestResults returns up to limit results, newest first.
	RecentTestResults(ctx context.Context, strategyID int64, limit int) ([]models.StrategyTestResult, error)
}

type RunRepository interface {
	CreateRun(ctx context.Context, r *models.Run) error
	UpdateRun(ctx context.Context, r *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	// LastRun returns the most recently started run with the given status.
	LastRun(ctx context.Context, status models.RunStatus) (*models.Run, error)
}

type ScoreRepository interface {
	AppendScore(ctx context.Context, s *models.Score) error
	LatestScore(ctx context.Context, symbol string) (*models.Score, error)
	LatestScores(ctx context.Context) ([]models.Score, error)
	// History returns up to limit scores for symbol, newest first.
	History(ctx context.Context, symbol string, limit int) ([]models.Score, error)
}

type SymbolRepository interface {
	AddSymbols(ctx context.Context, symbols ...string) error
	// MarkAttempted records that symbols went through a batch at the given time,
	// whether or not they produced a score.
	MarkAttempted(ctx context.Context, at time.Time, symbols ...string) error
	// SymbolsDue returns watchlist symbols, never-touched first, then by the later
	// of last attempt and last score, oldest first. A limit of 0 returns the whole watchlist.
	SymbolsDue(ctx context.Context, limit int) ([]string, error)
}

type QueueRepository interface {
	Enqueue(ctx context.Context, item *models.QueueItem) error
	// Dequeue removes and returns the oldest item whose NotBefore is not after now.
	// It returns nil, nil when nothing is due.
	Dequeue(ctx context.Context, now time.Time) (*models.QueueItem, error)
	QueueLen(ctx context.Context) (int, error)
}

// Store is the full relational store.
type Store interface {
	StrategyRepository
	RunRepository
	ScoreRepository
	SymbolRepository
	QueueRepository
}
