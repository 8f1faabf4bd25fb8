package service

import (
	"context"
	"fmt"
	"strings"

	"scoring_engine/internal/store"

	"go.uber.org/zap"
)

type Watchlist struct {
	repo store.SymbolRepository
	log  *zap.Logger
}

func NewWatchlist(repo store.SymbolRepository, log *zap.Logger) *Watchlist {
	return &Watchlist{repo: repo, log: log.Named("watchlist")}
}

// Seed normalizes symbols to upper case and adds the ones not yet tracked.
func (w *Watchlist) Seed(ctx context.Context, symbols []string) (n int, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("watchlist.Seed: %w", err)
		}
	}()

	clean := Normalize(symbols)
	if len(clean) == 0 {
		return 0, nil
	}
	if err := w.repo.AddSymbols(ctx, clean...); err != nil {
		return 0, err
	}
	w.log.Info("watchlist seeded", zap.Int("symbols", len(clean)))
	return len(clean), nil
}

// Normalize trims, upper-cases and de-duplicates symbols, keeping first-seen order.
func Normalize(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
