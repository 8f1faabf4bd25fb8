// Package options is the key/value store for directive overrides, run counters,
// error states and rankings. Values are JSON encoded with sonic.
package options

import (
	"context"
	"fmt"
)

// Well-known keys.
const (
	KeyDirectiveOverrides = "directive_overrides"
	KeyDirectiveConfig    = "directive_config"
	KeyErrorStates        = "error_states"
	KeyLastSuccess        = "last_success"
	KeyRankings           = "rankings"

	// KeyCurrentRun holds the id of the run in progress; KeyRunStop the id of a run asked to stop.
	KeyCurrentRun = "current_run"
	KeyRunStop    = "run_stop"

	KeySymbolsProcessed = "counter:symbols_processed"
	KeyAPICalls         = "counter:api_calls"
	KeyScoresGenerated  = "counter:scores_generated"
	KeySignalsGenerated = "counter:signals_generated"
)

type Store interface {
	// Get decodes the value under key into dst and reports whether the key existed.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
	// Incr adds by to the integer counter under key and returns the new value.
	Incr(ctx context.Context, key string, by int64) (int64, error)
}

// GetOrDefault returns def when key is absent.
func GetOrDefault[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	var v T
	ok, err := s.Get(ctx, key, &v)
	if err != nil {
		return def, fmt.Errorf("options.GetOrDefault %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	return v, nil
}
