// Package notify delivers significant-move signals to the outside world.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scoring_engine/internal/models"

	"go.uber.org/zap"
)

type Sink interface {
	Name() string
	Publish(ctx context.Context, s models.Signal) error
}

// Fanout publishes every signal to all sinks. One failing sink does not stop the others.
type Fanout struct {
	log   *zap.Logger
	sinks []Sink
}

func NewFanout(log *zap.Logger, sinks ...Sink) *Fanout {
	f := &Fanout{log: log.With(zap.String("component", "notify"))}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

func (f *Fanout) Sinks() []string {
	names := make([]string, len(f.sinks))
	for i, s := range f.sinks {
		names[i] = s.Name()
	}
	return names
}

func (f *Fanout) Publish(ctx context.Context, s models.Signal) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Publish(ctx, s); err != nil {
			f.log.Warn("sink failed", zap.String("sink", sink.Name()), zap.String("symbol", s.Symbol), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Log writes signals to the process logger.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log { return &Log{log: log} }

func (l *Log) Name() string { return "log" }

func (l *Log) Publish(_ context.Context, s models.Signal) error {
	l.log.Info("signal",
		zap.String("symbol", s.Symbol),
		zap.Int("score", s.Score),
		zap.Int("previous", s.Previous),
		zap.Int("threshold", s.Threshold),
		zap.String("run_id", s.RunID),
		zap.String("reason", s.Reason),
	)
	return nil
}

// Format renders a signal as a chat message.
func Format(s models.Signal) string {
	var b strings.Builder
	arrow := "▲"
	if s.Score < s.Previous {
		arrow = "▼"
	}
	fmt.Fprintf(&b, "%s %s score %d", arrow, s.Symbol, s.Score)
	if s.Previous != 0 {
		fmt.Fprintf(&b, " (was %d)", s.Previous)
	}
	fmt.Fprintf(&b, "\nthreshold %d: %s", s.Threshold, s.Reason)
	return b.String()
}

// FormatRankings renders the top n rankings as a chat message.
func FormatRankings(ranks []models.Ranking, n int) string {
	if len(ranks) == 0 {
		return "No scores yet"
	}
	if n > 0 && len(ranks) > n {
		ranks = ranks[:n]
	}
	var b strings.Builder
	b.WriteString("Top scores:\n")
	for _, r := range ranks {
		fmt.Fprintf(&b, "%d. %s %d\n", r.Rank, r.Symbol, r.Value)
	}
	return strings.TrimRight(b.String(), "\n")
}
