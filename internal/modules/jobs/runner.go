// Package jobs drains the durable work queue: it runs each item, applies the
// retry policy, tracks error states and counters and reports a health score.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"scoring_engine/internal/metrics"
	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/scoring"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/options"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownAction = errors.New("jobs: unknown action")

// Tasks are the entry points the queue dispatches to.
type Tasks interface {
	Run(ctx context.Context, runType models.RunType, symbols []string) (scoring.BatchResult, error)
	GenerateSignals(ctx context.Context) (int, error)
	UpdateRankings(ctx context.Context) ([]models.Ranking, error)
}

type Config struct {
	Policy RetryPolicy
	// SuccessRatio is the share of a batch that must succeed to clear degraded states.
	SuccessRatio float64
}

type Runner struct {
	log     *zap.Logger
	queue   store.QueueRepository
	opts    options.Store
	tasks   Tasks
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time

	// drainMu keeps a single consumer.
	drainMu sync.Mutex
}

func New(log *zap.Logger, cfg Config, queue store.QueueRepository, opts options.Store, tasks Tasks, m *metrics.Metrics) *Runner {
	if cfg.Policy.MaxRetries < 0 {
		cfg.Policy.MaxRetries = 0
	}
	if cfg.Policy.BaseDelay <= 0 || cfg.Policy.MaxDelay <= 0 {
		def := DefaultRetryPolicy()
		cfg.Policy.BaseDelay, cfg.Policy.MaxDelay = def.BaseDelay, def.MaxDelay
	}
	if cfg.SuccessRatio <= 0 || cfg.SuccessRatio > 1 {
		cfg.SuccessRatio = 0.8
	}
	return &Runner{
		log:     log.With(zap.String("component", "jobs")),
		queue:   queue,
		opts:    opts,
		tasks:   tasks,
		cfg:     cfg,
		metrics: m,
		now:     time.Now,
	}
}

// Enqueue adds a new item that is due immediately.
func (r *Runner) Enqueue(ctx context.Context, action models.Action, payload models.Payload) (*models.QueueItem, error) {
	if len(payload.Symbols) > scoring.MaxBatchSize {
		return nil, fmt.Errorf("jobs.Enqueue: %d symbols exceeds batch size %d", len(payload.Symbols), scoring.MaxBatchSize)
	}
	now := r.now().UTC()
	item := &models.QueueItem{
		ID:         uuid.NewString(),
		Action:     action,
		Payload:    payload,
		NotBefore:  now,
		EnqueuedAt: now,
	}
	if err := r.queue.Enqueue(ctx, item); err != nil {
		return nil, fmt.Errorf("jobs.Enqueue: %w", err)
	}
	return item, nil
}

// Drain runs due items one at a time until none is left and returns how many
// ran. Failures are recorded as error states and never returned.
func (r *Runner) Drain(ctx context.Context) int {
	r.drainMu.Lock()
	defer r.drainMu.Unlock()

	n := 0
	for ctx.Err() == nil {
		item, err := r.queue.Dequeue(ctx, r.now().UTC())
		if err != nil {
			r.log.Error("dequeue failed", zap.Error(err))
			r.recordState(ctx, "queue", models.StatusDegraded, err.Error())
			break
		}
		if item == nil {
			break
		}
		r.execute(ctx, item)
		n++
	}

	if depth, err := r.queue.QueueLen(ctx); err == nil {
		r.metrics.QueueDepth.Set(float64(depth))
	}
	if rep, err := r.Health(ctx); err == nil {
		r.metrics.HealthScore.Set(float64(rep.Score))
	}
	return n
}

func (r *Runner) execute(ctx context.Context, item *models.QueueItem) {
	log := r.log.With(
		zap.String("item_id", item.ID),
		zap.String("action", string(item.Action)),
		zap.Int("retry_count", item.RetryCount),
	)

	var err error
	switch item.Action {
	case models.ActionCalculateScores:
		err = r.calculateScores(ctx, item)
	case models.ActionGenerateSignals:
		var n int
		n, err = r.tasks.GenerateSignals(ctx)
		if err == nil {
			r.incr(ctx, options.KeySignalsGenerated, n)
		}
	case models.ActionUpdateRankings:
		_, err = r.tasks.UpdateRankings(ctx)
	default:
		log.Error("dropping item", zap.Error(ErrUnknownAction))
		r.metrics.Jobs.WithLabelValues(string(item.Action), "dropped").Inc()
		r.recordState(ctx, string(item.Action), models.StatusFailed, ErrUnknownAction.Error())
		return
	}

	if err == nil {
		r.metrics.Jobs.WithLabelValues(string(item.Action), "ok").Inc()
		return
	}

	log.Warn("item failed", zap.Error(err))
	if r.retry(ctx, item, item.Payload) {
		r.metrics.Jobs.WithLabelValues(string(item.Action), "retried").Inc()
		return
	}
	r.metrics.Jobs.WithLabelValues(string(item.Action), "dropped").Inc()
	r.recordState(ctx, string(item.Action), models.StatusFailed,
		fmt.Sprintf("gave up after %d retries: %v", item.RetryCount, err))
}

// retry re-enqueues payload as the next attempt of item when the policy allows.
func (r *Runner) retry(ctx context.Context, item *models.QueueItem, payload models.Payload) bool {
	if !r.cfg.Policy.Retry(item.RetryCount) {
		return false
	}
	now := r.now().UTC()
	next := &models.QueueItem{
		ID:         uuid.NewString(),
		Action:     item.Action,
		Payload:    payload,
		RetryCount: item.RetryCount + 1,
		NotBefore:  now.Add(r.cfg.Policy.Delay(item.RetryCount)),
		EnqueuedAt: now,
	}
	if err := r.queue.Enqueue(ctx, next); err != nil {
		r.log.Error("re-enqueue failed", zap.String("item_id", item.ID), zap.Error(err))
		return false
	}
	r.metrics.JobRetries.WithLabelValues(string(item.Action)).Inc()
	r.log.Info("retry scheduled",
		zap.String("item_id", next.ID),
		zap.Int("retry_count", next.RetryCount),
		zap.Time("not_before", next.NotBefore),
	)
	return true
}

// calculateScores runs one batch. Symbols that failed transiently go into a
// follow-up item under the same retry policy.
func (r *Runner) calculateScores(ctx context.Context, item *models.QueueItem) error {
	runType := item.Payload.RunType
	if runType == "" {
		runType = models.RunScheduled
	}
	if item.RetryCount > 0 {
		runType = models.RunRetry
	}

	res, err := r.tasks.Run(ctx, runType, item.Payload.Symbols)
	r.incr(ctx, options.KeySymbolsProcessed, len(res.Processed))
	r.incr(ctx, options.KeyAPICalls, res.APICalls)
	r.incr(ctx, options.KeyScoresGenerated, res.ScoresGenerated)
	r.incr(ctx, options.KeySignalsGenerated, res.Signals)
	if err != nil {
		return err
	}

	if len(res.Transient) > 0 {
		follow := models.Payload{Symbols: res.Transient, RunType: models.RunRetry}
		if !r.retry(ctx, item, follow) {
			r.recordState(ctx, "symbols", models.StatusFailed,
				fmt.Sprintf("gave up on %s after %d retries", strings.Join(res.Transient, ","), item.RetryCount))
		}
	}

	if res.SuccessRatio() >= r.cfg.SuccessRatio {
		r.clearDegraded(ctx)
		if len(res.Processed) > 0 {
			now := r.now().UTC()
			if err := r.opts.Set(ctx, options.KeyLastSuccess, now); err != nil {
				r.log.Warn("last success not stored", zap.Error(err))
			}
		}
	} else {
		r.recordState(ctx, string(models.ActionCalculateScores), models.StatusDegraded,
			fmt.Sprintf("%d of %d symbols scored", len(res.Processed), res.Attempted))
	}
	return nil
}

func (r *Runner) incr(ctx context.Context, key string, by int) {
	if by == 0 {
		return
	}
	if _, err := r.opts.Incr(ctx, key, int64(by)); err != nil {
		r.log.Warn("counter not updated", zap.String("key", key), zap.Error(err))
	}
}

func (r *Runner) states(ctx context.Context) (map[string]models.ErrorState, error) {
	return options.GetOrDefault(ctx, r.opts, options.KeyErrorStates, map[string]models.ErrorState{})
}

func (r *Runner) recordState(ctx context.Context, category string, status models.ErrorStatus, msg string) {
	states, err := r.states(ctx)
	if err != nil {
		r.log.Error("error states unreadable", zap.Error(err))
		return
	}
	states[category] = models.ErrorState{
		Category:  category,
		Status:    status,
		Timestamp: r.now().UTC(),
		Context:   msg,
	}
	if err := r.opts.Set(ctx, options.KeyErrorStates, states); err != nil {
		r.log.Error("error state not stored", zap.String("category", category), zap.Error(err))
	}
}

func (r *Runner) clearDegraded(ctx context.Context) {
	states, err := r.states(ctx)
	if err != nil {
		r.log.Error("error states unreadable", zap.Error(err))
		return
	}
	changed := false
	for k, s := range states {
		if s.Status == models.StatusDegraded {
			delete(states, k)
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := r.opts.Set(ctx, options.KeyErrorStates, states); err != nil {
		r.log.Error("error states not stored", zap.Error(err))
	}
}

// ClearStates drops every recorded error state.
func (r *Runner) ClearStates(ctx context.Context) error {
	return ClearStates(ctx, r.opts)
}

// ClearStates drops every error state recorded in opts, failed ones included.
func ClearStates(ctx context.Context, opts options.Store) error {
	if err := opts.Delete(ctx, options.KeyErrorStates); err != nil {
		return fmt.Errorf("jobs.ClearStates: %w", err)
	}
	return nil
}

// Health computes the current report.
func (r *Runner) Health(ctx context.Context) (Report, error) {
	states, err := r.states(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("jobs.Health: %w", err)
	}
	list := make([]models.ErrorState, 0, len(states))
	for _, s := range states {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Category < list[j].Category })

	var last time.Time
	ok, err := r.opts.Get(ctx, options.KeyLastSuccess, &last)
	if err != nil {
		return Report{}, fmt.Errorf("jobs.Health: %w", err)
	}
	rep := Report{States: list}
	if ok && !last.IsZero() {
		rep.LastSuccess = &last
	}
	if depth, err := r.queue.QueueLen(ctx); err == nil {
		rep.QueueDepth = depth
	}
	rep.Score = HealthScore(list, rep.LastSuccess, r.now().UTC())
	return rep, nil
}

// Counters returns the cumulative counters.
func (r *Runner) Counters(ctx context.Context) (map[string]int64, error) {
	out := make(map[string]int64, 4)
	for _, key := range []string{options.KeySymbolsProcessed, options.KeyAPICalls, options.KeyScoresGenerated, options.KeySignalsGenerated} {
		v, err := options.GetOrDefault(ctx, r.opts, key, int64(0))
		if err != nil {
			return nil, fmt.Errorf("jobs.Counters: %w", err)
		}
		out[strings.TrimPrefix(key, "counter:")] = v
	}
	return out, nil
}
