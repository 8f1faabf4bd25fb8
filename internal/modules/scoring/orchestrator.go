// Package scoring runs batches of symbols through data collection, scoring,
// persistence and signal publication.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"scoring_engine/internal/metrics"
	"scoring_engine/internal/models"
	"scoring_engine/internal/modules/capability"
	"scoring_engine/internal/modules/directive"
	"scoring_engine/internal/modules/provider"
	"scoring_engine/internal/store"
	"scoring_engine/internal/store/options"
	"scoring_engine/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxBatchSize bounds a single ProcessSymbols call.
const MaxBatchSize = 20

var (
	ErrRunClosed  = errors.New("scoring: run already closed")
	ErrNotRunning = errors.New("scoring: run is not running")
	// ErrStoreFailure aborts the run; it ends as failed.
	ErrStoreFailure = errors.New("scoring: store failure")

	ErrNoProvider          = errors.New("scoring: no provider for data type")
	ErrSyntheticData       = errors.New("scoring: synthetic data outside simulation mode")
	ErrStaleData           = errors.New("scoring: data older than its freshness limit")
	ErrInsufficientHistory = errors.New("scoring: not enough price history")
	ErrUnscorable          = errors.New("scoring: cannot compute score")
)

type Config struct {
	Algorithm   models.Algorithm
	Mode        models.DataMode
	Threshold   int
	BatchSize   int
	MinHistory  int
	HistoryBars int
}

// SignalPublisher receives significant-move signals.
type SignalPublisher interface {
	Publish(ctx context.Context, s models.Signal) error
}

// StrategyEvaluator records per-run results of the active strategies over the
// data a batch gathered.
type StrategyEvaluator interface {
	EvaluateActive(ctx context.Context, runID string, data []*models.SymbolData) (int, error)
}

// BatchResult summarizes one ProcessSymbols call.
type BatchResult struct {
	RunID     string
	Attempted int
	Processed []string
	// Transient are symbols whose provider failed in a retryable way.
	Transient []string
	// Skipped are symbols without usable data; not retried.
	Skipped         map[string]error
	APICalls        int
	ScoresGenerated int
	Signals         int
	// StrategyResults is the number of strategy test results recorded.
	StrategyResults int
	Interrupted     bool
}

// SuccessRatio is processed over attempted; 1 for an empty batch.
func (b BatchResult) SuccessRatio() float64 {
	if b.Attempted == 0 {
		return 1
	}
	return float64(len(b.Processed)) / float64(b.Attempted)
}

type Orchestrator struct {
	log        *zap.Logger
	cfg        Config
	store      store.Store
	opts       options.Store
	providers  *provider.Set
	matrix     *capability.Matrix
	registry   *directive.Registry
	signals    SignalPublisher
	strategies StrategyEvaluator
	metrics    *metrics.Metrics
	now        func() time.Time

	mu      sync.Mutex
	handles map[string]*RunHandle
}

func New(
	log *zap.Logger,
	cfg Config,
	st store.Store,
	opts options.Store,
	providers *provider.Set,
	matrix *capability.Matrix,
	registry *directive.Registry,
	signals SignalPublisher,
	m *metrics.Metrics,
) *Orchestrator {
	if cfg.BatchSize <= 0 || cfg.BatchSize > MaxBatchSize {
		cfg.BatchSize = MaxBatchSize
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = models.AlgorithmCategory
	}
	if cfg.Mode == "" {
		cfg.Mode = models.ModeLive
	}
	if cfg.HistoryBars <= 0 {
		cfg.HistoryBars = 120
	}
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 60
	}
	return &Orchestrator{
		log:       log.With(zap.String("component", "scoring")),
		cfg:       cfg,
		store:     st,
		opts:      opts,
		providers: providers,
		matrix:    matrix,
		registry:  registry,
		signals:   signals,
		metrics:   m,
		now:       time.Now,
		handles:   make(map[string]*RunHandle),
	}
}

// SetStrategies enables strategy evaluation after each batch.
func (o *Orchestrator) SetStrategies(e StrategyEvaluator) { o.strategies = e }

// Threshold is the score a symbol must exceed to raise a signal.
func (o *Orchestrator) Threshold() int { return o.cfg.Threshold }

// StartRun persists a new running Run and returns its handle.
func (o *Orchestrator) StartRun(ctx context.Context, runType models.RunType) (*RunHandle, error) {
	r := models.Run{
		ID:        uuid.NewString(),
		StartTime: o.now().UTC(),
		Status:    models.RunRunning,
		RunType:   runType,
	}
	if err := o.store.CreateRun(ctx, &r); err != nil {
		return nil, fmt.Errorf("scoring.StartRun: %w: %w", ErrStoreFailure, err)
	}
	h := newRunHandle(r)

	o.mu.Lock()
	o.handles[r.ID] = h
	o.mu.Unlock()

	if err := o.opts.Set(ctx, options.KeyCurrentRun, r.ID); err != nil {
		o.log.Warn("current run not published", zap.Error(err))
	}
	o.log.Info("run started", zap.String("run_id", r.ID), zap.String("run_type", string(runType)))
	return h, nil
}

// Stop clears the running flag of an open run. It reports whether the run was found.
func (o *Orchestrator) Stop(runID string) bool {
	o.mu.Lock()
	h, ok := o.handles[runID]
	o.mu.Unlock()
	if ok {
		h.Stop()
	}
	return ok
}

// Running reports whether any run is in progress.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, h := range o.handles {
		if h.Running() {
			return true
		}
	}
	return false
}

// EndRun closes the run exactly once. A second call returns ErrRunClosed.
func (o *Orchestrator) EndRun(ctx context.Context, h *RunHandle, status models.RunStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("scoring.EndRun: status %q is not terminal", status)
	}
	if !h.closed.CompareAndSwap(false, true) {
		return ErrRunClosed
	}
	h.Stop()

	end := o.now().UTC()
	r := h.update(func(r *models.Run) {
		r.Status = status
		r.EndTime = &end
	})

	o.mu.Lock()
	delete(o.handles, r.ID)
	o.mu.Unlock()
	o.clearRunKeys(ctx, r.ID)

	o.metrics.Runs.WithLabelValues(string(status)).Inc()
	o.metrics.RunDuration.Observe(end.Sub(r.StartTime).Seconds())
	o.log.Info("run ended",
		zap.String("run_id", r.ID),
		zap.String("status", string(status)),
		zap.Int("processed", r.SymbolsProcessed),
		zap.Int("failed", r.SymbolsFailed),
		zap.Int("signals", r.TradeSignals),
	)

	if err := o.store.UpdateRun(ctx, &r); err != nil {
		return fmt.Errorf("scoring.EndRun: %w: %w", ErrStoreFailure, err)
	}
	return nil
}

// RequestStop asks the run with runID to stop before its next symbol. It goes
// through the option store so another process can issue it.
func RequestStop(ctx context.Context, opts options.Store, runID string) error {
	return opts.Set(ctx, options.KeyRunStop, runID)
}

func (o *Orchestrator) stopRequested(ctx context.Context, h *RunHandle) bool {
	id, err := options.GetOrDefault(ctx, o.opts, options.KeyRunStop, "")
	if err != nil {
		o.log.Warn("stop request not readable", zap.Error(err))
		return false
	}
	return id == h.ID()
}

func (o *Orchestrator) clearRunKeys(ctx context.Context, runID string) {
	for _, key := range []string{options.KeyCurrentRun, options.KeyRunStop} {
		id, err := options.GetOrDefault(ctx, o.opts, key, "")
		if err != nil || id != runID {
			continue
		}
		if err := o.opts.Delete(ctx, key); err != nil {
			o.log.Warn("run key not cleared", zap.String("key", key), zap.Error(err))
		}
	}
}

// Run starts a run, processes one batch (the given symbols, or the stalest
// due symbols when none are given) and closes it with the matching status.
func (o *Orchestrator) Run(ctx context.Context, runType models.RunType, symbols []string) (BatchResult, error) {
	h, err := o.StartRun(ctx, runType)
	if err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	if len(symbols) > 0 {
		res, err = o.ProcessList(ctx, h, symbols)
	} else {
		res, err = o.ProcessSymbols(ctx, h, 0)
	}

	status := models.RunCompleted
	switch {
	case err != nil:
		status = models.RunFailed
	case res.Interrupted:
		status = models.RunStopped
	}
	if endErr := o.EndRun(context.WithoutCancel(ctx), h, status); endErr != nil && err == nil {
		err = endErr
	}
	return res, err
}

// ProcessSymbols scores up to batchSize due symbols, stalest first.
func (o *Orchestrator) ProcessSymbols(ctx context.Context, h *RunHandle, batchSize int) (BatchResult, error) {
	if batchSize <= 0 || batchSize > o.cfg.BatchSize {
		batchSize = o.cfg.BatchSize
	}
	symbols, err := o.store.SymbolsDue(ctx, batchSize)
	if err != nil {
		return BatchResult{RunID: h.ID()}, fmt.Errorf("scoring.ProcessSymbols: %w: %w", ErrStoreFailure, err)
	}
	return o.ProcessList(ctx, h, symbols)
}

// ProcessList scores the given symbols in order, at most MaxBatchSize of them.
// The running flag and ctx are checked before each symbol.
func (o *Orchestrator) ProcessList(ctx context.Context, h *RunHandle, symbols []string) (res BatchResult, err error) {
	span, ctx := tracing.StartSpan(ctx, "scoring.ProcessList")
	defer func() { tracing.Finish(span, err) }()

	res = BatchResult{RunID: h.ID(), Skipped: make(map[string]error)}
	if h.Closed() {
		return res, ErrRunClosed
	}
	if !h.Running() {
		return res, ErrNotRunning
	}
	if len(symbols) > MaxBatchSize {
		symbols = symbols[:MaxBatchSize]
	}

	attempted := make([]string, 0, len(symbols))
	gathered := make([]*models.SymbolData, 0, len(symbols))
	defer func() { o.markAttempted(ctx, attempted) }()

	for _, sym := range symbols {
		if o.stopRequested(ctx, h) {
			h.Stop()
		}
		if ctx.Err() != nil || !h.Running() {
			res.Interrupted = true
			break
		}
		res.Attempted++
		attempted = append(attempted, sym)

		out, err := o.scoreSymbol(ctx, h, sym)
		res.APICalls += out.apiCalls
		switch {
		case err == nil:
			res.Processed = append(res.Processed, sym)
			res.ScoresGenerated++
			if out.signal {
				res.Signals++
			}
			gathered = append(gathered, out.data)
		case errors.Is(err, ErrStoreFailure):
			o.log.Error("store failure, aborting run", zap.String("run_id", h.ID()), zap.Error(err))
			if statsErr := o.saveStats(ctx, h, res); statsErr != nil {
				o.log.Error("run stats not saved", zap.String("run_id", h.ID()), zap.Error(statsErr))
			}
			return res, err
		case isTransient(err):
			res.Transient = append(res.Transient, sym)
			o.metrics.SymbolsFailed.WithLabelValues("transient").Inc()
			o.log.Warn("transient failure", zap.String("symbol", sym), zap.Error(err))
		default:
			res.Skipped[sym] = err
			o.metrics.SymbolsFailed.WithLabelValues("unavailable").Inc()
			o.log.Info("symbol skipped", zap.String("symbol", sym), zap.Error(err))
		}
	}

	res.StrategyResults = o.evaluateStrategies(ctx, h.ID(), gathered)

	if err := o.saveStats(ctx, h, res); err != nil {
		return res, err
	}
	return res, nil
}

// markAttempted moves every symbol the batch touched to the back of the due
// order, scored or not.
func (o *Orchestrator) markAttempted(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	if err := o.store.MarkAttempted(context.WithoutCancel(ctx), o.now().UTC(), symbols...); err != nil {
		o.log.Warn("attempt times not stored", zap.Strings("symbols", symbols), zap.Error(err))
	}
}

// evaluateStrategies failures are logged; they never fail the run.
func (o *Orchestrator) evaluateStrategies(ctx context.Context, runID string, data []*models.SymbolData) int {
	if o.strategies == nil || len(data) == 0 {
		return 0
	}
	n, err := o.strategies.EvaluateActive(ctx, runID, data)
	if err != nil {
		o.log.Warn("strategy evaluation failed", zap.String("run_id", runID), zap.Error(err))
	}
	return n
}

func (o *Orchestrator) saveStats(ctx context.Context, h *RunHandle, res BatchResult) error {
	r := h.update(func(r *models.Run) {
		r.SymbolsProcessed += len(res.Processed)
		r.SymbolsFailed += len(res.Transient) + len(res.Skipped)
		r.APICalls += res.APICalls
		r.ScoresGenerated += res.ScoresGenerated
		r.TradeSignals += res.Signals
	})
	if err := o.store.UpdateRun(context.WithoutCancel(ctx), &r); err != nil {
		return fmt.Errorf("scoring.saveStats: %w: %w", ErrStoreFailure, err)
	}
	return nil
}

// isTransient is true for retryable provider failures and unclassified errors.
func isTransient(err error) bool {
	for _, skip := range []error{ErrNoProvider, ErrSyntheticData, ErrStaleData, ErrInsufficientHistory, ErrUnscorable} {
		if errors.Is(err, skip) {
			return false
		}
	}
	return provider.KindOf(err) == provider.KindTransient
}

type symbolOutcome struct {
	apiCalls int
	signal   bool
	data     *models.SymbolData
}

func (o *Orchestrator) scoreSymbol(ctx context.Context, h *RunHandle, symbol string) (out symbolOutcome, err error) {
	span, ctx := tracing.StartSpan(ctx, "scoring.scoreSymbol")
	span.SetTag("symbol", symbol)
	defer func() { tracing.Finish(span, err) }()

	data, calls, err := o.gather(ctx, symbol)
	out.apiCalls = calls
	o.metrics.APICalls.Add(float64(calls))
	if err != nil {
		return out, err
	}
	out.data = data

	prev, err := o.store.LatestScore(ctx, symbol)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return out, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}

	score := &models.Score{
		Symbol:    symbol,
		Algorithm: o.cfg.Algorithm,
		RunID:     h.ID(),
		CreatedAt: o.now().UTC(),
	}
	if prev != nil {
		score.PreviousValue = prev.Value
		score.HasPrevious = true
	}

	switch o.cfg.Algorithm {
	case models.AlgorithmDirective:
		res := o.registry.Composite(data, directive.Weighting{}, float64(score.PreviousValue))
		if res.UsedFallback && !score.HasPrevious {
			return out, fmt.Errorf("%w: no directive produced a score", ErrUnscorable)
		}
		score.Value = int(math.Round(res.Score))
		score.Components = res.Components
	default:
		cats, err := ComputeCategories(data)
		if err != nil {
			return out, fmt.Errorf("%w: %w", ErrUnscorable, err)
		}
		score.Value, score.Components = CategoryScore(cats)
	}

	if err := o.store.AppendScore(ctx, score); err != nil {
		return out, fmt.Errorf("%w: %w", ErrStoreFailure, err)
	}
	o.metrics.SymbolsProcessed.Inc()
	o.metrics.ScoresGenerated.Inc()
	o.metrics.ScoreValue.Observe(float64(score.Value))

	if score.Value > o.cfg.Threshold {
		out.signal = true
		o.publish(ctx, o.signalFor(*score, "score crossed threshold"))
	}
	return out, nil
}

func (o *Orchestrator) signalFor(sc models.Score, reason string) models.Signal {
	return models.Signal{
		Symbol:    sc.Symbol,
		Score:     sc.Value,
		Previous:  sc.PreviousValue,
		Threshold: o.cfg.Threshold,
		RunID:     sc.RunID,
		Reason:    reason,
		CreatedAt: o.now().UTC(),
	}
}

func (o *Orchestrator) publish(ctx context.Context, s models.Signal) {
	o.metrics.SignalsGenerated.Inc()
	if o.signals == nil {
		return
	}
	if err := o.signals.Publish(ctx, s); err != nil {
		o.log.Warn("signal publish failed", zap.String("symbol", s.Symbol), zap.Error(err))
	}
}

// gather fetches quote and history through the providers the capability
// matrix selects, and fundamentals/sentiment for the directive algorithm.
func (o *Orchestrator) gather(ctx context.Context, symbol string) (*models.SymbolData, int, error) {
	now := o.now().UTC()
	data := &models.SymbolData{Symbol: symbol, Now: now}
	calls := 0

	p, err := o.providerFor(models.DataQuote)
	if err != nil {
		return nil, calls, err
	}
	q, err := p.GetQuote(ctx, symbol)
	calls += q.APICalls
	if err != nil {
		return nil, calls, err
	}
	if err := o.accept(models.DataQuote, q.Synthetic, q.FetchedAt, q.Data.Timestamp, now); err != nil {
		return nil, calls, err
	}
	quote := q.Data
	data.Quote = &quote
	data.Synthetic = q.Synthetic

	p, err = o.providerFor(models.DataPriceHistory)
	if err != nil {
		return nil, calls, err
	}
	hist, err := p.GetTechnicalIndicators(ctx, symbol, o.cfg.HistoryBars)
	calls += hist.APICalls
	if err != nil {
		return nil, calls, err
	}
	if err := o.accept(models.DataPriceHistory, hist.Synthetic, hist.FetchedAt, time.Time{}, now); err != nil {
		return nil, calls, err
	}
	if len(hist.Data) < o.cfg.MinHistory {
		return nil, calls, fmt.Errorf("%w: %d bars, need %d", ErrInsufficientHistory, len(hist.Data), o.cfg.MinHistory)
	}
	series, err := models.NewPriceSeries(symbol, hist.Data...)
	if err != nil {
		return nil, calls, fmt.Errorf("%w: %w", ErrUnscorable, err)
	}
	data.Series = series
	data.Synthetic = data.Synthetic || hist.Synthetic

	if o.cfg.Algorithm == models.AlgorithmDirective {
		n, err := o.gatherOptional(ctx, data, now)
		calls += n
		if err != nil {
			return nil, calls, err
		}
	}
	return data, calls, nil
}

// gatherOptional adds fundamentals and sentiment when a provider serves them.
// Missing data is fine; transient failures are not.
func (o *Orchestrator) gatherOptional(ctx context.Context, data *models.SymbolData, now time.Time) (int, error) {
	calls := 0
	if p, err := o.providerFor(models.DataFundamental); err == nil {
		f, err := p.GetFundamentalData(ctx, data.Symbol)
		calls += f.APICalls
		switch {
		case err == nil:
			if o.accept(models.DataFundamental, f.Synthetic, f.FetchedAt, time.Time{}, now) == nil {
				fund := f.Data
				data.Fundamentals = &fund
				data.Synthetic = data.Synthetic || f.Synthetic
			}
		case provider.KindOf(err) == provider.KindTransient:
			return calls, err
		}
	}
	if p, err := o.providerFor(models.DataSentiment); err == nil {
		s, err := p.GetSentimentData(ctx, data.Symbol)
		calls += s.APICalls
		switch {
		case err == nil:
			if o.accept(models.DataSentiment, s.Synthetic, s.FetchedAt, s.Data.Timestamp, now) == nil {
				sent := s.Data
				data.Sentiment = &sent
				data.Synthetic = data.Synthetic || s.Synthetic
			}
		case provider.KindOf(err) == provider.KindTransient:
			return calls, err
		}
	}
	return calls, nil
}

func (o *Orchestrator) providerFor(dt models.DataType) (provider.DataProvider, error) {
	name, ok := o.matrix.ProviderFor(dt)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProvider, dt)
	}
	p, ok := o.providers.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s not registered)", ErrNoProvider, dt, name)
	}
	return p, nil
}

// accept rejects synthetic data outside simulation mode and stale data.
func (o *Orchestrator) accept(dt models.DataType, synthetic bool, fetchedAt, dataTime, now time.Time) error {
	if synthetic && o.cfg.Mode != models.ModeSimulation {
		return fmt.Errorf("%w: %s", ErrSyntheticData, dt)
	}
	if !o.matrix.IsFresh(dt, fetchedAt, now) {
		return fmt.Errorf("%w: %s fetched at %s", ErrStaleData, dt, fetchedAt.Format(time.RFC3339))
	}
	if !dataTime.IsZero() && !o.matrix.IsFresh(dt, dataTime, now) {
		return fmt.Errorf("%w: %s as of %s", ErrStaleData, dt, dataTime.Format(time.RFC3339))
	}
	return nil
}
