package jobs

import (
	"context"

	"scoring_engine/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler is the cron trigger: one schedule enqueues the periodic work, the
// other drains the queue.
type Scheduler struct {
	cron   *cron.Cron
	runner *Runner
	log    *zap.Logger
}

func NewScheduler(log *zap.Logger, runner *Runner) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		runner: runner,
		log:    log.With(zap.String("component", "scheduler")),
	}
}

// Register adds the enqueue schedule and the drain schedule.
func (s *Scheduler) Register(ctx context.Context, scheduleSpec, drainSpec string) error {
	if _, err := s.cron.AddFunc(scheduleSpec, func() { s.EnqueuePeriodic(ctx) }); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(drainSpec, func() {
		if n := s.runner.Drain(ctx); n > 0 {
			s.log.Debug("queue drained", zap.Int("items", n))
		}
	}); err != nil {
		return err
	}
	s.log.Info("jobs registered", zap.String("schedule", scheduleSpec), zap.String("drain", drainSpec))
	return nil
}

// EnqueuePeriodic queues one scoring batch followed by signal and ranking updates.
func (s *Scheduler) EnqueuePeriodic(ctx context.Context) {
	for _, action := range []models.Action{
		models.ActionCalculateScores,
		models.ActionGenerateSignals,
		models.ActionUpdateRankings,
	} {
		payload := models.Payload{}
		if action == models.ActionCalculateScores {
			payload.RunType = models.RunScheduled
		}
		if _, err := s.runner.Enqueue(ctx, action, payload); err != nil {
			s.log.Error("enqueue failed", zap.String("action", string(action)), zap.Error(err))
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}
