package rollup

import (
	"context"
	"fmt"
	"sync"
	"time"

	common_models "salescrm/internal/common/models"
	"salescrm/internal/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Capturer is what the scheduler drives
type Capturer interface {
	Capture(ctx context.Context, day common_models.Date) (*CaptureResult, error)
}

// Scheduler captures the previous day's rollups on a cron schedule
type Scheduler struct {
	capturer Capturer
	logger   *zap.Logger
	schedule string
	timeout  time.Duration
	now      func() time.Time

	mu        sync.Mutex
	scheduler *cron.Cron
	entry     cron.EntryID
	lastRun   time.Time
	lastErr   error
}

func NewScheduler(capturer Capturer, cfg *config.Config, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		capturer: capturer,
		logger:   logger,
		schedule: cfg.RollupSchedule,
		timeout:  5 * time.Minute,
		now:      time.Now,
	}
}

// Start registers the capture job. An empty schedule disables it.
func (s *Scheduler) Start() error {
	if s.schedule == "" {
		s.logger.Info("ROLLUP_SCHEDULE empty, rollup scheduler disabled")
		return nil
	}
	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid rollup schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduler = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	entry, err := s.scheduler.AddFunc(s.schedule, s.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to add rollup job to scheduler: %w", err)
	}
	s.entry = entry
	s.scheduler.Start()

	s.logger.Info("Rollup scheduler started",
		zap.String("schedule", s.schedule),
		zap.Time("next_run", s.scheduler.Entry(entry).Next))
	return nil
}

// Stop waits for a running capture to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.scheduler
	s.mu.Unlock()

	if c != nil {
		ctx := c.Stop()
		<-ctx.Done()
	}
}

// RunOnce captures yesterday relative to the scheduler clock
func (s *Scheduler) RunOnce() {
	day := Yesterday(s.now())

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	res, err := s.capturer.Capture(ctx, day)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Rollup capture failed", zap.String("date", day.String()), zap.Error(err))
		return
	}
	s.logger.Info("Rollup capture finished",
		zap.String("date", day.String()),
		zap.Int("pipeline_snapshots", len(res.Snapshots)),
		zap.Int("activity_summaries", len(res.Summaries)),
		zap.Int("contact_engagement", len(res.Engagement)),
		zap.Int("deal_forecasts", len(res.Forecasts)),
		zap.Duration("took", time.Since(start)))
}

// LastRun reports when the scheduler last ran and its error
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}

// Yesterday is the UTC calendar day before t
func Yesterday(t time.Time) common_models.Date {
	return common_models.NewDate(t.UTC().AddDate(0, 0, -1))
}

// RegisterScheduler ties the scheduler to the fx lifecycle
func RegisterScheduler(lc fx.Lifecycle, s *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}
