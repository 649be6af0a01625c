// Package scheduler runs the periodic draw sync.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/lottoml/lotto-engine/internal/archive"
	"github.com/lottoml/lotto-engine/internal/config"
	"github.com/lottoml/lotto-engine/internal/services"
	"github.com/robfig/cron/v3"
	"golang.org/x/exp/slog"
)

// syncTimeout bounds one scheduled sync including the optional retrain
const syncTimeout = 30 * time.Minute

// Scheduler triggers an incremental sync on a cron schedule and optionally
// retrains the models when new draws arrived
type Scheduler struct {
	cron       *cron.Cron
	entry      cron.EntryID
	draws      services.DrawService
	prediction services.PredictionService
	retrain    bool
}

// cronLogger adapts slog to the cron.Logger interface
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// New creates a Scheduler; call Start to begin firing
func New(cfg config.SchedulerConfig, retrainOnSync bool, draws services.DrawService, prediction services.PredictionService) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		slog.Warn("Unknown scheduler timezone, falling back to KST", "timezone", cfg.Timezone, "error", err)
		loc = time.FixedZone("KST", 9*60*60)
	}

	logger := cronLogger{}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		draws:      draws,
		prediction: prediction,
		retrain:    retrainOnSync,
	}
	s.entry, err = s.cron.AddFunc(cfg.SyncSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		s.RunSync(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", cfg.SyncSpec, err)
	}
	return s, nil
}

// Start begins firing scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("Scheduler started", "nextSync", s.Next())
}

// Stop halts the scheduler and waits for a running job until ctx expires
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		slog.Warn("Scheduler stopped before the running job finished")
	}
}

// Next returns the next scheduled sync time
func (s *Scheduler) Next() time.Time {
	e := s.cron.Entry(s.entry)
	if !e.Valid() {
		return time.Time{}
	}
	if !e.Next.IsZero() {
		return e.Next
	}
	return e.Schedule.Next(time.Now().In(s.cron.Location()))
}

// RunSync performs one incremental sync and retrains when configured and
// new draws were stored
func (s *Scheduler) RunSync(ctx context.Context) {
	res, err := s.draws.Sync(ctx, archive.SyncIncremental)
	if err != nil {
		slog.Error("Scheduled sync failed", "synced", res.SyncedCount, "error", err)
		return
	}
	slog.Info("Scheduled sync finished", "synced", res.SyncedCount, "latestDraw", res.LatestDraw)
	if !s.retrain || res.SyncedCount == 0 {
		return
	}
	if _, err := s.prediction.Train(ctx); err != nil {
		slog.Error("Scheduled retrain failed", "error", err)
	}
}
