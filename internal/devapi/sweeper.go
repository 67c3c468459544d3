package devapi

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper periodically drops expired pending registrations.
type Sweeper struct {
	cron     *cron.Cron
	store    *Store
	schedule string
	logger   *slog.Logger
	now      func() time.Time
}

func NewSweeper(store *Store, schedule string, logger *slog.Logger) *Sweeper {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger)))

	return &Sweeper{
		cron:     c,
		store:    store,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.Sweep); err != nil {
		s.logger.Error("failed to schedule code sweep job", "error", err)
		return err
	}
	s.logger.Info("scheduled code sweep job", "schedule", s.schedule)
	s.cron.Start()
	return nil
}

// Sweep runs one purge.
func (s *Sweeper) Sweep() {
	if purged := s.store.PurgeExpiredCodes(s.now()); purged > 0 {
		s.logger.Info("purged expired verification codes", "component", "code_sweeper", "count", purged)
	}
}

// Stop gracefully stops the cron scheduler.
func (s *Sweeper) Stop() context.Context {
	return s.cron.Stop()
}
