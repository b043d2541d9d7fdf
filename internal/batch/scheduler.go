package batch

import (
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// Scheduler re-runs the batch on a cron schedule. Standard 5-field cron
// expressions; runs serialize through the single browser session, so an
// overlapping trigger is skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger arbor.ILogger
}

// NewScheduler creates a batch scheduler.
func NewScheduler(logger arbor.ILogger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger: logger,
	}
}

// Start registers the job and begins scheduling.
func (s *Scheduler) Start(schedule string, job func()) error {
	if _, err := s.cron.AddFunc(schedule, job); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", schedule).Msg("Batch scheduler started")
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Batch scheduler stopped")
}
