// internal/integrity/scheduler.go
package integrity

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the auditor on a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	auditor *Auditor
	timeout time.Duration
}

// NewScheduler registers the auditor under a cron schedule such as "@every 1h" or "0 3 * * *".
func NewScheduler(auditor *Auditor, spec string, timeout time.Duration) (*Scheduler, error) {
	if timeout <= 0 {
		timeout = time.Minute
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		auditor: auditor,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("integrity schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.auditor.Run(ctx); err != nil {
		s.auditor.log.Error().Err(err).Msg("scheduled integrity audit aborted")
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the scheduler and waits for a running audit to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
