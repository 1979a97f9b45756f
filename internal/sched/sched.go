// Package sched runs an explicit job table on a cron scheduler. The table
// is owned by the process that starts the scheduler; there is no global
// registry.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job pairs a cron expression with a handler. Handler errors are logged and
// never stop the schedule; retry policy stays with the operator.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Register validates every cron spec and adds the jobs. A single bad spec
// rejects the whole table so a misconfiguration is caught at startup.
func (s *Scheduler) Register(jobs []Job) error {
	for _, job := range jobs {
		if _, err := cron.ParseStandard(job.Spec); err != nil {
			return fmt.Errorf("job %s: bad schedule %q: %w", job.Name, job.Spec, err)
		}
	}
	for _, job := range jobs {
		if _, err := s.cron.AddFunc(job.Spec, s.wrap(job)); err != nil {
			return fmt.Errorf("job %s: %w", job.Name, err)
		}
		s.logger.Info("job registered", "job", job.Name, "schedule", job.Spec)
	}
	return nil
}

func (s *Scheduler) wrap(job Job) func() {
	return func() {
		runID := uuid.NewString()[:8]
		logger := s.logger.With("job", job.Name, "run_id", runID)
		start := time.Now()
		logger.Info("job started")
		if err := job.Run(context.Background()); err != nil {
			logger.Error("job failed", "err", err, "elapsed", time.Since(start))
			return
		}
		logger.Info("job finished", "elapsed", time.Since(start))
	}
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
