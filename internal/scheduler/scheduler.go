// Package scheduler runs the reconciliation pipeline on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"claims-reconciliation-service/internal/models"
	"claims-reconciliation-service/internal/notify"
	"claims-reconciliation-service/internal/reconciler"
	"claims-reconciliation-service/internal/store"
	"claims-reconciliation-service/pkg/errors"
	"claims-reconciliation-service/pkg/logger"
)

// TriggerSchedule tags archived runs started by the scheduler
const TriggerSchedule = "schedule"

// Archiver persists a finished run
type Archiver interface {
	SaveRun(ctx context.Context, summary *models.Summary, meta store.RunMeta) (*store.ReconciliationRun, error)
}

// Job describes one scheduled reconciliation
type Job struct {
	// Spec is a standard five-field cron expression or a descriptor such as @daily
	Spec     string
	Claims   reconciler.ClaimSource
	Invoices reconciler.InvoiceSource
	// OutputPath may contain {{date}}, replaced by the run date as YYYY-MM-DD
	OutputPath string
	Writer     reconciler.ReportWriter
	Archive    Archiver
	Notifier   notify.Notifier
	Timeout    time.Duration
}

// Validate checks the job before it is registered
func (j *Job) Validate() error {
	if j.Claims == nil || j.Invoices == nil {
		return errors.ConfigurationError(errors.CodeMissingConfig, "schedule sources", nil, nil)
	}
	if _, err := cron.ParseStandard(j.Spec); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", j.Spec, err)
	}
	return nil
}

// Scheduler owns a cron runner and the jobs registered on it
type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger
	now    func() time.Time
}

// New creates a scheduler that evaluates expressions in loc. A job still
// running when its next activation arrives skips that activation.
func New(loc *time.Location, log logger.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	log = log.WithComponent("scheduler")
	cronLog := cronLogger{log}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: log,
		now:    time.Now,
	}
}

// Add registers a job and returns its entry id
func (s *Scheduler) Add(job Job) (cron.EntryID, error) {
	if err := job.Validate(); err != nil {
		return 0, err
	}

	id, err := s.cron.AddFunc(job.Spec, func() {
		_, err := s.RunOnce(context.Background(), job)
		s.logFailure(job, err)
	})
	if err != nil {
		return 0, errors.ConfigurationError(errors.CodeInvalidConfig, "schedule", job.Spec, err)
	}

	s.logger.WithFields(logger.Fields{
		"entry":    id,
		"schedule": job.Spec,
	}).Info("Reconciliation job scheduled")
	return id, nil
}

// logFailure reports a scheduled run error. Runs that hit the job timeout
// are warnings; the next activation retries them.
func (s *Scheduler) logFailure(job Job, err error) {
	if err == nil {
		return
	}
	entry := s.logger.WithError(err).WithField("schedule", job.Spec)
	if errors.IsCode(err, errors.CodeCancelled) {
		entry.Warn("Scheduled reconciliation cancelled")
		return
	}
	entry.Error("Scheduled reconciliation failed")
}

// Entries returns the registered jobs with their next activation
func (s *Scheduler) Entries() []cron.Entry {
	return s.cron.Entries()
}

// Start runs the cron loop in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
}

// Stop halts the loop and waits for running jobs until ctx expires
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.CategoryInternal, errors.CodeCancelled, "scheduler stop timed out")
	}
}

// RunOnce executes a job immediately: reconcile, write the report, archive
// the summary and notify. Archive and notification failures are logged and
// do not fail the run once the report exists.
func (s *Scheduler) RunOnce(ctx context.Context, job Job) (*reconciler.Result, error) {
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := s.now()
	output := ExpandOutputPath(job.OutputPath, start)
	log := s.logger.WithField("output", output)
	log.Info("Scheduled reconciliation started")

	result, err := reconciler.RunWithOptions(ctx, reconciler.Options{
		Claims:     job.Claims,
		Invoices:   job.Invoices,
		OutputPath: output,
		Writer:     job.Writer,
		Logger:     s.logger,
	})
	if err != nil {
		return nil, err
	}
	duration := s.now().Sub(start)

	if job.Archive != nil {
		_, err := job.Archive.SaveRun(ctx, result.Summary, store.RunMeta{
			Trigger:        TriggerSchedule,
			ClaimsSource:   fmt.Sprint(job.Claims),
			InvoicesSource: fmt.Sprint(job.Invoices),
			OutputPath:     result.OutputPath,
			Duration:       duration,
		})
		if err != nil {
			log.WithError(err).Warn("Failed to archive scheduled run")
		}
	}

	if job.Notifier != nil {
		if err := job.Notifier.Notify(ctx, result.Summary, result.OutputPath); err != nil {
			log.WithError(err).Warn("Failed to send run notification")
		}
	}

	log.WithFields(logger.Fields{
		"total":       result.Summary.TotalClaims,
		"overpaid":    result.Summary.Overpaid,
		"underpaid":   result.Summary.Underpaid,
		"duration_ms": duration.Milliseconds(),
	}).Info("Scheduled reconciliation completed")
	return result, nil
}

// ExpandOutputPath substitutes the run date into a path template
func ExpandOutputPath(template string, at time.Time) string {
	if template == "" {
		template = reconciler.DefaultOutputPath
	}
	return filepath.Clean(strings.ReplaceAll(template, "{{date}}", at.Format(models.DateLayout)))
}

// cronLogger adapts logger.Logger to cron.Logger
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.WithError(err).WithFields(pairs(keysAndValues)).Error(msg)
}

func pairs(keysAndValues []interface{}) logger.Fields {
	fields := make(logger.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}
