package jobs

import (
	"invite-tracker-backend/internal/config"
	"invite-tracker-backend/internal/logger"
	"invite-tracker-backend/internal/repository"
	"invite-tracker-backend/internal/service"
)

// Job names accepted by cmd/cronjob -run-once.
const (
	JobReportLedgerStats = "report-ledger-stats"
	JobExportSnapshot    = "export-snapshot"
	JobAll               = "all"
)

// JobNames lists the names accepted by Run.
var JobNames = []string{JobReportLedgerStats, JobExportSnapshot, JobAll}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	svc      service.InviteTrackingService
	accounts repository.AccountRepository
	config   *config.Config
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(svc service.InviteTrackingService, accounts repository.AccountRepository, cfg *config.Config) *JobRunner {
	return &JobRunner{
		svc:      svc,
		accounts: accounts,
		config:   cfg,
	}
}

// Config returns the configuration the runner was built with
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// Run executes the named job once and reports whether the name was known.
func (jr *JobRunner) Run(name string) bool {
	switch name {
	case JobReportLedgerStats:
		jr.ReportLedgerStats()
	case JobExportSnapshot:
		jr.ExportSnapshot()
	case JobAll:
		jr.ReportLedgerStats()
		jr.ExportSnapshot()
	default:
		return false
	}
	return true
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	if err = jobFunc(); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err)
		return err
	}
	logger.Info("Job completed", "job", jobName)
	return nil
}
