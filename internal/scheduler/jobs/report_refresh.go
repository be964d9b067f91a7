package jobs

import (
	"context"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/pkg/logger"
)

// Refresher reruns the CLV analysis
type Refresher interface {
	Refresh(ctx context.Context) (*contracts.RunReport, error)
}

// ReportRefreshJob reruns the pipeline and replaces the cached report
type ReportRefreshJob struct {
	store    Refresher
	schedule string
	logger   *logger.Logger
}

// NewReportRefreshJob creates a new report refresh job
func NewReportRefreshJob(store Refresher, schedule string, log *logger.Logger) *ReportRefreshJob {
	if schedule == "" {
		schedule = "0 0 3 * * *" // 매일 03:00
	}
	return &ReportRefreshJob{
		store:    store,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *ReportRefreshJob) Name() string {
	return "clv_report_refresh"
}

// Schedule returns the cron schedule
func (j *ReportRefreshJob) Schedule() string {
	return j.schedule
}

// Run executes the refresh
func (j *ReportRefreshJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled CLV refresh")

	report, err := j.store.Refresh(ctx)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"customers": report.Metrics.Customers,
		"warnings":  len(report.Warnings),
	}).Info("Scheduled CLV refresh completed")

	return nil
}
