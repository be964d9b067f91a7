package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/clv/backend/internal/export"
	"github.com/wonny/clv/backend/internal/scheduler"
	"github.com/wonny/clv/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `CLV 리포트 재계산 스케줄러를 시작하거나 작업을 실행합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/clv scheduler start
  go run ./cmd/clv scheduler run clv_report_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- clv_report_refresh: CLV_SCHEDULE (기본 매일 03:00), 결과는 CLV_EXPORT_DIR에 저장

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerFormat string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&schedulerFormat, "format", "xlsx", "export format (csv|xlsx|json)")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== CLV Scheduler ===")

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	fmt.Println("Registered jobs:")
	for name, stat := range sched.GetJobStats() {
		fmt.Printf("  - %s (%s)\n", name, stat.Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	fmt.Printf("Running job: %s\n", jobName)

	sched, cleanup, err := initScheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer cleanup()

	result, err := sched.RunJobSync(jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("❌ job %s failed: %s", jobName, result.Error)
	}

	fmt.Printf("✅ Job completed in %v\n", result.Duration)
	return nil
}

func initScheduler() (*scheduler.Scheduler, func(), error) {
	format, err := export.ParseFormat(schedulerFormat)
	if err != nil {
		return nil, nil, err
	}

	cfg, log, err := loadEnv()
	if err != nil {
		return nil, nil, err
	}

	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	store, redisClient, err := buildStore(cfg, log, source, format)
	if err != nil {
		closeSource()
		return nil, nil, err
	}
	cleanup := func() {
		_ = redisClient.Close()
		closeSource()
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewReportRefreshJob(store, cfg.CLV.Schedule, log)); err != nil {
		cleanup()
		return nil, nil, err
	}

	return sched, cleanup, nil
}
