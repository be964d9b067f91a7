package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/export"
	"github.com/wonny/clv/backend/internal/pipeline"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "CLV 파이프라인 1회 실행",
	Long: `거래 데이터를 읽어 S0-S4 파이프라인을 실행하고 결과를 파일로 저장합니다.

저장되는 파일:
- csv:  summary / predictions / segments / predicted_segments 각각
- xlsx: 시트 4개를 가진 clv_report.xlsx
- json: 타임스탬프가 붙은 전체 리포트

Example:
  go run ./cmd/clv run
  go run ./cmd/clv run --format xlsx --export-dir out
  go run ./cmd/clv run --analysis configs/clv.yaml`,
	RunE: runPipeline,
}

var (
	runFormat    string
	runExportDir string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFormat, "format", "csv", "export format (csv|xlsx|json)")
	runCmd.Flags().StringVar(&runExportDir, "export-dir", "", "output directory (default: CLV_EXPORT_DIR)")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(runFormat)
	if err != nil {
		return err
	}

	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	analysis, err := loadAnalysis(cfg)
	if err != nil {
		return err
	}

	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stages := contracts.AllStages()
	bar := progressbar.Default(int64(len(stages)), "CLV")

	runner := pipeline.NewRunner(source, log)
	runner.OnStage(func(stage contracts.Stage) {
		bar.Describe(stage.ShortName() + " " + stage.Description())
		_ = bar.Add(1)
	})

	result, err := runner.Run(ctx, analysis)
	if err != nil {
		_ = bar.Exit()
		return fmt.Errorf("pipeline: %w", err)
	}
	_ = bar.Finish()

	dir := runExportDir
	if dir == "" {
		dir = cfg.CLV.ExportDir
	}
	paths, err := export.NewExporter(dir, log).Export(result, format)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}

	report := result.Report
	fmt.Printf("\n✅ Run %s completed in %v\n", report.RunID, result.Duration)
	fmt.Printf("   Customers: %d\n", report.Metrics.Customers)
	fmt.Printf("   Transactions: %d\n", report.Metrics.Transactions)
	for _, w := range report.Warnings {
		fmt.Printf("   ⚠️  %s\n", w)
	}
	fmt.Println("\nSegments (CLV):")
	printSegments(os.Stdout, report.Segments)
	fmt.Println("\nFiles:")
	for _, p := range paths {
		fmt.Printf("  - %s\n", p)
	}

	return nil
}

// printSegments writes one line per segment with mean/sum of every numeric column, 컬럼명 정렬
func printSegments(w io.Writer, stats []contracts.SegmentStats) {
	for _, seg := range stats {
		names := make([]string, 0, len(seg.Mean))
		for name := range seg.Mean {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Fprintf(w, "  %-4s count=%d\n", seg.Label, seg.Count)
		for _, name := range names {
			fmt.Fprintf(w, "       %-24s mean=%.2f sum=%.2f\n", name, seg.Mean[name], seg.Sum[name])
		}
	}
}
