package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	analysisFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clv",
	Short: "고객 생애 가치(CLV/CLTV) 분석",
	Long: `CLV Unified CLI

거래 데이터로부터 고객 생애 가치를 계산합니다.
5단계 파이프라인: 데이터 로드 → 고객 요약 → 특성 추출 → 모델 적합 → 세그먼트.

Usage:
  go run ./cmd/clv [command]

Examples:
  go run ./cmd/clv run --format xlsx
  go run ./cmd/clv api
  go run ./cmd/clv scheduler start
  go run ./cmd/clv config
  go run ./cmd/clv test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&analysisFile, "analysis", "", "analysis YAML (default: CLV_CONFIG, then built-in defaults)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
