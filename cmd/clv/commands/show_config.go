package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/clv/backend/internal/clvconfig"
	"github.com/wonny/clv/backend/pkg/config"
)

// configCmd prints the effective analysis parameters
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "분석 설정 확인",
	Long: `기본값과 YAML을 병합한 최종 분석 설정과 해시를 출력합니다.
같은 해시는 같은 분석 결과를 의미합니다 (Redis 캐시 키).

Example:
  go run ./cmd/clv config --analysis configs/clv.yaml`,
	RunE: showConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func showConfig(cmd *cobra.Command, args []string) error {
	// DATABASE_URL 없이도 동작하도록 env 검증 실패는 무시
	cfg, err := config.Load()
	if err != nil {
		cfg = &config.Config{}
	}

	analysis, err := loadAnalysis(cfg)
	if err != nil {
		return err
	}

	data, err := clvconfig.YAML(analysis)
	if err != nil {
		return err
	}
	hash, err := clvconfig.Hash(analysis)
	if err != nil {
		return err
	}

	fmt.Print(string(data))
	fmt.Printf("\n# hash: %s\n", hash)
	return nil
}
