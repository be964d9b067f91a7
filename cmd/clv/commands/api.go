package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/clv/backend/internal/api"
	"github.com/wonny/clv/backend/internal/api/handlers"
	"github.com/wonny/clv/backend/internal/export"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `CLV 리포트 조회용 REST API 서버를 시작합니다.

Endpoints:
  GET  /health                  - Health check
  GET  /api/clv/report          - 최신 리포트
  GET  /api/clv/segments        - 세그먼트 요약
  GET  /api/clv/customers/{id}  - 고객별 CLV
  POST /api/clv/refresh         - 파이프라인 재실행

Example:
  go run ./cmd/clv api
  go run ./cmd/clv api --port 8080 --warm`,
	RunE: runAPIServer,
}

var (
	apiPort   string
	apiWarm   bool
	apiExport string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
	apiCmd.Flags().BoolVar(&apiWarm, "warm", false, "시작 시 파이프라인 1회 실행")
	apiCmd.Flags().StringVar(&apiExport, "export", "", "refresh 결과 파일 저장 형식 (csv|xlsx|json)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== CLV API Server ===")

	// 1. Load config + logger
	cfg, log, err := loadEnv()
	if err != nil {
		return err
	}
	if apiPort != "" {
		cfg.Port = apiPort
	}

	var format export.Format
	if apiExport != "" {
		if format, err = export.ParseFormat(apiExport); err != nil {
			return err
		}
	}

	log.WithFields(map[string]interface{}{
		"port":   cfg.Port,
		"env":    cfg.Env,
		"driver": cfg.Database.Driver,
	}).Info("Initializing API server")

	// 2. Connect to warehouse
	source, closeSource, err := openSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	// 3. Report store (pipeline + Redis cache)
	store, redisClient, err := buildStore(cfg, log, source, format)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	if apiWarm {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		if _, err := store.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Initial refresh failed, serving without report")
		}
		cancel()
	}

	// 4. Router + server
	clvHandler := handlers.NewCLVHandler(store, log)
	limiter := api.NewLimiter(redisClient, cfg.APIRateLimit, log)
	router := api.NewRouter(clvHandler, limiter, log)
	server := api.New(cfg, log, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}
