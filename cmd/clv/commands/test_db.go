package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/clv/backend/pkg/config"
	"github.com/wonny/clv/backend/pkg/database"
	"github.com/wonny/clv/backend/pkg/redis"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "데이터베이스 / Redis 연결 테스트",
	Long: `DB_DRIVER에 따라 PostgreSQL 또는 MySQL 연결을 테스트합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- 데이터베이스 연결 생성 및 Health Check
- REDIS_ENABLED=true이면 Redis Ping
- Connection Pool 통계 표시

Example:
  go run ./cmd/clv test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== CLV Database Connection Test ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	fmt.Printf("✅ Config loaded (ENV: %s, DRIVER: %s)\n", cfg.Env, cfg.Database.Driver)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var status *database.HealthStatus
	switch cfg.Database.Driver {
	case "mysql":
		db, err := database.OpenMySQL(cfg)
		if err != nil {
			return fmt.Errorf("❌ Failed to connect to database: %w", err)
		}
		defer db.Close()
		status, err = db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	default:
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("❌ Failed to connect to database: %w", err)
		}
		defer db.Close()
		status, err = db.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Health check failed: %w", err)
		}
	}

	fmt.Println("✅ Health Check Results:")
	fmt.Printf("   Healthy: %v\n", status.Healthy)
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Timestamp: %v\n\n", status.Timestamp.Format(time.RFC3339))

	fmt.Println("📊 Connection Pool Statistics:")
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Acquired Connections: %d\n", status.Stats.AcquiredConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)

	if cfg.Redis.Enabled {
		fmt.Println("\nTesting Redis...")
		client, err := redis.New(cfg)
		if err != nil {
			return fmt.Errorf("❌ Failed to connect to redis: %w", err)
		}
		defer client.Close()
		rtt, err := client.HealthCheck(ctx)
		if err != nil {
			return fmt.Errorf("❌ Redis health check failed: %w", err)
		}
		fmt.Printf("✅ Redis OK (%v, prefix %s)\n", rtt, client.Prefix())
	}

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a database URL for display
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
