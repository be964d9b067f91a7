package commands

import (
	"fmt"

	"github.com/wonny/clv/backend/internal/clvconfig"
	"github.com/wonny/clv/backend/internal/export"
	"github.com/wonny/clv/backend/internal/pipeline"
	"github.com/wonny/clv/backend/internal/report"
	"github.com/wonny/clv/backend/internal/s0_data"
	"github.com/wonny/clv/backend/pkg/config"
	"github.com/wonny/clv/backend/pkg/database"
	"github.com/wonny/clv/backend/pkg/logger"
	"github.com/wonny/clv/backend/pkg/redis"
)

// loadEnv loads environment config and the logger
func loadEnv() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, logger.New(cfg), nil
}

// loadAnalysis reads the analysis parameters: --analysis flag, then CLV_CONFIG
func loadAnalysis(cfg *config.Config) (*clvconfig.Config, error) {
	path := analysisFile
	if path == "" {
		path = cfg.CLV.ConfigPath
	}
	analysis, _, err := clvconfig.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load analysis config: %w", err)
	}
	return analysis, nil
}

// openSource connects to the warehouse selected by DB_DRIVER
func openSource(cfg *config.Config, log *logger.Logger) (s0_data.Source, func(), error) {
	switch cfg.Database.Driver {
	case "mysql":
		db, err := database.OpenMySQL(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to mysql: %w", err)
		}
		log.Info("Connected to MySQL")
		return s0_data.NewSQLRepository(db.DB), func() { db.Close() }, nil
	default:
		db, err := database.New(cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return s0_data.NewRepository(db.Pool), db.Close, nil
	}
}

// buildStore wires the pipeline runner, Redis cache and exporter into a report store
func buildStore(cfg *config.Config, log *logger.Logger, source s0_data.Source, format export.Format) (*report.Store, *redis.Client, error) {
	analysis, err := loadAnalysis(cfg)
	if err != nil {
		return nil, nil, err
	}

	redisClient, err := redis.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	if redisClient.Enabled() {
		log.WithField("prefix", redisClient.Prefix()).Info("Redis report cache enabled")
	}

	runner := pipeline.NewRunner(source, log)
	store := report.NewStore(runner, analysis, redis.NewCache(redisClient), cfg.Redis.ReportTTL, log)
	if format != "" {
		store.SetExporter(export.NewExporter(cfg.CLV.ExportDir, log), format)
	}

	return store, redisClient, nil
}
