package report

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wonny/clv/backend/internal/clvconfig"
	"github.com/wonny/clv/backend/internal/contracts"
	"github.com/wonny/clv/backend/internal/export"
	"github.com/wonny/clv/backend/internal/pipeline"
	"github.com/wonny/clv/backend/pkg/logger"
	"github.com/wonny/clv/backend/pkg/redis"
)

// ErrNoReport is returned before the first successful run
var ErrNoReport = errors.New("no report available")

// Runner runs one analysis
type Runner interface {
	Run(ctx context.Context, cfg *clvconfig.Config) (*pipeline.RunResult, error)
}

// Store keeps the latest run report in memory and in Redis
// ⭐ SSOT: 최신 리포트 보관은 이 구조체에서만
type Store struct {
	runner Runner
	config *clvconfig.Config
	cache  *redis.Cache
	ttl    time.Duration
	logger *logger.Logger

	exporter *export.Exporter // nil이면 파일 저장 안 함
	format   export.Format

	mu     sync.RWMutex
	latest *contracts.RunReport

	refreshMu sync.Mutex // 동시에 한 번만 실행
}

// NewStore creates a new report store
func NewStore(runner Runner, cfg *clvconfig.Config, cache *redis.Cache, ttl time.Duration, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		runner: runner,
		config: cfg,
		cache:  cache,
		ttl:    ttl,
		logger: log,
	}
}

// SetExporter writes every refreshed result to files in the given format
func (s *Store) SetExporter(e *export.Exporter, format export.Format) {
	s.exporter = e
	s.format = format
}

// Latest returns the most recent report: memory first, then Redis
func (s *Store) Latest(ctx context.Context) (*contracts.RunReport, error) {
	s.mu.RLock()
	latest := s.latest
	s.mu.RUnlock()
	if latest != nil {
		return latest, nil
	}

	if s.cache != nil {
		var cached contracts.RunReport
		found, err := s.cache.Get(ctx, redis.LatestReportKey(), &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to read cached report")
		}
		if found {
			s.mu.Lock()
			if s.latest == nil {
				s.latest = &cached
			}
			latest = s.latest
			s.mu.Unlock()
			return latest, nil
		}
	}

	return nil, ErrNoReport
}

// Refresh runs the pipeline and replaces the latest report.
// A failed run keeps the previous report.
func (s *Store) Refresh(ctx context.Context) (*contracts.RunReport, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	result, err := s.runner.Run(ctx, s.config)
	if err != nil {
		return nil, fmt.Errorf("refresh report: %w", err)
	}
	report := result.Report

	s.mu.Lock()
	s.latest = report
	s.mu.Unlock()

	if s.cache != nil {
		for _, key := range []string{redis.ReportKey(report.ConfigHash), redis.LatestReportKey()} {
			if err := s.cache.Set(ctx, key, report, s.ttl); err != nil {
				s.logger.WithError(err).WithField("key", key).Warn("Failed to cache report")
			}
		}
	}

	if s.exporter != nil {
		paths, err := s.exporter.Export(result, s.format)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to export report")
		} else {
			s.logger.WithField("files", paths).Debug("Report exported")
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"run_id":    report.RunID,
		"customers": report.Metrics.Customers,
	}).Info("Report refreshed")

	return report, nil
}
