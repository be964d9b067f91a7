package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/wonny/clv/backend/pkg/config"
)

// SQLDB wraps a database/sql handle for MySQL/MariaDB warehouses
type SQLDB struct {
	DB *sql.DB
}

// OpenMySQL opens and pings a MySQL connection.
// Accepts mysql:// and mariadb:// URLs as well as native driver DSNs.
func OpenMySQL(cfg *config.Config) (*SQLDB, error) {
	dsn, err := ToMySQLDSN(cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql: %w", err)
	}

	maxConns := cfg.Database.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	if cfg.Database.MaxConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.Database.MaxConnLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql: %w", err)
	}

	return &SQLDB{DB: db}, nil
}

// ToMySQLDSN converts mysql:// or mariadb:// URLs into the driver DSN format.
// parseTime=true is required so DATE/DATETIME columns scan into time.Time.
func ToMySQLDSN(dsn string) (string, error) {
	if !strings.HasPrefix(dsn, "mariadb://") && !strings.HasPrefix(dsn, "mysql://") {
		return dsn, nil
	}

	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse dsn: %w", err)
	}

	var user, pass string
	if u.User != nil {
		user = u.User.Username()
		pass, _ = u.User.Password()
	}
	host := u.Host
	name := strings.TrimPrefix(u.Path, "/")
	if user == "" || host == "" || name == "" {
		return "", fmt.Errorf("incomplete dsn: user, host and database are required")
	}

	return fmt.Sprintf("%s:%s@tcp(%s)/%s?parseTime=true&loc=UTC&interpolateParams=true",
		user, pass, host, name), nil
}

// Close closes the underlying handle
func (s *SQLDB) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// HealthCheck pings MySQL and reports open connection counts
func (s *SQLDB) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{
		Driver:    "mysql",
		Timestamp: time.Now(),
	}

	start := time.Now()
	if err := s.DB.PingContext(ctx); err != nil {
		status.Error = err.Error()
		return status, err
	}
	status.ResponseTime = time.Since(start)

	stats := s.DB.Stats()
	status.Stats = PoolStats{
		AcquiredConns: int32(stats.InUse),
		IdleConns:     int32(stats.Idle),
		MaxConns:      int32(stats.MaxOpenConnections),
		TotalConns:    int32(stats.OpenConnections),
	}
	status.Healthy = true

	return status, nil
}
