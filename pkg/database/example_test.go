package database_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/wonny/clv/backend/pkg/config"
	"github.com/wonny/clv/backend/pkg/database"
)

// Example demonstrates connecting to the sales warehouse and checking its health
func Example() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		status *database.HealthStatus
		hcErr  error
	)
	switch cfg.Database.Driver {
	case "mysql":
		db, err := database.OpenMySQL(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to mysql: %v", err)
		}
		defer db.Close()
		status, hcErr = db.HealthCheck(ctx)
	default:
		db, err := database.New(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to postgres: %v", err)
		}
		defer db.Close()
		status, hcErr = db.HealthCheck(ctx)
	}
	if hcErr != nil {
		log.Fatalf("Health check failed: %v", hcErr)
	}

	fmt.Printf("%s healthy=%v in %v\n", status.Driver, status.Healthy, status.ResponseTime)
}
