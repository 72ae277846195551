package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/config"
	"github.com/platinummonkey/strata/pkg/observability"
)

var (
	schedule = flag.String("schedule", "30 0 * * *", "Cron schedule for audit retention sweeps (default: 00:30 UTC)")
	runOnce  = flag.Bool("run-once", false, "Run one retention sweep and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("failed to open database")
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("failed to ping database")
		os.Exit(1)
	}

	emitter, err := audit.NewDBEmitter(db)
	if err != nil {
		logger.WithError(err).Error("failed to initialize audit table")
		os.Exit(1)
	}

	retention := time.Duration(cfg.Audit.RetentionDays) * 24 * time.Hour

	if *runOnce {
		if err := sweep(emitter, retention, logger); err != nil {
			os.Exit(1)
		}
		return
	}

	c := cron.New()
	_, err = c.AddFunc(*schedule, func() {
		sweep(emitter, retention, logger)
	})
	if err != nil {
		logger.WithError(err).Error("failed to schedule retention sweep")
		os.Exit(1)
	}

	c.Start()
	logger.WithFields(map[string]interface{}{
		"schedule":       *schedule,
		"retention_days": cfg.Audit.RetentionDays,
	}).Info("audit retention janitor started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	<-c.Stop().Done()
	logger.Info("retention janitor stopped")
}

// sweep deletes audit events older than the retention window
func sweep(emitter *audit.DBEmitter, retention time.Duration, logger *observability.Logger) error {
	cutoff := time.Now().UTC().Add(-retention)

	deleted, err := emitter.DeleteOlderThan(context.Background(), cutoff)
	if err != nil {
		logger.WithError(err).Error("retention sweep failed")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"deleted": deleted,
		"cutoff":  cutoff.Format(time.RFC3339),
	}).Info("retention sweep completed")
	return nil
}
