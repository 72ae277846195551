package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	redis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/strata/pkg/api"
	"github.com/platinummonkey/strata/pkg/audit"
	"github.com/platinummonkey/strata/pkg/config"
	"github.com/platinummonkey/strata/pkg/envfile"
	"github.com/platinummonkey/strata/pkg/observability"
	"github.com/platinummonkey/strata/pkg/resolver"
	"github.com/platinummonkey/strata/pkg/store"
)

var (
	environment = flag.String("environment", "", "Explicit environment override (highest-priority detection source)")
	seedFile    = flag.String("seed-file", "", "YAML seed file applied at startup (overrides STRATA_SEED_FILE)")
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
		fatal(logger, err, "failed to open database")
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxConns)
	db.SetMaxIdleConns(cfg.Database.MinConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.Database.Timeout)
	if err := db.PingContext(pingCtx); err != nil {
		cancel()
		fatal(logger, err, "failed to ping database")
	}
	cancel()

	st, err := store.NewSQLStore(db, cfg.Database.Driver, logger)
	if err != nil {
		fatal(logger, err, "failed to initialize store")
	}
	if err := st.EnsureSchema(context.Background()); err != nil {
		fatal(logger, err, "failed to ensure schema")
	}

	seed := *seedFile
	if seed == "" {
		seed = cfg.Database.SeedFile
	}
	if seed != "" {
		if err := store.Seed(context.Background(), st, seed); err != nil {
			fatal(logger, err, "failed to apply seed file")
		}
		logger.WithField("path", seed).Info("seed file applied")
	}

	emitter, redisClient := buildEmitters(cfg, db, logger)
	defer emitter.Close()

	envLookup, cleanup := buildEnvLookup(cfg, logger)
	defer cleanup()

	var metrics *observability.Metrics
	var metricsHandler http.Handler
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
		metricsHandler = metrics.Handler()
	}

	res := resolver.New(st, resolver.Options{
		TTL:             cfg.Resolver.CacheTTL,
		Emitter:         emitter,
		Env:             envLookup,
		DevEnvironments: cfg.Resolver.DevEnvironments,
		Logger:          logger,
		Metrics:         metrics,
	})

	override := *environment
	if override == "" {
		override = cfg.Resolver.EnvironmentOverride
	}
	if override != "" {
		res.Detector().SetOverride(override)
		logger.WithField("environment", override).Info("environment override active")
	}

	health := observability.NewHealthChecker(db, redisClient)
	healthMux := http.NewServeMux()
	healthMux.Handle("/healthz", health.Handler())

	server := api.NewServer(api.Options{
		Resolver:       res,
		Store:          st,
		Logger:         logger,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		HealthHandler:  health.Handler(),
	})

	apiServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.HealthPort),
		Handler: healthMux,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.WithField("addr", apiServer.Addr).Info("starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.WithField("addr", healthServer.Addr).Info("starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		healthServer.Shutdown(shutdownCtx)
		return apiServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		fatal(logger, err, "server error")
	}
	logger.Info("shutdown complete")
}

// buildEmitters assembles the configured audit sinks into one fan-out
// emitter. The log sink is always present; DB and Redis sinks are optional
// and a failed Redis connection degrades to the remaining sinks.
func buildEmitters(cfg *config.Config, db *sql.DB, logger *observability.Logger) (audit.Emitter, *redis.Client) {
	emitters := []audit.Emitter{audit.NewLogEmitter(logger)}

	if cfg.Audit.DBEnabled {
		dbEmitter, err := audit.NewDBEmitter(db)
		if err != nil {
			fatal(logger, err, "failed to initialize audit table")
		}
		emitters = append(emitters, dbEmitter)
	}

	var redisClient *redis.Client
	if cfg.Audit.RedisURL != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Audit.RedisURL,
			Password: cfg.Audit.RedisPassword,
		})
		redisEmitter, err := audit.NewRedisEmitter(client, cfg.Audit.RedisStream, cfg.Audit.RedisMaxLen)
		if err != nil {
			logger.WithError(err).Warn("redis audit sink unavailable; continuing without it")
			client.Close()
		} else {
			emitters = append(emitters, redisEmitter)
			redisClient = client
		}
	}

	return audit.NewMultiEmitter(emitters...), redisClient
}

// buildEnvLookup returns the environment-variable source for the resolver,
// overlaid with the dev overrides file when one is configured.
func buildEnvLookup(cfg *config.Config, logger *observability.Logger) (resolver.EnvLookup, func()) {
	if cfg.Resolver.OverridesFile == "" {
		return resolver.OSEnv{}, func() {}
	}

	overlay, err := envfile.Load(cfg.Resolver.OverridesFile, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to load overrides file; using process environment")
		return resolver.OSEnv{}, func() {}
	}
	if err := overlay.Watch(); err != nil {
		logger.WithError(err).Warn("failed to watch overrides file; hot reload disabled")
	}
	logger.WithField("path", cfg.Resolver.OverridesFile).Info("dev overrides file loaded")
	return overlay, func() { overlay.Close() }
}

func fatal(logger *observability.Logger, err error, message string) {
	logger.WithError(err).Error(message)
	os.Exit(1)
}
