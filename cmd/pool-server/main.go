// Package main provides the entry point for the banker pool API server.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/banker-pool/internal/api"
	"github.com/yourusername/banker-pool/internal/app"
	"github.com/yourusername/banker-pool/internal/config"
	"github.com/yourusername/banker-pool/internal/health"
	"github.com/yourusername/banker-pool/internal/logger"
	"github.com/yourusername/banker-pool/internal/metrics"
	"github.com/yourusername/banker-pool/internal/scheduler"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Load AWS secrets if enabled
	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		region := os.Getenv("AWS_REGION")
		secretName := os.Getenv("AWS_SECRET_NAME")
		if region == "" || secretName == "" {
			log.Fatalf("AWS_REGION and AWS_SECRET_NAME environment variables must be set when AWS_SECRETS_ENABLED is true")
		}
		secretsCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := config.LoadSecretsFromAWS(secretsCtx, cfg, region, secretName)
		cancel()
		if err != nil {
			log.Fatalf("Failed to load secrets: %v", err)
		}
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Set up logging
	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	appLog.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"log_level":   cfg.App.LogLevel,
		"version":     Version,
		"commit":      GitCommit,
	}).Info("Banker pool server starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics.InitRegistry()

	pool, err := app.New(ctx, cfg, appLog)
	if err != nil {
		appLog.WithError(err).Fatal("Failed to initialize services")
	}
	defer pool.Close()

	// Health probes
	var healthServer *health.Server
	if cfg.Health.Enabled {
		checks := map[string]health.Pinger{"store": health.StoreCheck(pool.Store)}
		if pool.DB != nil {
			checks["database"] = pool.DB
		}
		healthServer = health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     Version,
			Commit:      GitCommit,
			Port:        strconv.Itoa(cfg.Health.Port),
			Logger:      appLog,
			Checks:      checks,
		})
		if err := healthServer.Start(ctx); err != nil {
			appLog.WithError(err).Fatal("Failed to start health server")
		}
	}

	// Reconciliation audit
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.NewScheduler(pool.Reconciler, appLog)
		if err := sched.ScheduleReconciliation(cfg.Scheduler.ReconcileCron); err != nil {
			appLog.WithError(err).Fatal("Failed to schedule reconciliation")
		}
		if err := sched.Start(); err != nil {
			appLog.WithError(err).Fatal("Failed to start scheduler")
		}
	}

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	apiServer := api.NewServer(api.Config{
		Address:      cfg.APIAddress(),
		ReadTimeout:  time.Duration(cfg.API.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.API.WriteTimeoutSeconds) * time.Second,
		MetricsPath:  metricsPath,
		Release:      cfg.IsProduction(),
		Days:         pool.Days,
		Leaderboard:  pool.Leaderboard,
		Reconciler:   pool.Reconciler,
		Catalog:      pool.Catalog,
		Logger:       appLog,
	})
	if err := apiServer.Start(ctx); err != nil {
		appLog.WithError(err).Fatal("Failed to start API server")
	}

	if healthServer != nil {
		healthServer.SetReady(true)
	}
	appLog.WithFields(logrus.Fields{
		"address":   cfg.APIAddress(),
		"storage":   cfg.Storage.Backend,
		"scheduler": cfg.Scheduler.Enabled,
	}).Info("Banker pool server is running")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	appLog.WithField("signal", sig).Info("Shutdown signal received")

	if healthServer != nil {
		healthServer.SetReady(false)
	}
	if sched != nil {
		if err := sched.Stop(); err != nil {
			appLog.WithError(err).Error("Error stopping scheduler")
		}
	}
	if err := apiServer.Shutdown(); err != nil {
		appLog.WithError(err).Error("Error during API server shutdown")
	}
	cancel()

	appLog.Info("Banker pool server shut down successfully")
}
