package main

// Package main is the entry point for the physio threat engine service.
//
// Responsibilities:
//   - Load and validate configuration from YAML and PHYSIO_* environment variables
//   - Build the structured logger (stderr or rotated file)
//   - Open the record store (SQLite by default, PostgreSQL when configured)
//   - Construct the analytics engine from the analytics and simulation sections
//   - Serve the REST API and /metrics until SIGINT or SIGTERM
//   - Apply log level changes from config file edits without a restart
//
// The config file path comes from PHYSIO_CONFIG_FILE, falling back to
// /etc/physio/config.yaml. A missing file means defaults.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Aryiadm/physio-threat-engine/internal/analytics"
	"github.com/Aryiadm/physio-threat-engine/internal/config"
	"github.com/Aryiadm/physio-threat-engine/internal/db"
	"github.com/Aryiadm/physio-threat-engine/internal/logging"
	"github.com/Aryiadm/physio-threat-engine/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "physio-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mgr config.ConfigManager
		err error
	)
	if path := os.Getenv("PHYSIO_CONFIG_FILE"); path != "" {
		mgr, err = config.NewConfigManager(path)
	} else {
		mgr, err = config.NewConfigManagerWithDefaults()
	}
	if err != nil {
		return fmt.Errorf("create config manager: %w", err)
	}
	if err := mgr.Load(ctx); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if err := mgr.Validate(ctx); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg := mgr.Get(ctx)

	logger, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Close()

	store, err := db.Open(cfg.Database.Type, cfg.DatabaseDSN())
	if err != nil {
		logger.Error("Failed to open database", zap.String("type", cfg.Database.Type), zap.Error(err))
		return err
	}
	defer store.Close()

	engine, err := analytics.NewEngine(cfg.EngineConfig(), analytics.WithLogger(logger.Named("analytics")))
	if err != nil {
		logger.Error("Failed to create analytics engine", zap.Error(err))
		return err
	}

	srv, err := server.NewServer(cfg, engine, store, logger.Logger)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := srv.Start(); err != nil {
		logger.Error("Failed to start server", zap.Error(err))
		return err
	}

	go watchConfig(ctx, mgr, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Received shutdown signal", zap.String("signal", sig.String()))

	stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		logger.Error("Error stopping server", zap.Error(err))
		return err
	}
	logger.Info("Shutdown complete")
	return nil
}

// watchConfig applies reloadable settings. Only the log level changes live;
// analytics and server settings take effect on restart.
func watchConfig(ctx context.Context, mgr config.ConfigManager, logger *logging.Logger) {
	updates := mgr.Watch(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-updates:
			if err := logger.SetLevel(next.Logging.Level); err != nil {
				logger.Warn("Ignoring invalid log level", zap.String("level", next.Logging.Level), zap.Error(err))
				continue
			}
			logger.Info("Configuration reloaded", zap.String("log_level", next.Logging.Level))
		}
	}
}
