package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/cpa03/basefly-sub001/internal/config"
	"github.com/cpa03/basefly-sub001/internal/janitor"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConfig := store.DefaultConfig(cfg.DatabaseURL)
	dbConfig.MaxConnections = 2
	dbConfig.MinConnections = 1

	pool, err := store.NewPool(ctx, dbConfig)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	st := store.New(pool)
	defer st.Close()

	j := janitor.NewJanitor(&janitor.Config{
		CheckInterval: cfg.JanitorInterval,
		Retention:     cfg.ClusterRetention,
	}, st.Clusters, logger)

	if err := j.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("janitor stopped", zap.Error(err))
	}

	logger.Info("janitor exited")
}
