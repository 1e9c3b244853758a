package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cpa03/basefly-sub001/internal/api"
	"github.com/cpa03/basefly-sub001/internal/auth"
	"github.com/cpa03/basefly-sub001/internal/config"
	"github.com/cpa03/basefly-sub001/internal/logging"
	"github.com/cpa03/basefly-sub001/internal/metrics"
	"github.com/cpa03/basefly-sub001/internal/plan"
	"github.com/cpa03/basefly-sub001/internal/policy"
	"github.com/cpa03/basefly-sub001/internal/schema"
	"github.com/cpa03/basefly-sub001/internal/store"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// The logger depends on config, so this is the one unstructured failure
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.UsingDevSecret {
		logger.Warn("using development JWT secret; set JWT_SECRET outside development")
	}

	// Initialize store
	logger.Info("connecting to database")
	dbConfig := store.DefaultConfig(cfg.DatabaseURL)
	dbConfig.MaxConnections = cfg.DBMaxConns
	dbConfig.MinConnections = cfg.DBMinConns

	pool, err := store.NewPool(context.Background(), dbConfig)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	st := store.New(pool)
	defer st.Close()

	// Initialize plan catalogue
	registry, err := plan.NewRegistry(plan.NewLoader(cfg.PlansFile))
	if err != nil {
		logger.Fatal("failed to load plans", zap.String("path", cfg.PlansFile), zap.Error(err))
	}
	logger.Info("loaded plans", zap.Int("count", registry.Count()))

	serverConfig := api.NewServerConfig(cfg)
	server, err := api.NewServer(serverConfig, api.Dependencies{
		Backend:   api.NewBackend(st),
		Validator: schema.New(),
		Plans:     registry,
		Policy:    policy.NewEngine(registry),
		Auth:      auth.NewAuth(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL),
		Metrics:   metrics.NewCollector(nil),
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create server", zap.Error(err))
	}

	logger.Info("server configured",
		zap.String("env", cfg.Env),
		zap.Int("port", serverConfig.Port),
		zap.Strings("cors_origins", serverConfig.AllowedOrigins),
		zap.Int("admins", len(cfg.AdminEmails)),
	)

	// Start server in a goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
