/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the academy engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment (config package)
  2. Build the zap logger for the environment
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (configurable timeout)
  3. Close database connection
  4. Exit

ENVIRONMENT:
  APP_ENV   local | dev | prod (controls log format)
  ADDR      listen address (default :8080)
  DB_PATH   SQLite path, ":memory:" for in-memory
  WALLET_GRACE_MAX, WALLET_BLOCKED_MAX   access-tier boundaries

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Configuration loading
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/warp/academy-engine/academy"
	"github.com/warp/academy-engine/api"
	"github.com/warp/academy-engine/config"
	"github.com/warp/academy-engine/store/sqlite"
)

func main() {
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	defer log.Sync()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	thresholds := academy.Thresholds{
		GraceMax:   cfg.Wallet.GraceMax,
		BlockedMax: cfg.Wallet.BlockedMax,
	}
	handler := api.NewHandler(store, thresholds, log)
	router := api.NewRouter(handler, log)

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Timeout.Read,
		WriteTimeout: cfg.Timeout.Write,
		IdleTimeout:  cfg.Timeout.Idle,
	}

	go func() {
		log.Info("server starting",
			zap.String("addr", cfg.Addr),
			zap.String("env", cfg.Env),
			zap.String("db", cfg.DBPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("server forced to shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}

// setupLogger picks a log format per environment: human-readable for
// local work, JSON for anything deployed.
func setupLogger(env string) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	switch env {
	case "prod":
		log, err = zap.NewProduction()
	default:
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	return log
}
