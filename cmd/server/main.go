/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Harmonia lesson engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (if present) and parse command-line flags
  2. Build the zap logger
  3. Initialize SQLite store
  4. Wire the scheduler service and settlement engine
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags take precedence over environment variables:
    -port / PORT        HTTP server port (default: 8080)
    -db / DATABASE_PATH SQLite database path (default: lessons.db)
                        Use ":memory:" for in-memory database
    -dev                Human-readable development logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/school.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/harmonia/lesson-engine/api"
	"github.com/harmonia/lesson-engine/payroll"
	"github.com/harmonia/lesson-engine/schedule"
	"github.com/harmonia/lesson-engine/store/sqlite"
)

func main() {
	// .env is optional; flags below override anything it sets.
	_ = godotenv.Load()

	port := flag.Int("port", envInt("PORT", 8080), "HTTP server port")
	dbPath := flag.String("db", envStr("DATABASE_PATH", "lessons.db"), "SQLite database path")
	dev := flag.Bool("dev", false, "human-readable development logging")
	flag.Parse()

	logger, err := buildLogger(*dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	scheduler := schedule.NewService(store)
	engine := payroll.NewEngine(store, store, store, sqlite.PaymentTx{Store: store}, logger)

	handler := api.NewHandler(store, scheduler, engine)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

func buildLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
