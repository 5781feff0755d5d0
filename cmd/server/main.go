// @title Net Worth API
// @version 1.0
// @description Investment ledger and net-worth history service.
// @BasePath /api
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tropicaldog17/networth/internal/app"
	"github.com/tropicaldog17/networth/internal/config"
	"github.com/tropicaldog17/networth/internal/db"
	"github.com/tropicaldog17/networth/internal/logger"
)

func main() {
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load("config.toml")
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	database, err := db.Connect(db.NewConfig())
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Health(); err != nil {
		log.Fatal("Database health check failed", zap.Error(err))
	}
	applied, err := database.Migrate(log.Named("migrate"))
	if err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connection established",
		zap.String("driver", database.Driver),
		zap.Int("migrations_applied", applied))

	svc := app.NewServices(cfg, database, nil, log)
	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           app.NewHandler(svc, database, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("system_currency", cfg.SystemCurrency),
			zap.Bool("recompute_on_write", cfg.Ledger.RecomputeOnWrite))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GetShutdownTimeout())
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("Graceful shutdown failed", zap.Error(err))
		return
	}
	log.Info("Server stopped")
}
