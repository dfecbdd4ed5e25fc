package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/buildinfo"
	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/handlers"
	"github.com/xelth-com/magebridge/internal/lock"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/metrics"
	"github.com/xelth-com/magebridge/internal/services/scheduler"
	"github.com/xelth-com/magebridge/internal/storefront"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := logger.New(cfg.Log)
	defer zlog.Sync()

	// 2. Initialize database (embedded when no external host is configured)
	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}

	// 3. Synchronize schema
	if err := db.Migrate(); err != nil {
		zlog.Warn("Migration warning", zap.Error(err))
	} else {
		zlog.Info("Schema synchronized")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	locker, err := lock.New(ctx, cfg.Redis, zlog)
	cancel()
	if err != nil {
		zlog.Fatal("Failed to initialize run locks", zap.Error(err))
	}

	scheduleCfg, err := config.LoadScheduleConfig()
	if err != nil {
		zlog.Fatal("Failed to load schedule", zap.Error(err))
	}

	// 4. Batch scheduler
	m := metrics.New()
	connect := storefront.NewConnector(cfg.Storefront, zlog)
	sched := scheduler.NewService(db, connect, locker, m, scheduleCfg, zlog)
	sched.Start()

	// 5. HTTP router
	router := handlers.NewRouter(handlers.Deps{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Connect:   connect,
		Scheduler: sched,
		Metrics:   m,
		Log:       zlog,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		zlog.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
			zap.String("version", buildinfo.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sig := <-shutdown
	zlog.Info("Shutting down", zap.String("signal", sig.String()))

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Waits for in-flight runs
	sched.Stop()

	if c, ok := locker.(io.Closer); ok {
		_ = c.Close()
	}

	if err := db.Close(); err != nil {
		zlog.Error("Database close error", zap.Error(err))
	}

	zlog.Info("Shutdown complete")
}
