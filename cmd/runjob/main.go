// Command runjob runs one batch job immediately, for a single channel or every active channel.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/lock"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/metrics"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/services/scheduler"
	"github.com/xelth-com/magebridge/internal/storefront"
)

func main() {
	job := flag.String("job", "", "job to run: "+strings.Join(scheduler.Jobs(), ", "))
	channelID := flag.Uint("channel", 0, "channel id (default: all active channels)")
	flag.Parse()

	if *job == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	zlog := logger.New(cfg.Log)
	defer zlog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *job, *channelID, zlog); err != nil {
		zlog.Error("Run failed", zap.String("job", *job), zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, job string, channelID uint, zlog *zap.Logger) error {
	db, err := database.Connect(cfg.Database, zlog)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	locker, err := lock.New(ctx, cfg.Redis, zlog)
	if err != nil {
		return err
	}
	if c, ok := locker.(io.Closer); ok {
		defer c.Close()
	}

	// One-shot runs never start the tickers, so the schedule itself is irrelevant here.
	sched := scheduler.NewService(db, storefront.NewConnector(cfg.Storefront, zlog), locker,
		metrics.New(), &config.ScheduleConfig{}, zlog)

	if channelID == 0 {
		return sched.RunJob(ctx, job)
	}

	var ch models.Channel
	if err := db.WithContext(ctx).First(&ch, channelID).Error; err != nil {
		return fmt.Errorf("channel %d: %w", channelID, err)
	}
	return sched.RunChannelJob(ctx, &ch, job)
}
