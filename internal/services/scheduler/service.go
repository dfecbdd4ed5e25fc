// Package scheduler runs the storefront batch jobs of every active channel on a timer.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/magebridge/internal/config"
	"github.com/xelth-com/magebridge/internal/database"
	"github.com/xelth-com/magebridge/internal/exceptions"
	"github.com/xelth-com/magebridge/internal/export"
	"github.com/xelth-com/magebridge/internal/logger"
	"github.com/xelth-com/magebridge/internal/lock"
	"github.com/xelth-com/magebridge/internal/metrics"
	"github.com/xelth-com/magebridge/internal/models"
	"github.com/xelth-com/magebridge/internal/orders"
	"github.com/xelth-com/magebridge/internal/storefront"
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrBusy       = errors.New("job is already running for this channel")
)

// counts is what one job run did, keyed by metrics result
type counts map[string]int

type jobFunc func(ctx context.Context, s *Service, api storefront.API, ch *models.Channel) (counts, error)

var jobs = map[string]jobFunc{
	config.JobImportOrders: func(ctx context.Context, s *Service, api storefront.API, ch *models.Channel) (counts, error) {
		im := orders.NewImporter(s.db.DB, api, s.sink, s.log)
		sum, err := im.ImportOrders(ctx, ch)
		return counts{metrics.ResultImported: sum.Imported, metrics.ResultFailed: sum.Failed}, err
	},
	config.JobExportOrderState: exportJob((*export.Exporter).OrderStatus),
	config.JobExportShipments:  exportJob((*export.Exporter).Shipments),
	config.JobExportInventory:  exportJob((*export.Exporter).Inventory),
	config.JobExportTierPrices: exportJob((*export.Exporter).TierPrices),
}

func exportJob(run func(*export.Exporter, context.Context, *models.Channel) (export.Summary, error)) jobFunc {
	return func(ctx context.Context, s *Service, api storefront.API, ch *models.Channel) (counts, error) {
		sum, err := run(export.New(s.db.DB, api, s.log), ctx, ch)
		return counts{
			metrics.ResultExported: sum.Exported,
			metrics.ResultSkipped:  sum.Skipped,
			metrics.ResultFailed:   sum.Failed,
		}, err
	}
}

// Jobs returns the names of every known job
func Jobs() []string {
	names := make([]string, 0, len(jobs))
	for name := range jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Service schedules batch jobs
type Service struct {
	db      *database.DB
	connect storefront.Connector
	locker  lock.Locker
	metrics *metrics.Metrics
	sink    *exceptions.Sink
	cfg     *config.ScheduleConfig
	log     *zap.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewService creates a scheduler. m may be nil.
func NewService(db *database.DB, connect storefront.Connector, locker lock.Locker, m *metrics.Metrics, cfg *config.ScheduleConfig, log *zap.Logger) *Service {
	log = log.Named("scheduler")
	return &Service{
		db:      db,
		connect: connect,
		locker:  locker,
		metrics: m,
		sink:    exceptions.NewSink(db.DB, log),
		cfg:     cfg,
		log:     log,
		stop:    make(chan struct{}),
	}
}

// Start launches one ticker per enabled job
func (s *Service) Start() {
	if !s.cfg.Enabled {
		s.log.Info("Scheduler disabled")
		return
	}

	for _, name := range Jobs() {
		jc, ok := s.cfg.Jobs[name]
		if !ok || !jc.Enabled {
			continue
		}
		s.wg.Add(1)
		go s.loop(name, jc.Every())
	}
	s.log.Info("Scheduler started")
}

func (s *Service) loop(job string, every time.Duration) {
	defer s.wg.Done()

	if s.cfg.RunOnStartup {
		s.tick(job)
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(job)
		case <-s.stop:
			return
		}
	}
}

func (s *Service) tick(job string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.RunJob(ctx, job); err != nil {
		s.log.Error("Scheduled job failed", zap.String("job", job), zap.Error(err))
	}
}

// Stop cancels running jobs and waits for the tickers to exit
func (s *Service) Stop() {
	close(s.stop)
	s.wg.Wait()
	s.log.Info("Scheduler stopped")
}

// RunJob runs job for every active channel. A failing channel does not stop the others.
func (s *Service) RunJob(ctx context.Context, job string) error {
	if _, ok := jobs[job]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	var channels []models.Channel
	if err := s.db.WithContext(ctx).Where("active = ?", true).Order("id").Find(&channels).Error; err != nil {
		return fmt.Errorf("failed to load channels: %w", err)
	}

	var errs []error
	for i := range channels {
		if err := s.RunChannelJob(ctx, &channels[i], job); err != nil && !errors.Is(err, ErrBusy) {
			errs = append(errs, fmt.Errorf("channel %d: %w", channels[i].ID, err))
		}
	}
	return errors.Join(errs...)
}

// RunChannelJob runs job once for ch under a run lock and a fresh run id
func (s *Service) RunChannelJob(ctx context.Context, ch *models.Channel, job string) error {
	run, ok := jobs[job]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job)
	}

	release, ok, err := s.locker.TryLock(ctx, fmt.Sprintf("%s:%d", job, ch.ID))
	if err != nil {
		return err
	}
	if !ok {
		s.log.Info("Job already running, skipped", zap.String("job", job), zap.Uint("channel_id", ch.ID))
		return ErrBusy
	}
	defer release()

	log := s.log.With(zap.String("job", job), zap.Uint("channel_id", ch.ID))
	ctx, log = logger.WithRunID(ctx, log, uuid.NewString())

	started := time.Now()
	result, err := s.execute(ctx, run, ch)
	channel := strconv.FormatUint(uint64(ch.ID), 10)
	s.metrics.ObserveRun(job, channel, time.Since(started), err)
	for name, n := range result {
		s.metrics.AddRecords(job, channel, name, n)
	}

	if err != nil {
		log.Error("Job failed", zap.Error(err))
		return err
	}
	log.Info("Job finished", zap.Duration("elapsed", time.Since(started)), zap.Any("records", result))
	return nil
}

func (s *Service) execute(ctx context.Context, run jobFunc, ch *models.Channel) (counts, error) {
	if err := ch.Validate(); err != nil {
		return nil, err
	}
	api, err := s.connect(ch)
	if err != nil {
		return nil, err
	}
	if c, ok := api.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				logger.FromContext(ctx, s.log).Warn("Failed to end storefront session", zap.Error(err))
			}
		}()
	}
	return run(ctx, s, api, ch)
}
