package reservation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// RetentionWorker purges reservations that ended before the current UTC
// month on a fixed interval.
type RetentionWorker struct {
	service  *Service
	log      *zap.Logger
	interval time.Duration
	dryRun   bool
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewRetentionWorker(service *Service, logger *zap.Logger, interval time.Duration, dryRun bool) *RetentionWorker {
	return &RetentionWorker{
		service:  service,
		log:      logger,
		interval: interval,
		dryRun:   dryRun,
		stopCh:   make(chan struct{}),
	}
}

func (w *RetentionWorker) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("retention worker started",
		zap.Duration("interval", w.interval),
		zap.Bool("dry_run", w.dryRun))
}

// Stop signals the worker and waits for an in-flight purge to finish.
func (w *RetentionWorker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("retention worker stopped")
}

func (w *RetentionWorker) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.purge()
		}
	}
}

func (w *RetentionWorker) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := w.service.Purge(ctx, time.Time{}, w.dryRun); err != nil {
		w.log.Error("retention purge failed", zap.Error(err))
	}
}
