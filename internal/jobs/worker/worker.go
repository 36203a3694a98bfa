package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/services"
)

type Config struct {
	Workers     int
	QueueSize   int
	TurnTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers < 1 {
		c.Workers = 4
	}
	if c.QueueSize < 1 {
		c.QueueSize = 256
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 10 * time.Second
	}
	return c
}

// Dispatcher runs extraction off the request path on a bounded queue. A full
// queue drops the turn instead of blocking the caller.
type Dispatcher struct {
	log        *logger.Logger
	extraction services.ExtractionService
	metrics    *observability.Metrics
	cfg        Config

	mu      sync.RWMutex
	queue   chan services.Turn
	started bool
	closed  bool
	wg      sync.WaitGroup
}

func NewDispatcher(baseLog *logger.Logger, extraction services.ExtractionService, metrics *observability.Metrics, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		log:        baseLog.With("component", "ExtractionDispatcher"),
		extraction: extraction,
		metrics:    metrics,
		cfg:        cfg,
		queue:      make(chan services.Turn, cfg.QueueSize),
	}
}

// Start launches the worker pool. Turns are processed under ctx; cancelling it
// aborts in-flight work.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	d.log.Info("Starting extraction worker pool", "workers", d.cfg.Workers, "queue_size", d.cfg.QueueSize)
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.runLoop(ctx, i+1)
	}
}

// Submit enqueues a turn without blocking. It returns false when the queue is
// full or the dispatcher is stopped.
func (d *Dispatcher) Submit(turn services.Turn) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- turn:
		d.metrics.SetExtractionQueueDepth(len(d.queue))
		return true
	default:
		d.metrics.ObserveExtractionTurn("dropped", 0)
		d.log.Warn("extraction queue full, dropping turn", "external_user_id", turn.ExternalUserID, "queue_size", d.cfg.QueueSize)
		return false
	}
}

// Stop closes the queue and waits for workers to drain it, or for ctx.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	started := d.started
	d.mu.Unlock()
	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("extraction dispatcher stop: %w", ctx.Err())
	}
}

func (d *Dispatcher) runLoop(ctx context.Context, workerID int) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			d.log.Info("Extraction worker stopped", "worker_id", workerID)
			return
		case turn, ok := <-d.queue:
			if !ok {
				return
			}
			d.metrics.SetExtractionQueueDepth(len(d.queue))
			d.process(ctx, workerID, turn)
		}
	}
}

func (d *Dispatcher) process(ctx context.Context, workerID int, turn services.Turn) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Extraction panic",
				"worker_id", workerID,
				"external_user_id", turn.ExternalUserID,
				"panic", r,
			)
		}
	}()
	turnCtx, cancel := context.WithTimeout(ctx, d.cfg.TurnTimeout)
	defer cancel()

	report, err := d.extraction.ProcessTurn(turnCtx, turn)
	if err != nil {
		d.log.Warn("Extraction failed", "worker_id", workerID, "external_user_id", turn.ExternalUserID, "error", err)
		return
	}
	if report != nil && !report.Skipped {
		d.log.Debug("Extraction done",
			"worker_id", workerID,
			"profile_id", report.ProfileID,
			"candidates", len(report.Results),
			"failed", report.Failed(),
		)
	}
}
