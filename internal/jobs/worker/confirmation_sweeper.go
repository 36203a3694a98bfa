package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/services"
)

const defaultSweepSchedule = "*/15 * * * *"

type SweeperConfig struct {
	// TTL <= 0 disables expiry.
	TTL       time.Duration
	Schedule  string
	BatchSize int
}

// ConfirmationSweeper periodically rejects pending confirmations older than TTL.
type ConfirmationSweeper struct {
	log       *logger.Logger
	queue     services.ConfirmationQueue
	cfg       SweeperConfig
	scheduler *cronlib.Cron
}

// NewConfirmationSweeper returns (nil, nil) when TTL is not set.
func NewConfirmationSweeper(baseLog *logger.Logger, queue services.ConfirmationQueue, cfg SweeperConfig) (*ConfirmationSweeper, error) {
	if cfg.TTL <= 0 {
		return nil, nil
	}
	if queue == nil {
		return nil, fmt.Errorf("confirmation sweeper: queue required")
	}
	if strings.TrimSpace(cfg.Schedule) == "" {
		cfg.Schedule = defaultSweepSchedule
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	s := &ConfirmationSweeper{
		log:   baseLog.With("component", "ConfirmationSweeper"),
		queue: queue,
		cfg:   cfg,
		scheduler: cronlib.New(cronlib.WithChain(
			cronlib.Recover(cronlib.DiscardLogger),
			cronlib.SkipIfStillRunning(cronlib.DiscardLogger),
		)),
	}
	if _, err := s.scheduler.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.log.Warn("confirmation sweep failed", "error", err)
		}
	}); err != nil {
		return nil, fmt.Errorf("confirmation sweeper: invalid schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

func (s *ConfirmationSweeper) Start() {
	if s == nil {
		return
	}
	s.log.Info("Starting confirmation sweeper", "schedule", s.cfg.Schedule, "ttl", s.cfg.TTL.String())
	s.scheduler.Start()
}

// Stop halts scheduling and waits for a running sweep, or for ctx.
func (s *ConfirmationSweeper) Stop(ctx context.Context) {
	if s == nil {
		return
	}
	done := s.scheduler.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// RunOnce expires stale rows in batches until a short batch is seen.
func (s *ConfirmationSweeper) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		n, err := s.queue.ExpireStale(ctx, s.cfg.TTL, s.cfg.BatchSize)
		total += n
		if err != nil {
			return total, err
		}
		if n < s.cfg.BatchSize {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}
