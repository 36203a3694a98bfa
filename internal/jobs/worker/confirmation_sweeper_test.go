package worker

import (
	"context"
	"testing"
	"time"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/services"
)

type fakeQueue struct {
	services.ConfirmationQueue
	batches []int
	calls   int
	gotTTL  time.Duration
}

func (q *fakeQueue) ExpireStale(_ context.Context, ttl time.Duration, limit int) (int, error) {
	q.gotTTL = ttl
	if q.calls >= len(q.batches) {
		q.calls++
		return 0, nil
	}
	n := q.batches[q.calls]
	q.calls++
	if n > limit {
		n = limit
	}
	return n, nil
}

func TestConfirmationSweeper_Disabled(t *testing.T) {
	s, err := NewConfirmationSweeper(logger.Nop(), &fakeQueue{}, SweeperConfig{})
	if err != nil || s != nil {
		t.Fatalf("zero TTL: want (nil, nil), got (%v, %v)", s, err)
	}
	// Nil sweeper methods are safe.
	s.Start()
	s.Stop(context.Background())
}

func TestConfirmationSweeper_InvalidSchedule(t *testing.T) {
	_, err := NewConfirmationSweeper(logger.Nop(), &fakeQueue{}, SweeperConfig{TTL: time.Hour, Schedule: "every tuesday"})
	if err == nil {
		t.Fatalf("expected schedule error")
	}
}

func TestConfirmationSweeper_RunOnceBatches(t *testing.T) {
	q := &fakeQueue{batches: []int{2, 2, 1}}
	s, err := NewConfirmationSweeper(logger.Nop(), q, SweeperConfig{TTL: 72 * time.Hour, BatchSize: 2})
	if err != nil {
		t.Fatalf("NewConfirmationSweeper: %v", err)
	}
	n, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 5 || q.calls != 3 {
		t.Fatalf("RunOnce: n=%d calls=%d", n, q.calls)
	}
	if q.gotTTL != 72*time.Hour {
		t.Fatalf("ttl: %s", q.gotTTL)
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
