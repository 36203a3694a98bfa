package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/services"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeExtraction struct {
	mu      sync.Mutex
	turns   []services.Turn
	block   chan struct{}
	panicOn string
}

func (f *fakeExtraction) ProcessTurn(ctx context.Context, turn services.Turn) (*services.TurnReport, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if turn.ExternalUserID == f.panicOn && f.panicOn != "" {
		panic("boom")
	}
	f.mu.Lock()
	f.turns = append(f.turns, turn)
	f.mu.Unlock()
	return &services.TurnReport{}, nil
}

func (f *fakeExtraction) processed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.turns)
}

func TestDispatcher_DrainsOnStop(t *testing.T) {
	ex := &fakeExtraction{panicOn: "panics"}
	d := NewDispatcher(logger.Nop(), ex, nil, Config{Workers: 2, QueueSize: 8})
	d.Start(context.Background())

	for _, id := range []string{"a", "panics", "b", "c"} {
		if !d.Submit(services.Turn{ExternalUserID: id}) {
			t.Fatalf("Submit(%s) rejected", id)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if ex.processed() != 3 {
		t.Fatalf("processed: want=3 got=%d", ex.processed())
	}
	if d.Submit(services.Turn{ExternalUserID: "late"}) {
		t.Fatalf("Submit after Stop must be rejected")
	}
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	ex := &fakeExtraction{block: make(chan struct{})}
	d := NewDispatcher(logger.Nop(), ex, nil, Config{Workers: 1, QueueSize: 1})

	// Not started: the queue holds exactly one turn.
	if !d.Submit(services.Turn{ExternalUserID: "a"}) {
		t.Fatalf("first Submit rejected")
	}
	if d.Submit(services.Turn{ExternalUserID: "b"}) {
		t.Fatalf("Submit on a full queue must not block or succeed")
	}

	d.Start(context.Background())
	close(ex.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if ex.processed() != 1 {
		t.Fatalf("processed: want=1 got=%d", ex.processed())
	}
}

func TestDispatcher_TurnTimeout(t *testing.T) {
	ex := &fakeExtraction{block: make(chan struct{})}
	d := NewDispatcher(logger.Nop(), ex, nil, Config{Workers: 1, QueueSize: 1, TurnTimeout: 20 * time.Millisecond})
	d.Start(context.Background())
	d.Submit(services.Turn{ExternalUserID: "slow"})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if ex.processed() != 0 {
		t.Fatalf("timed-out turn must not be recorded")
	}
}

func TestDispatcher_StopWithoutStart(t *testing.T) {
	d := NewDispatcher(logger.Nop(), &fakeExtraction{}, nil, Config{})
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
