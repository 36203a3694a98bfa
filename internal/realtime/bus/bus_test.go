package bus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime"
)

func recvEvent(t *testing.T, ch <-chan realtime.Event, timeout time.Duration) realtime.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for event")
	}
	return realtime.Event{}
}

func TestMemoryBus_FanOutAndUnsubscribe(t *testing.T) {
	b := NewMemoryBus()
	defer b.Close()

	ctxA, cancelA := context.WithCancel(context.Background())
	ctxB, cancelB := context.WithCancel(context.Background())
	defer cancelB()

	gotA := make(chan realtime.Event, 4)
	gotB := make(chan realtime.Event, 4)
	if err := b.StartForwarder(ctxA, func(ev realtime.Event) { gotA <- ev }); err != nil {
		t.Fatalf("StartForwarder A: %v", err)
	}
	if err := b.StartForwarder(ctxB, func(ev realtime.Event) { gotB <- ev }); err != nil {
		t.Fatalf("StartForwarder B: %v", err)
	}

	pid := uuid.New()
	ev := realtime.NewProfileEvent(pid, realtime.EventConfirmationEnqueued, map[string]any{"fact_type": "destination"})
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := recvEvent(t, gotA, time.Second); got.Type != realtime.EventConfirmationEnqueued || got.Channel != "profile:"+pid.String() {
		t.Fatalf("A got %+v", got)
	}
	recvEvent(t, gotB, time.Second)

	cancelA()
	deadline := time.Now().Add(time.Second)
	for {
		b.mu.RLock()
		n := len(b.subs)
		b.mu.RUnlock()
		if n == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("forwarder A still subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish (after cancel): %v", err)
	}
	recvEvent(t, gotB, time.Second)
	select {
	case extra := <-gotA:
		t.Fatalf("cancelled forwarder received %+v", extra)
	default:
	}
}

func TestRedisBus_RoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	b, err := NewRedisBus(logger.Nop(), RedisConfig{Addr: addr, Channel: "test-" + uuid.NewString()})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan realtime.Event, 1)
	if err := b.StartForwarder(ctx, func(ev realtime.Event) { got <- ev }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	ev := realtime.NewProfileEvent(uuid.New(), realtime.EventFactCommitted, map[string]any{"fact_type": "timeline"})
	if err := b.Publish(ctx, ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if recv := recvEvent(t, got, 2*time.Second); recv.Type != ev.Type || recv.Channel != ev.Channel {
		t.Fatalf("got %+v want %+v", recv, ev)
	}
}
