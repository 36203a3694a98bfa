package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/realtime"
)

type failingBus struct{ calls int }

func (b *failingBus) Publish(context.Context, realtime.Event) error {
	b.calls++
	return errors.New("redis down")
}

func (b *failingBus) StartForwarder(context.Context, func(realtime.Event)) error { return nil }

func (b *failingBus) Close() error { return nil }

func TestProfileNotifier_PublishFailureIsSwallowed(t *testing.T) {
	b := &failingBus{}
	n := NewProfileNotifier(b, testutil.Logger(t))
	pid := uuid.New()

	n.FactChanged(context.Background(), FactChange{ProfileID: pid, Fact: &types.Fact{ID: uuid.New()}, Kind: realtime.EventFactCommitted})
	n.ConfirmationEnqueued(context.Background(), &types.PendingConfirmation{ID: uuid.New(), ProfileID: pid})
	n.ConfirmationsExpired(context.Background(), pid, nil)
	if b.calls != 2 {
		t.Fatalf("publish calls: want=2 got=%d", b.calls)
	}

	nilBus := NewProfileNotifier(nil, testutil.Logger(t))
	nilBus.ConfirmationResolved(context.Background(), &types.PendingConfirmation{ID: uuid.New(), ProfileID: pid}, types.StatusApproved, nil)
}

func TestFactObservers_FanOut(t *testing.T) {
	a, b := &recordingObserver{}, &recordingObserver{}
	obs := FactObservers{a, nil, b}
	obs.FactChanged(context.Background(), FactChange{ProfileID: uuid.New(), Kind: realtime.EventFactDeactivated})
	if a.count(realtime.EventFactDeactivated) != 1 || b.count(realtime.EventFactDeactivated) != 1 {
		t.Fatalf("fan-out did not reach every observer")
	}
}
