package services

import (
	"context"

	"github.com/google/uuid"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime"
	"github.com/yungbote/relocation-backend/internal/realtime/bus"
)

// =========================
// Profile notifier
// =========================

// FactChange is emitted after a fact write has been committed.
type FactChange struct {
	ProfileID uuid.UUID
	Fact      *types.Fact
	Kind      realtime.EventType
}

// FactObserver reacts to committed fact writes. Implementations must not block.
type FactObserver interface {
	FactChanged(ctx context.Context, ch FactChange)
}

// FactObservers fans a change out to each observer in order.
type FactObservers []FactObserver

func (o FactObservers) FactChanged(ctx context.Context, ch FactChange) {
	for _, obs := range o {
		if obs != nil {
			obs.FactChanged(ctx, ch)
		}
	}
}

type ProfileNotifier interface {
	FactObserver
	ConfirmationEnqueued(ctx context.Context, c *types.PendingConfirmation)
	ConfirmationResolved(ctx context.Context, c *types.PendingConfirmation, status types.ConfirmationStatus, fact *types.Fact)
	ConfirmationsExpired(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID)
}

type profileNotifier struct {
	bus bus.Bus
	log *logger.Logger
}

// NewProfileNotifier publishes profile events on b. A nil bus makes every call a no-op.
func NewProfileNotifier(b bus.Bus, baseLog *logger.Logger) ProfileNotifier {
	return &profileNotifier{bus: b, log: baseLog.With("service", "ProfileNotifier")}
}

func (n *profileNotifier) FactChanged(ctx context.Context, ch FactChange) {
	if ch.ProfileID == uuid.Nil || ch.Fact == nil {
		return
	}
	n.publish(ctx, realtime.NewProfileEvent(ch.ProfileID, ch.Kind, map[string]any{
		"fact_id":   ch.Fact.ID,
		"fact_type": ch.Fact.FactType,
		"fact":      ch.Fact,
	}))
}

func (n *profileNotifier) ConfirmationEnqueued(ctx context.Context, c *types.PendingConfirmation) {
	if c == nil {
		return
	}
	n.publish(ctx, realtime.NewProfileEvent(c.ProfileID, realtime.EventConfirmationEnqueued, map[string]any{
		"confirmation_id": c.ID,
		"fact_type":       c.FactType,
		"old_value":       c.OldValue,
		"new_value":       c.NewValue,
	}))
}

func (n *profileNotifier) ConfirmationResolved(ctx context.Context, c *types.PendingConfirmation, status types.ConfirmationStatus, fact *types.Fact) {
	if c == nil {
		return
	}
	data := map[string]any{
		"confirmation_id": c.ID,
		"fact_type":       c.FactType,
		"status":          status,
	}
	if fact != nil {
		data["fact_id"] = fact.ID
	}
	n.publish(ctx, realtime.NewProfileEvent(c.ProfileID, realtime.EventConfirmationResolved, data))
}

func (n *profileNotifier) ConfirmationsExpired(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) {
	if profileID == uuid.Nil || len(ids) == 0 {
		return
	}
	n.publish(ctx, realtime.NewProfileEvent(profileID, realtime.EventConfirmationExpired, map[string]any{
		"confirmation_ids": ids,
	}))
}

func (n *profileNotifier) publish(ctx context.Context, ev realtime.Event) {
	if n == nil || n.bus == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := n.bus.Publish(ctx, ev); err != nil {
		n.log.Warn("profile event publish failed", "event", ev.Type, "channel", ev.Channel, "error", err)
	}
}

// nopNotifier is used when no bus is wired.
type nopNotifier struct{}

func (nopNotifier) FactChanged(context.Context, FactChange) {}

func (nopNotifier) ConfirmationEnqueued(context.Context, *types.PendingConfirmation) {}

func (nopNotifier) ConfirmationResolved(context.Context, *types.PendingConfirmation, types.ConfirmationStatus, *types.Fact) {
}

func (nopNotifier) ConfirmationsExpired(context.Context, uuid.UUID, []uuid.UUID) {}
