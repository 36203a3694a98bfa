package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime"
)

var timeNow = func() time.Time { return time.Now().UTC() }

type EnqueueRequest struct {
	ProfileID   uuid.UUID
	Type        types.FactType
	OldValue    *string
	NewValue    string
	Source      types.FactSource
	Confidence  float64
	UserMessage string
	AIResponse  string
	Metadata    datatypes.JSON
}

// ResolveOutcome reports what a resolution did. Fact is nil on reject.
type ResolveOutcome struct {
	Confirmation *types.PendingConfirmation
	Status       types.ConfirmationStatus
	Fact         *types.Fact
}

type ConfirmationQueue interface {
	Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.PendingConfirmation, error)
	ListPending(dbc dbctx.Context, profileID uuid.UUID) ([]*types.PendingConfirmation, error)
	// ListPendingForUser returns an empty list when the caller has no profile.
	ListPendingForUser(ctx context.Context, externalUserID string) ([]*types.PendingConfirmation, error)
	// Resolve applies decision at most once. A missing or already resolved row
	// returns confirmation_not_found.
	Resolve(ctx context.Context, confirmationID, profileID uuid.UUID, decision types.Decision) (*ResolveOutcome, error)
	ResolveForUser(ctx context.Context, externalUserID string, confirmationID uuid.UUID, decision types.Decision) (*ResolveOutcome, error)
	// ExpireStale rejects pending rows older than ttl and returns how many it moved.
	ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error)
}

type confirmationQueue struct {
	db            *gorm.DB
	log           *logger.Logger
	confirmations repos.ConfirmationRepo
	facts         FactStore
	dedupe        policy.DedupeMode
	notifier      ProfileNotifier
	observer      FactObserver
	metrics       *observability.Metrics
}

func NewConfirmationQueue(
	db *gorm.DB,
	baseLog *logger.Logger,
	confirmations repos.ConfirmationRepo,
	facts FactStore,
	dedupe policy.DedupeMode,
	notifier ProfileNotifier,
	observer FactObserver,
	metrics *observability.Metrics,
) ConfirmationQueue {
	if !dedupe.Valid() {
		dedupe = policy.DedupeNone
	}
	q := &confirmationQueue{
		db:            db,
		log:           baseLog.With("service", "ConfirmationQueue"),
		confirmations: confirmations,
		facts:         facts,
		dedupe:        dedupe,
		notifier:      notifier,
		observer:      observer,
		metrics:       metrics,
	}
	if q.notifier == nil {
		q.notifier = nopNotifier{}
	}
	if q.observer == nil {
		q.observer = nopNotifier{}
	}
	return q
}

func (q *confirmationQueue) Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.PendingConfirmation, error) {
	if req.ProfileID == uuid.Nil {
		return nil, facterr.Validation("confirmation.enqueue", "profile id is required")
	}
	if strings.TrimSpace(req.NewValue) == "" {
		return nil, facterr.Validation("confirmation.enqueue", "new value is required")
	}
	if !req.Source.Valid() {
		return nil, facterr.Validation("confirmation.enqueue", "invalid source")
	}

	if q.dedupe == policy.DedupeSameValue {
		existing, err := q.confirmations.FindPending(dbc, req.ProfileID, req.Type, req.NewValue)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			q.log.Debug("reusing pending confirmation", "profile_id", req.ProfileID, "fact_type", req.Type, "confirmation_id", existing.ID)
			return existing, nil
		}
	}

	row := &types.PendingConfirmation{
		ProfileID:   req.ProfileID,
		FactType:    req.Type,
		OldValue:    req.OldValue,
		NewValue:    req.NewValue,
		Source:      req.Source,
		Confidence:  req.Confidence,
		UserMessage: req.UserMessage,
		AIResponse:  req.AIResponse,
		Metadata:    req.Metadata,
	}

	var (
		created    *types.PendingConfirmation
		superseded []uuid.UUID
	)
	write := func(inner dbctx.Context) error {
		var err error
		created, err = q.confirmations.Create(inner, row)
		if err != nil {
			return err
		}
		if q.dedupe == policy.DedupeLatest {
			superseded, err = q.confirmations.RejectPendingOfType(inner, req.ProfileID, req.Type, created.ID, created.CreatedAt)
		}
		return err
	}

	switch {
	case q.dedupe != policy.DedupeLatest || dbc.Tx != nil:
		if err := write(dbc); err != nil {
			return nil, err
		}
	default:
		if err := dbc.DB(q.db).Transaction(func(tx *gorm.DB) error {
			return write(dbctx.Context{Ctx: dbc.Ctx, Tx: tx})
		}); err != nil {
			return nil, err
		}
	}

	if dbc.Tx == nil {
		q.notifySuperseded(dbc.Ctx, created, superseded)
		q.notifier.ConfirmationEnqueued(dbc.Ctx, created)
	}
	return created, nil
}

func (q *confirmationQueue) notifySuperseded(ctx context.Context, by *types.PendingConfirmation, ids []uuid.UUID) {
	for _, id := range ids {
		q.notifier.ConfirmationResolved(ctx, &types.PendingConfirmation{
			ID:        id,
			ProfileID: by.ProfileID,
			FactType:  by.FactType,
		}, types.StatusRejected, nil)
	}
}

func (q *confirmationQueue) ListPending(dbc dbctx.Context, profileID uuid.UUID) ([]*types.PendingConfirmation, error) {
	return q.confirmations.ListPending(dbc, profileID)
}

func (q *confirmationQueue) ListPendingForUser(ctx context.Context, externalUserID string) ([]*types.PendingConfirmation, error) {
	p, err := q.facts.LookupProfile(ctx, externalUserID)
	if facterr.IsCode(err, facterr.CodeProfileNotFound) {
		return []*types.PendingConfirmation{}, nil
	}
	if err != nil {
		return nil, err
	}
	return q.confirmations.ListPending(dbctx.Context{Ctx: ctx}, p.ID)
}

func (q *confirmationQueue) ResolveForUser(ctx context.Context, externalUserID string, confirmationID uuid.UUID, decision types.Decision) (*ResolveOutcome, error) {
	p, err := q.facts.LookupProfile(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	return q.Resolve(ctx, confirmationID, p.ID, decision)
}

func (q *confirmationQueue) Resolve(ctx context.Context, confirmationID, profileID uuid.UUID, decision types.Decision) (out *ResolveOutcome, err error) {
	ctx, span := observability.StartSpan(ctx, "confirmation.resolve",
		attribute.String("confirmation_id", confirmationID.String()),
		attribute.String("decision", string(decision)),
	)
	defer func() {
		result := "ok"
		if err != nil {
			result = string(facterr.CodeOf(err))
			if result == "" {
				result = string(facterr.CodeInternal)
			}
		}
		q.metrics.IncConfirmationResolution(string(decision), result)
		// A lost race is an expected outcome, not a span error.
		if facterr.IsCode(err, facterr.CodeConfirmationNotFound) {
			observability.EndSpan(span, nil)
			return
		}
		observability.EndSpan(span, err)
	}()

	if _, ok := types.ParseDecision(string(decision)); !ok {
		return nil, facterr.Validation("confirmation.resolve", "decision must be approve or reject")
	}
	if confirmationID == uuid.Nil || profileID == uuid.Nil {
		return nil, facterr.NewError(facterr.CodeConfirmationNotFound, "confirmation.resolve", "confirmation not found", nil)
	}

	out, err = q.resolveOnce(ctx, confirmationID, profileID, decision)
	if retryableWrite(err) {
		// Another approval of the same type won the insert; the row is still
		// pending because the transaction rolled back.
		out, err = q.resolveOnce(ctx, confirmationID, profileID, decision)
	}
	if err != nil {
		return nil, err
	}

	q.notifier.ConfirmationResolved(ctx, out.Confirmation, out.Status, out.Fact)
	if out.Fact != nil {
		q.observer.FactChanged(ctx, FactChange{ProfileID: profileID, Fact: out.Fact, Kind: realtime.EventFactCommitted})
	}
	return out, nil
}

func (q *confirmationQueue) resolveOnce(ctx context.Context, confirmationID, profileID uuid.UUID, decision types.Decision) (*ResolveOutcome, error) {
	out := &ResolveOutcome{Status: decision.Status()}
	err := q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		c, err := q.confirmations.GetByID(dbc, profileID, confirmationID)
		if err != nil {
			return err
		}
		if c == nil || c.Status != types.StatusPending {
			return facterr.NewError(facterr.CodeConfirmationNotFound, "confirmation.resolve", "confirmation not found", nil)
		}
		now := timeNow()
		ok, err := q.confirmations.Transition(dbc, profileID, confirmationID, out.Status, now)
		if err != nil {
			return err
		}
		if !ok {
			return facterr.NewError(facterr.CodeConfirmationNotFound, "confirmation.resolve", "confirmation not found", nil)
		}
		c.Status = out.Status
		c.ConfirmedAt = &now
		c.UpdatedAt = now
		out.Confirmation = c

		if decision != types.DecisionApprove {
			return nil
		}
		// Reconcile against the fact that is active now, not the one seen at enqueue time.
		current, err := q.facts.GetActiveFact(dbc, profileID, c.FactType)
		if err != nil {
			return err
		}
		if current == nil {
			out.Fact, err = q.facts.CommitNew(dbc, profileID, NewFact{
				Type:       c.FactType,
				Value:      c.NewValue,
				Source:     c.Source,
				Confidence: c.Confidence,
				Verified:   true,
				Metadata:   c.Metadata,
			})
			return err
		}
		out.Fact, err = q.facts.Supersede(dbc, current.ID, repos.FactUpdate{
			Value:      c.NewValue,
			Source:     c.Source,
			Confidence: c.Confidence,
			Verified:   true,
			Metadata:   c.Metadata,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (q *confirmationQueue) ExpireStale(ctx context.Context, ttl time.Duration, limit int) (int, error) {
	if ttl <= 0 {
		return 0, nil
	}
	dbc := dbctx.Context{Ctx: ctx}
	now := timeNow()
	stale, err := q.confirmations.ListStale(dbc, now.Add(-ttl), limit)
	if err != nil {
		return 0, err
	}

	expired := map[uuid.UUID][]uuid.UUID{}
	n := 0
	for _, c := range stale {
		ok, err := q.confirmations.Transition(dbc, c.ProfileID, c.ID, types.StatusRejected, now)
		if err != nil {
			q.log.Warn("expire confirmation failed", "confirmation_id", c.ID, "error", err)
			continue
		}
		if !ok {
			// Resolved by the user since it was listed.
			continue
		}
		expired[c.ProfileID] = append(expired[c.ProfileID], c.ID)
		n++
	}
	for profileID, ids := range expired {
		q.notifier.ConfirmationsExpired(ctx, profileID, ids)
	}
	q.metrics.AddConfirmationsExpired(n)
	if n > 0 {
		q.log.Info("expired stale confirmations", "count", n, "ttl", ttl.String())
	}
	return n, nil
}
