package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/data/repos/testutil"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/realtime"
)

func strPtr(s string) *string { return &s }

func enqueueDestination(t *testing.T, env *testEnv, profileID uuid.UUID, old *string, value string) *types.PendingConfirmation {
	t.Helper()
	c, err := env.queue.Enqueue(testDBC(), EnqueueRequest{
		ProfileID:   profileID,
		Type:        types.FactDestination,
		OldValue:    old,
		NewValue:    value,
		Source:      types.SourceConversation,
		Confidence:  0.5,
		UserMessage: "I'm moving to " + value,
		AIResponse:  "Great choice.",
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	return c
}

func TestConfirmationQueue_ResolveExactlyOnce(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	c := enqueueDestination(t, env, p.ID, nil, "Cyprus")

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.queue.Resolve(context.Background(), c.ID, p.ID, types.DecisionApprove)
		}(i)
	}
	wg.Wait()

	ok, notFound := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case facterr.IsCode(err, facterr.CodeConfirmationNotFound):
			notFound++
		default:
			t.Fatalf("unexpected resolve error: %v", err)
		}
	}
	if ok != 1 || notFound != 1 {
		t.Fatalf("want one success and one not found, got ok=%d not_found=%d", ok, notFound)
	}
	active := env.activeFacts(t, p.ID)
	if len(active) != 1 || active[types.FactDestination].Value != "Cyprus" {
		t.Fatalf("active facts: %+v", active)
	}
	if env.observer.count(realtime.EventFactCommitted) != 1 {
		t.Fatalf("fact mutations: want=1 got=%d", env.observer.count(realtime.EventFactCommitted))
	}
}

func TestConfirmationQueue_RejectIsInert(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	c := enqueueDestination(t, env, p.ID, nil, "Cyprus")

	out, err := env.queue.Resolve(context.Background(), c.ID, p.ID, types.DecisionReject)
	if err != nil {
		t.Fatalf("Resolve reject: %v", err)
	}
	if out.Status != types.StatusRejected || out.Fact != nil || out.Confirmation.ConfirmedAt == nil {
		t.Fatalf("reject outcome: %+v", out)
	}
	if len(env.activeFacts(t, p.ID)) != 0 {
		t.Fatalf("reject must not write facts")
	}
	var total int64
	env.db.Model(&types.Fact{}).Where("profile_id = ? AND fact_type = ?", p.ID, types.FactDestination).Count(&total)
	if total != 0 {
		t.Fatalf("fact rows for destination: want=0 got=%d", total)
	}
	if len(env.pending(t, p.ID)) != 0 {
		t.Fatalf("pending after reject")
	}

	if _, err := env.queue.Resolve(context.Background(), c.ID, p.ID, types.DecisionApprove); !facterr.IsCode(err, facterr.CodeConfirmationNotFound) {
		t.Fatalf("resolving a rejected row: want confirmation_not_found, got %v", err)
	}
}

func TestConfirmationQueue_ApproveReconcilesWithCurrentFact(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	c := enqueueDestination(t, env, p.ID, nil, "Portugal")

	// The user set a destination directly after the confirmation was enqueued.
	current := testutil.SeedFact(t, context.Background(), env.db, p.ID, types.FactDestination, "Spain")

	out, err := env.queue.Resolve(context.Background(), c.ID, p.ID, types.DecisionApprove)
	if err != nil {
		t.Fatalf("Resolve approve: %v", err)
	}
	if out.Fact == nil || out.Fact.ID != current.ID {
		t.Fatalf("approve must supersede the current fact, got %+v", out.Fact)
	}
	if out.Fact.Value != "Portugal" || !out.Fact.IsUserVerified || out.Fact.Source != types.SourceConversation {
		t.Fatalf("superseded fact: %+v", out.Fact)
	}
	if out.Fact.PreviousValue == nil || *out.Fact.PreviousValue != "Spain" {
		t.Fatalf("previous value: %v", out.Fact.PreviousValue)
	}
	if out.Fact.Confidence != 0.5 {
		t.Fatalf("confidence: want 0.5 got %v", out.Fact.Confidence)
	}
}

func TestConfirmationQueue_ResolveErrors(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	other := env.seedProfile(t)
	c := enqueueDestination(t, env, p.ID, nil, "Cyprus")
	ctx := context.Background()

	cases := []struct {
		name      string
		id        uuid.UUID
		profileID uuid.UUID
		decision  types.Decision
		code      facterr.Code
	}{
		{"unknown id", uuid.New(), p.ID, types.DecisionApprove, facterr.CodeConfirmationNotFound},
		{"other profile", c.ID, other.ID, types.DecisionApprove, facterr.CodeConfirmationNotFound},
		{"invalid decision", c.ID, p.ID, types.Decision("maybe"), facterr.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.queue.Resolve(ctx, tc.id, tc.profileID, tc.decision)
			if !facterr.IsCode(err, tc.code) {
				t.Fatalf("want %s, got %v", tc.code, err)
			}
		})
	}
	if len(env.pending(t, p.ID)) != 1 {
		t.Fatalf("failed resolves must leave the row pending")
	}

	if _, err := env.queue.ResolveForUser(ctx, "user-"+uuid.NewString(), c.ID, types.DecisionApprove); !facterr.IsCode(err, facterr.CodeProfileNotFound) {
		t.Fatalf("unknown user: want profile_not_found, got %v", err)
	}
	if _, err := env.queue.ResolveForUser(ctx, p.ExternalUserID, c.ID, types.DecisionApprove); err != nil {
		t.Fatalf("ResolveForUser: %v", err)
	}
}

func TestConfirmationQueue_ListPendingNewestFirst(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	first := enqueueDestination(t, env, p.ID, nil, "Cyprus")
	time.Sleep(5 * time.Millisecond)
	second := enqueueDestination(t, env, p.ID, nil, "Malta")

	rows, err := env.queue.ListPendingForUser(context.Background(), p.ExternalUserID)
	if err != nil {
		t.Fatalf("ListPendingForUser: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != second.ID || rows[1].ID != first.ID {
		t.Fatalf("pending order: %+v", rows)
	}

	rows, err = env.queue.ListPendingForUser(context.Background(), "user-"+uuid.NewString())
	if err != nil || len(rows) != 0 {
		t.Fatalf("unknown user: rows=%d err=%v", len(rows), err)
	}
}

func TestConfirmationQueue_DedupeModes(t *testing.T) {
	cases := []struct {
		mode        policy.DedupeMode
		values      []string
		wantPending []string
		wantSameID  bool
	}{
		{policy.DedupeNone, []string{"Cyprus", "Cyprus", "Malta"}, []string{"Malta", "Cyprus", "Cyprus"}, false},
		{policy.DedupeSameValue, []string{"Cyprus", "Cyprus", "Malta"}, []string{"Malta", "Cyprus"}, true},
		{policy.DedupeLatest, []string{"Cyprus", "Cyprus", "Malta"}, []string{"Malta"}, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			cfg := policy.DefaultConfig()
			cfg.PendingDedupe = tc.mode
			env := newTestEnv(t, cfg)
			p := env.seedProfile(t)

			var ids []uuid.UUID
			for _, v := range tc.values {
				ids = append(ids, enqueueDestination(t, env, p.ID, nil, v).ID)
				time.Sleep(5 * time.Millisecond)
			}
			if (ids[0] == ids[1]) != tc.wantSameID {
				t.Fatalf("repeated value reused id: got %v want %v", ids[0] == ids[1], tc.wantSameID)
			}
			rows := env.pending(t, p.ID)
			if len(rows) != len(tc.wantPending) {
				t.Fatalf("pending rows: want=%d got=%d", len(tc.wantPending), len(rows))
			}
			for i, want := range tc.wantPending {
				if rows[i].NewValue != want {
					t.Fatalf("pending[%d]: want=%q got=%q", i, want, rows[i].NewValue)
				}
			}
		})
	}
}

func TestConfirmationQueue_ExpireStale(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	log := testutil.Logger(t)
	confirmations := repos.NewConfirmationRepo(env.db, log)

	old, err := confirmations.Create(testDBC(), &types.PendingConfirmation{
		ProfileID:  p.ID,
		FactType:   types.FactBudget,
		OldValue:   strPtr("€2000"),
		NewValue:   "€3000",
		Source:     types.SourceConversation,
		Confidence: 0.4,
		CreatedAt:  time.Now().UTC().Add(-48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create stale row: %v", err)
	}
	fresh := enqueueDestination(t, env, p.ID, nil, "Cyprus")

	if n, err := env.queue.ExpireStale(context.Background(), 0, 10); err != nil || n != 0 {
		t.Fatalf("zero ttl must be a no-op: n=%d err=%v", n, err)
	}
	n, err := env.queue.ExpireStale(context.Background(), 24*time.Hour, 10)
	if err != nil {
		t.Fatalf("ExpireStale: %v", err)
	}
	if n < 1 {
		t.Fatalf("expired: want>=1 got=%d", n)
	}
	rows := env.pending(t, p.ID)
	if len(rows) != 1 || rows[0].ID != fresh.ID {
		t.Fatalf("pending after expiry: %+v", rows)
	}

	var row types.PendingConfirmation
	if err := env.db.Where("id = ?", old.ID).First(&row).Error; err != nil {
		t.Fatalf("load expired row: %v", err)
	}
	if row.Status != types.StatusRejected || row.ConfirmedAt == nil {
		t.Fatalf("expired row: status=%s confirmed_at=%v", row.Status, row.ConfirmedAt)
	}
}

func TestConfirmationQueue_PublishesEvents(t *testing.T) {
	env := newTestEnv(t, policy.DefaultConfig())
	p := env.seedProfile(t)
	c := enqueueDestination(t, env, p.ID, nil, "Cyprus")
	if _, err := env.queue.Resolve(context.Background(), c.ID, p.ID, types.DecisionApprove); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	want := []realtime.EventType{
		realtime.EventConfirmationEnqueued,
		realtime.EventConfirmationResolved,
		realtime.EventFactCommitted,
	}
	got := env.events.types()
	if len(got) != len(want) {
		t.Fatalf("events: want=%v got=%v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d]: want=%s got=%s", i, want[i], got[i])
		}
	}
}
