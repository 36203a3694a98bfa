package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/data/repos/testutil"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/match"
	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/realtime"
	"github.com/yungbote/relocation-backend/internal/realtime/bus"
)

type recordingObserver struct {
	mu      sync.Mutex
	changes []FactChange
}

func (r *recordingObserver) FactChanged(_ context.Context, ch FactChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *recordingObserver) count(kind realtime.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ch := range r.changes {
		if ch.Kind == kind {
			n++
		}
	}
	return n
}

type eventRecorder struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (r *eventRecorder) record(ev realtime.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) types() []realtime.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.EventType, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type testEnv struct {
	db         *gorm.DB
	facts      FactStore
	queue      ConfirmationQueue
	extraction ExtractionService
	metrics    *observability.Metrics
	observer   *recordingObserver
	events     *eventRecorder
}

func newTestEnv(t *testing.T, cfg policy.Config) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)

	mb := bus.NewMemoryBus()
	t.Cleanup(func() { _ = mb.Close() })
	events := &eventRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := mb.StartForwarder(ctx, events.record); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	metrics := observability.NewMetrics()
	notifier := NewProfileNotifier(mb, log)
	obs := &recordingObserver{}
	observers := FactObservers{notifier, obs}

	facts := NewFactStore(db, log, repos.NewProfileRepo(db, log), repos.NewFactRepo(db, log), observers, 16)
	queue := NewConfirmationQueue(db, log, repos.NewConfirmationRepo(db, log), facts, cfg.PendingDedupe, notifier, observers, metrics)
	extraction := NewExtractionService(log, match.DefaultRegistry(), policy.NewEngine(cfg), facts, queue, metrics)

	return &testEnv{
		db:         db,
		facts:      facts,
		queue:      queue,
		extraction: extraction,
		metrics:    metrics,
		observer:   obs,
		events:     events,
	}
}

func (e *testEnv) seedProfile(t *testing.T) *types.Profile {
	t.Helper()
	return testutil.SeedProfile(t, context.Background(), e.db)
}

func (e *testEnv) activeFacts(t *testing.T, profileID uuid.UUID) map[types.FactType]*types.Fact {
	t.Helper()
	var rows []*types.Fact
	if err := e.db.Where("profile_id = ? AND is_active = ?", profileID, true).Find(&rows).Error; err != nil {
		t.Fatalf("load active facts: %v", err)
	}
	out := map[types.FactType]*types.Fact{}
	for _, f := range rows {
		if _, dup := out[f.FactType]; dup {
			t.Fatalf("more than one active %s fact", f.FactType)
		}
		out[f.FactType] = f
	}
	return out
}

func (e *testEnv) pending(t *testing.T, profileID uuid.UUID) []*types.PendingConfirmation {
	t.Helper()
	rows, err := e.queue.ListPending(testDBC(), profileID)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	return rows
}

func testDBC() dbctx.Context {
	return dbctx.Context{Ctx: context.Background()}
}
