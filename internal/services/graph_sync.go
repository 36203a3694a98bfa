package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/relocation-backend/internal/data/graph"
	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/platform/neo4jdb"
)

const graphSyncTimeout = 15 * time.Second

type GraphSyncService interface {
	FactObserver
	Enabled() bool
	// SyncProfile mirrors the profile's active facts into the graph and returns
	// the number of facts written.
	SyncProfile(ctx context.Context, profileID uuid.UUID) (int, error)
	// Close waits for in-flight background syncs.
	Close()
}

// graphWriter replaces a profile's projection with facts.
type graphWriter func(ctx context.Context, profileID uuid.UUID, facts []*types.Fact) (int, error)

type graphSyncService struct {
	log   *logger.Logger
	write graphWriter
	facts repos.FactRepo

	mu sync.Mutex
	// pending holds profiles with a background sync running. A true value
	// means a commit landed after that sync read its facts, so it runs again.
	pending map[uuid.UUID]bool
	wg      sync.WaitGroup
}

func NewGraphSyncService(baseLog *logger.Logger, client *neo4jdb.Client, facts repos.FactRepo) GraphSyncService {
	var write graphWriter
	if client != nil && client.Driver != nil {
		log := baseLog.With("component", "ProfileGraph")
		write = func(ctx context.Context, profileID uuid.UUID, facts []*types.Fact) (int, error) {
			return graph.UpsertProfileFacts(ctx, client, log, profileID, facts)
		}
	}
	return newGraphSyncService(baseLog, write, facts)
}

func newGraphSyncService(baseLog *logger.Logger, write graphWriter, facts repos.FactRepo) *graphSyncService {
	return &graphSyncService{
		log:     baseLog.With("service", "GraphSyncService"),
		write:   write,
		facts:   facts,
		pending: map[uuid.UUID]bool{},
	}
}

func (s *graphSyncService) Enabled() bool {
	return s != nil && s.write != nil
}

// SyncProfile always reads the current active set; it is never served from
// another caller's snapshot.
func (s *graphSyncService) SyncProfile(ctx context.Context, profileID uuid.UUID) (int, error) {
	if !s.Enabled() {
		return 0, facterr.NewError(facterr.CodeStoreUnavailable, "graph.sync_profile", "graph sync not configured", nil)
	}
	if profileID == uuid.Nil {
		return 0, facterr.Validation("graph.sync_profile", "profile id is required")
	}
	facts, err := s.facts.ListActive(dbctx.Context{Ctx: ctx}, profileID)
	if err != nil {
		return 0, err
	}
	n, err := s.write(ctx, profileID, facts)
	if err != nil {
		return 0, facterr.Wrap(facterr.CodeStoreUnavailable, "graph.sync_profile", err)
	}
	return n, nil
}

// FactChanged schedules a detached sync; failures are logged only. Commits
// that arrive while a sync for the same profile is running collapse into one
// trailing run.
func (s *graphSyncService) FactChanged(_ context.Context, ch FactChange) {
	if !s.Enabled() || ch.ProfileID == uuid.Nil {
		return
	}
	s.mu.Lock()
	if _, running := s.pending[ch.ProfileID]; running {
		s.pending[ch.ProfileID] = true
		s.mu.Unlock()
		return
	}
	s.pending[ch.ProfileID] = false
	s.wg.Add(1)
	s.mu.Unlock()

	go s.syncLoop(ch.ProfileID)
}

func (s *graphSyncService) syncLoop(profileID uuid.UUID) {
	defer s.wg.Done()
	for {
		ctx, cancel := context.WithTimeout(context.Background(), graphSyncTimeout)
		if _, err := s.SyncProfile(ctx, profileID); err != nil {
			s.log.Warn("graph sync failed", "profile_id", profileID, "error", err)
		}
		cancel()

		s.mu.Lock()
		if !s.pending[profileID] {
			delete(s.pending, profileID)
			s.mu.Unlock()
			return
		}
		s.pending[profileID] = false
		s.mu.Unlock()
	}
}

func (s *graphSyncService) Close() {
	if s == nil {
		return
	}
	s.wg.Wait()
}
