package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
	"github.com/yungbote/relocation-backend/internal/realtime"
)

const userAuthoredConfidence = 1.0

// NewFact is the input to CommitNew.
type NewFact struct {
	Type       types.FactType
	Value      string
	Source     types.FactSource
	Confidence float64
	Verified   bool
	Metadata   datatypes.JSON
}

// FactStore owns profile facts. Writes made with dbc.Tx == nil notify observers
// immediately; callers that pass a transaction notify after commit themselves.
type FactStore interface {
	GetOrCreateProfile(ctx context.Context, externalUserID string) (*types.Profile, error)
	// LookupProfile fails with profile_not_found instead of creating.
	LookupProfile(ctx context.Context, externalUserID string) (*types.Profile, error)

	GetActiveFacts(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Fact, error)
	GetActiveFact(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType) (*types.Fact, error)
	CommitNew(dbc dbctx.Context, profileID uuid.UUID, nf NewFact) (*types.Fact, error)
	Supersede(dbc dbctx.Context, factID uuid.UUID, upd repos.FactUpdate) (*types.Fact, error)

	// User-scoped operations; the caller is identified by external user id.
	ListFactsForUser(ctx context.Context, externalUserID string) ([]*types.Fact, error)
	UpsertUserFact(ctx context.Context, externalUserID string, factType types.FactType, value string) (*types.Fact, error)
	VerifyFact(ctx context.Context, externalUserID string, factID uuid.UUID) (*types.Fact, error)
	DeactivateFact(ctx context.Context, externalUserID string, factID uuid.UUID) error
}

type factStore struct {
	db       *gorm.DB
	log      *logger.Logger
	profiles repos.ProfileRepo
	facts    repos.FactRepo
	observer FactObserver

	profileCache *lru.Cache[string, types.Profile]
	profileGroup singleflight.Group
}

// NewFactStore caches profile lookups in an LRU of cacheSize entries; cacheSize <= 0 disables it.
func NewFactStore(
	db *gorm.DB,
	baseLog *logger.Logger,
	profiles repos.ProfileRepo,
	facts repos.FactRepo,
	observer FactObserver,
	cacheSize int,
) FactStore {
	s := &factStore{
		db:       db,
		log:      baseLog.With("service", "FactStore"),
		profiles: profiles,
		facts:    facts,
		observer: observer,
	}
	if cacheSize > 0 {
		if c, err := lru.New[string, types.Profile](cacheSize); err == nil {
			s.profileCache = c
		}
	}
	if s.observer == nil {
		s.observer = nopNotifier{}
	}
	return s
}

func (s *factStore) GetOrCreateProfile(ctx context.Context, externalUserID string) (*types.Profile, error) {
	ext := strings.TrimSpace(externalUserID)
	if ctxutil.IsAnonymous(ext) {
		return nil, facterr.Validation("profile.get_or_create", "external user id is required")
	}
	if p, ok := s.cachedProfile(ext); ok {
		return p, nil
	}
	v, err, _ := s.profileGroup.Do(ext, func() (interface{}, error) {
		p, err := s.profiles.GetOrCreate(dbctx.Context{Ctx: ctx}, ext)
		if err != nil {
			return nil, err
		}
		s.cacheProfile(p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*types.Profile)
	return &p, nil
}

func (s *factStore) LookupProfile(ctx context.Context, externalUserID string) (*types.Profile, error) {
	ext := strings.TrimSpace(externalUserID)
	if ctxutil.IsAnonymous(ext) {
		return nil, facterr.NewError(facterr.CodeProfileNotFound, "profile.lookup", "no profile for anonymous caller", nil)
	}
	if p, ok := s.cachedProfile(ext); ok {
		return p, nil
	}
	p, err := s.profiles.GetByExternalID(dbctx.Context{Ctx: ctx}, ext)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, facterr.NewError(facterr.CodeProfileNotFound, "profile.lookup", "profile not found", nil)
	}
	s.cacheProfile(p)
	return p, nil
}

func (s *factStore) cachedProfile(ext string) (*types.Profile, bool) {
	if s.profileCache == nil {
		return nil, false
	}
	p, ok := s.profileCache.Get(ext)
	if !ok {
		return nil, false
	}
	return &p, true
}

func (s *factStore) cacheProfile(p *types.Profile) {
	if s.profileCache == nil || p == nil {
		return
	}
	s.profileCache.Add(p.ExternalUserID, *p)
}

func (s *factStore) GetActiveFacts(dbc dbctx.Context, profileID uuid.UUID) ([]*types.Fact, error) {
	return s.facts.ListActive(dbc, profileID)
}

func (s *factStore) GetActiveFact(dbc dbctx.Context, profileID uuid.UUID, factType types.FactType) (*types.Fact, error) {
	return s.facts.GetActiveByType(dbc, profileID, factType)
}

// CommitNew requires that no active fact of the type exists. Finding one is a
// caller defect and returns invariant_violation; losing an insert race returns conflict.
func (s *factStore) CommitNew(dbc dbctx.Context, profileID uuid.UUID, nf NewFact) (*types.Fact, error) {
	if profileID == uuid.Nil {
		return nil, facterr.Validation("fact.commit_new", "profile id is required")
	}
	value := strings.TrimSpace(nf.Value)
	if value == "" {
		return nil, facterr.Validation("fact.commit_new", "value is required")
	}
	if !nf.Source.Valid() {
		return nil, facterr.Validation("fact.commit_new", "invalid source")
	}
	existing, err := s.facts.GetActiveByType(dbc, profileID, nf.Type)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		s.log.Error("commitNew called with an active fact present",
			"profile_id", profileID, "fact_type", nf.Type, "fact_id", existing.ID)
		return nil, facterr.Invariant("fact.commit_new", "active fact already exists for type "+string(nf.Type))
	}

	f := &types.Fact{
		ProfileID:      profileID,
		FactType:       nf.Type,
		Value:          value,
		Source:         nf.Source,
		Confidence:     nf.Confidence,
		IsUserVerified: nf.Verified,
		Metadata:       nf.Metadata,
	}
	if nf.Verified {
		now := timeNow()
		f.VerifiedAt = &now
	}
	created, err := s.facts.Create(dbc, f)
	if err != nil {
		return nil, err
	}
	if dbc.Tx == nil {
		s.observer.FactChanged(dbc.Ctx, FactChange{ProfileID: profileID, Fact: created, Kind: realtime.EventFactCommitted})
	}
	return created, nil
}

func (s *factStore) Supersede(dbc dbctx.Context, factID uuid.UUID, upd repos.FactUpdate) (*types.Fact, error) {
	if strings.TrimSpace(upd.Value) == "" {
		return nil, facterr.Validation("fact.supersede", "value is required")
	}
	if !upd.Source.Valid() {
		return nil, facterr.Validation("fact.supersede", "invalid source")
	}
	f, err := s.facts.Supersede(dbc, factID, upd)
	if err != nil {
		return nil, err
	}
	if dbc.Tx == nil {
		s.observer.FactChanged(dbc.Ctx, FactChange{ProfileID: f.ProfileID, Fact: f, Kind: realtime.EventFactCommitted})
	}
	return f, nil
}

// ListFactsForUser returns an empty list when the caller has no profile yet.
func (s *factStore) ListFactsForUser(ctx context.Context, externalUserID string) ([]*types.Fact, error) {
	p, err := s.LookupProfile(ctx, externalUserID)
	if facterr.IsCode(err, facterr.CodeProfileNotFound) {
		return []*types.Fact{}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.facts.ListActive(dbctx.Context{Ctx: ctx}, p.ID)
}

// UpsertUserFact sets a value typed by the user directly. It bypasses the
// policy engine: user-authored values are verified by construction.
func (s *factStore) UpsertUserFact(ctx context.Context, externalUserID string, factType types.FactType, value string) (*types.Fact, error) {
	if _, ok := types.ParseFactType(string(factType)); !ok {
		return nil, facterr.Validation("fact.upsert_user", "unknown fact type")
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, facterr.Validation("fact.upsert_user", "value is required")
	}
	p, err := s.GetOrCreateProfile(ctx, externalUserID)
	if err != nil {
		return nil, err
	}

	var out *types.Fact
	upsert := func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			existing, err := s.facts.GetActiveByType(dbc, p.ID, factType)
			if err != nil {
				return err
			}
			if existing == nil {
				out, err = s.CommitNew(dbc, p.ID, NewFact{
					Type:       factType,
					Value:      value,
					Source:     types.SourceUserEdit,
					Confidence: userAuthoredConfidence,
					Verified:   true,
				})
				return err
			}
			out, err = s.Supersede(dbc, existing.ID, repos.FactUpdate{
				Value:      value,
				Source:     types.SourceUserEdit,
				Confidence: userAuthoredConfidence,
				Verified:   true,
			})
			return err
		})
	}
	err = upsert()
	if retryableWrite(err) {
		err = upsert()
	}
	if err != nil {
		return nil, err
	}
	s.observer.FactChanged(ctx, FactChange{ProfileID: p.ID, Fact: out, Kind: realtime.EventFactCommitted})
	return out, nil
}

// VerifyFact marks an active fact as confirmed by the user without changing its value.
func (s *factStore) VerifyFact(ctx context.Context, externalUserID string, factID uuid.UUID) (*types.Fact, error) {
	p, err := s.LookupProfile(ctx, externalUserID)
	if err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	f, err := s.facts.GetByID(dbc, p.ID, factID)
	if err != nil {
		return nil, err
	}
	if f == nil || !f.IsActive {
		return nil, facterr.NewError(facterr.CodeFactNotFound, "fact.verify", "fact not found", nil)
	}
	return s.Supersede(dbc, f.ID, repos.FactUpdate{
		Value:      f.Value,
		Source:     types.SourceUserVerified,
		Confidence: userAuthoredConfidence,
		Verified:   true,
	})
}

// DeactivateFact retires a fact. Rows are never deleted.
func (s *factStore) DeactivateFact(ctx context.Context, externalUserID string, factID uuid.UUID) error {
	p, err := s.LookupProfile(ctx, externalUserID)
	if err != nil {
		return err
	}
	dbc := dbctx.Context{Ctx: ctx}
	f, err := s.facts.GetByID(dbc, p.ID, factID)
	if err != nil {
		return err
	}
	ok, err := s.facts.Deactivate(dbc, p.ID, factID)
	if err != nil {
		return err
	}
	if !ok || f == nil {
		return facterr.NewError(facterr.CodeFactNotFound, "fact.deactivate", "fact not found", nil)
	}
	f.IsActive = false
	s.observer.FactChanged(ctx, FactChange{ProfileID: p.ID, Fact: f, Kind: realtime.EventFactDeactivated})
	return nil
}
