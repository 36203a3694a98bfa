package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"

	"github.com/yungbote/relocation-backend/internal/data/repos"
	"github.com/yungbote/relocation-backend/internal/domain/facterr"
	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/match"
	"github.com/yungbote/relocation-backend/internal/facts/policy"
	"github.com/yungbote/relocation-backend/internal/observability"
	"github.com/yungbote/relocation-backend/internal/platform/ctxutil"
	"github.com/yungbote/relocation-backend/internal/platform/dbctx"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

const (
	ChannelText  = "text"
	ChannelVoice = "voice"
)

// Turn is one user utterance and the assistant reply to it.
type Turn struct {
	ExternalUserID string
	UserMessage    string
	AssistantReply string
	Channel        string
}

type CandidateResult struct {
	Type           types.FactType
	Value          string
	Matcher        string
	Outcome        policy.Outcome
	FactID         uuid.UUID
	ConfirmationID uuid.UUID
	Err            error
}

type TurnReport struct {
	ProfileID uuid.UUID
	Skipped   bool
	Results   []CandidateResult
}

// Failed counts candidates whose write did not land.
func (r *TurnReport) Failed() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

type ExtractionService interface {
	// ProcessTurn runs matcher, policy and store for one turn. Candidate
	// failures are isolated and reported in the result; the returned error is
	// set only when the profile could not be resolved.
	ProcessTurn(ctx context.Context, turn Turn) (*TurnReport, error)
}

type extractionService struct {
	log      *logger.Logger
	registry *match.Registry
	engine   *policy.Engine
	facts    FactStore
	queue    ConfirmationQueue
	metrics  *observability.Metrics
}

func NewExtractionService(
	baseLog *logger.Logger,
	registry *match.Registry,
	engine *policy.Engine,
	facts FactStore,
	queue ConfirmationQueue,
	metrics *observability.Metrics,
) ExtractionService {
	return &extractionService{
		log:      baseLog.With("service", "ExtractionService"),
		registry: registry,
		engine:   engine,
		facts:    facts,
		queue:    queue,
		metrics:  metrics,
	}
}

func (s *extractionService) ProcessTurn(ctx context.Context, turn Turn) (report *TurnReport, err error) {
	start := time.Now()
	report = &TurnReport{}
	ctx, span := observability.StartSpan(ctx, "extraction.process_turn",
		attribute.String("channel", normalizeChannel(turn.Channel)),
	)
	defer func() {
		result := "ok"
		switch {
		case err != nil:
			result = "error"
		case report.Skipped:
			result = "skipped"
		case report.Failed() > 0:
			result = "partial"
		}
		span.SetAttributes(
			attribute.Int("candidates", len(report.Results)),
			attribute.Int("failed", report.Failed()),
		)
		observability.EndSpan(span, err)
		s.metrics.ObserveExtractionTurn(result, time.Since(start))
	}()

	if ctxutil.IsAnonymous(turn.ExternalUserID) {
		report.Skipped = true
		return report, nil
	}
	text := match.CombineTurn(turn.UserMessage, turn.AssistantReply)
	if strings.TrimSpace(text) == "" {
		report.Skipped = true
		return report, nil
	}

	p, err := s.facts.GetOrCreateProfile(ctx, turn.ExternalUserID)
	if err != nil {
		s.log.Warn("extraction skipped: profile unavailable", "external_user_id", turn.ExternalUserID, "error", err)
		return report, err
	}
	report.ProfileID = p.ID

	for c := range s.registry.Candidates(ctx, text) {
		res := s.applyCandidate(ctx, p.ID, turn, c)
		if retryableWrite(res.Err) {
			// The active fact changed between read and write; decide again
			// against the new state.
			res = s.applyCandidate(ctx, p.ID, turn, c)
		}
		if res.Err != nil {
			s.metrics.IncExtractionError(string(c.Type), string(facterr.CodeOf(res.Err)))
			s.log.Warn("fact candidate failed",
				"profile_id", p.ID,
				"fact_type", c.Type,
				"matcher", c.Matcher,
				"error", res.Err,
			)
		} else {
			s.metrics.IncExtractionCandidate(string(c.Type), string(res.Outcome))
		}
		report.Results = append(report.Results, res)
	}
	return report, nil
}

func (s *extractionService) applyCandidate(ctx context.Context, profileID uuid.UUID, turn Turn, c match.Candidate) CandidateResult {
	res := CandidateResult{Type: c.Type, Value: c.Value, Matcher: c.Matcher}
	dbc := dbctx.Context{Ctx: ctx}

	existing, err := s.facts.GetActiveFact(dbc, profileID, c.Type)
	if err != nil {
		res.Err = err
		return res
	}
	d := s.engine.Decide(c, existing)
	res.Outcome = d.Outcome
	res.Value = d.Value
	meta := extractionMetadata(turn.Channel, c.Matcher)

	switch d.Outcome {
	case policy.OutcomeCommitNew:
		f, err := s.facts.CommitNew(dbc, profileID, NewFact{
			Type:       d.Type,
			Value:      d.Value,
			Source:     types.SourceConversation,
			Confidence: d.Confidence,
			Metadata:   meta,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.FactID = f.ID
	case policy.OutcomeSupersede:
		f, err := s.facts.Supersede(dbc, d.ExistingFactID, repos.FactUpdate{
			Value:      d.Value,
			Source:     types.SourceConversation,
			Confidence: d.Confidence,
			Metadata:   meta,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.FactID = f.ID
	case policy.OutcomeEnqueue:
		row, err := s.queue.Enqueue(dbc, EnqueueRequest{
			ProfileID:   profileID,
			Type:        d.Type,
			OldValue:    d.OldValue,
			NewValue:    d.Value,
			Source:      types.SourceConversation,
			Confidence:  d.Confidence,
			UserMessage: turn.UserMessage,
			AIResponse:  turn.AssistantReply,
			Metadata:    meta,
		})
		if err != nil {
			res.Err = err
			return res
		}
		res.ConfirmationID = row.ID
	}
	return res
}

// retryableWrite reports store races worth one re-decision: a concurrent insert
// of the same type, or the active row disappearing under a supersede.
func retryableWrite(err error) bool {
	return facterr.IsCode(err, facterr.CodeConflict) || facterr.IsCode(err, facterr.CodeFactNotFound)
}

func normalizeChannel(ch string) string {
	switch strings.ToLower(strings.TrimSpace(ch)) {
	case ChannelVoice:
		return ChannelVoice
	default:
		return ChannelText
	}
}

func extractionMetadata(channel, matcher string) datatypes.JSON {
	b, err := json.Marshal(map[string]string{
		"channel": normalizeChannel(channel),
		"matcher": matcher,
	})
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
