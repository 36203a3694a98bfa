package policy

import (
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/match"
)

type Outcome string

const (
	OutcomeCommitNew Outcome = "commit_new"
	OutcomeSupersede Outcome = "supersede"
	OutcomeEnqueue   Outcome = "enqueue"
	OutcomeIgnore    Outcome = "ignore"
)

// Decision is the single write (or no-op) a candidate resolves to.
type Decision struct {
	Outcome    Outcome
	Type       types.FactType
	Value      string
	Confidence float64

	// OldValue is nil for an enqueue with no active fact.
	OldValue *string
	// ExistingFactID is set for supersede.
	ExistingFactID uuid.UUID

	Sensitive bool
}

// Engine is a pure decision function over (candidate, active fact).
type Engine struct {
	cfg       Config
	sensitive map[types.FactType]bool
}

func NewEngine(cfg Config) *Engine {
	s := make(map[types.FactType]bool, len(cfg.SensitiveTypes))
	for _, ft := range cfg.SensitiveTypes {
		s[ft] = true
	}
	return &Engine{cfg: cfg, sensitive: s}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) IsSensitive(ft types.FactType) bool { return e.sensitive[ft] }

// Decide applies the transition table. existing must be the active fact of the
// candidate's type, or nil.
//
//	existing  sensitive  changed  outcome
//	none      no         -        commit_new, NewRoutine
//	none      yes        -        enqueue, NewSensitive, old=nil
//	present   any        no       ignore
//	present   no         yes      supersede, UpdateRoutine
//	present   yes        yes      enqueue, ChangedSensitive, old=existing
func (e *Engine) Decide(c match.Candidate, existing *types.Fact) Decision {
	d := Decision{
		Type:      c.Type,
		Value:     strings.TrimSpace(c.Value),
		Sensitive: e.IsSensitive(c.Type),
	}
	if d.Value == "" {
		d.Outcome = OutcomeIgnore
		return d
	}

	if existing == nil || !existing.IsActive {
		if d.Sensitive {
			d.Outcome = OutcomeEnqueue
			d.Confidence = e.cfg.Confidence.NewSensitive
		} else {
			d.Outcome = OutcomeCommitNew
			d.Confidence = e.cfg.Confidence.NewRoutine
		}
		return d
	}

	if SameValue(existing.Value, d.Value) {
		d.Outcome = OutcomeIgnore
		return d
	}

	if d.Sensitive {
		old := existing.Value
		d.Outcome = OutcomeEnqueue
		d.Confidence = e.cfg.Confidence.ChangedSensitive
		d.OldValue = &old
		return d
	}
	d.Outcome = OutcomeSupersede
	d.Confidence = e.cfg.Confidence.UpdateRoutine
	d.ExistingFactID = existing.ID
	return d
}

// SameValue compares fact values ignoring case and surrounding space.
func SameValue(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
