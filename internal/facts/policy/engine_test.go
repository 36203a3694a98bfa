package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/facts/match"
)

func activeFact(ft types.FactType, v string) *types.Fact {
	return &types.Fact{ID: uuid.New(), FactType: ft, Value: v, IsActive: true}
}

func TestEngine_Decide(t *testing.T) {
	eng := NewEngine(DefaultConfig())

	cases := []struct {
		name       string
		cand       match.Candidate
		existing   *types.Fact
		outcome    Outcome
		confidence float64
		oldValue   *string
	}{
		{
			name:       "new_routine_commits",
			cand:       match.Candidate{Type: types.FactTimeline, Value: "next year"},
			outcome:    OutcomeCommitNew,
			confidence: 0.8,
		},
		{
			name:       "new_sensitive_enqueues_without_old_value",
			cand:       match.Candidate{Type: types.FactDestination, Value: "Cyprus"},
			outcome:    OutcomeEnqueue,
			confidence: 0.5,
		},
		{
			name:     "routine_unchanged_ignored",
			cand:     match.Candidate{Type: types.FactTimeline, Value: "next year"},
			existing: activeFact(types.FactTimeline, "next year"),
			outcome:  OutcomeIgnore,
		},
		{
			name:       "routine_changed_supersedes",
			cand:       match.Candidate{Type: types.FactTimeline, Value: "in 6 months"},
			existing:   activeFact(types.FactTimeline, "next year"),
			outcome:    OutcomeSupersede,
			confidence: 0.8,
		},
		{
			name:     "sensitive_unchanged_ignored",
			cand:     match.Candidate{Type: types.FactDestination, Value: "spain "},
			existing: activeFact(types.FactDestination, "Spain"),
			outcome:  OutcomeIgnore,
		},
		{
			name:       "sensitive_changed_enqueues_with_old_value",
			cand:       match.Candidate{Type: types.FactDestination, Value: "Portugal"},
			existing:   activeFact(types.FactDestination, "Spain"),
			outcome:    OutcomeEnqueue,
			confidence: 0.4,
			oldValue:   strPtr("Spain"),
		},
		{
			name:     "blank_value_ignored",
			cand:     match.Candidate{Type: types.FactName, Value: "  "},
			outcome:  OutcomeIgnore,
			existing: nil,
		},
		{
			name:       "inactive_existing_treated_as_absent",
			cand:       match.Candidate{Type: types.FactBudget, Value: "$2000"},
			existing:   &types.Fact{ID: uuid.New(), FactType: types.FactBudget, Value: "$1000"},
			outcome:    OutcomeEnqueue,
			confidence: 0.5,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := eng.Decide(tc.cand, tc.existing)
			if d.Outcome != tc.outcome {
				t.Fatalf("outcome=%s want %s", d.Outcome, tc.outcome)
			}
			if d.Outcome == OutcomeIgnore {
				return
			}
			if d.Confidence != tc.confidence {
				t.Fatalf("confidence=%v want %v", d.Confidence, tc.confidence)
			}
			switch {
			case tc.oldValue == nil && d.OldValue != nil:
				t.Fatalf("old_value=%q want nil", *d.OldValue)
			case tc.oldValue != nil && (d.OldValue == nil || *d.OldValue != *tc.oldValue):
				t.Fatalf("old_value=%v want %q", d.OldValue, *tc.oldValue)
			}
			if d.Outcome == OutcomeSupersede && d.ExistingFactID != tc.existing.ID {
				t.Fatalf("existing fact id=%s want %s", d.ExistingFactID, tc.existing.ID)
			}
		})
	}
}

func TestEngine_CustomSensitiveSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SensitiveTypes = []types.FactType{types.FactTimeline}
	eng := NewEngine(cfg)

	if d := eng.Decide(match.Candidate{Type: types.FactDestination, Value: "Cyprus"}, nil); d.Outcome != OutcomeCommitNew {
		t.Fatalf("destination outcome=%s want commit_new", d.Outcome)
	}
	if d := eng.Decide(match.Candidate{Type: types.FactTimeline, Value: "next year"}, nil); d.Outcome != OutcomeEnqueue {
		t.Fatalf("timeline outcome=%s want enqueue", d.Outcome)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	body := "sensitive_types: [destination, nationality]\nconfidence:\n  new_sensitive: 0.6\npending_dedupe: latest\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(DefaultConfig(), path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(cfg.SensitiveTypes) != 2 || cfg.SensitiveTypes[1] != types.FactNationality {
		t.Fatalf("sensitive types: %v", cfg.SensitiveTypes)
	}
	if cfg.Confidence.NewSensitive != 0.6 || cfg.Confidence.NewRoutine != 0.8 {
		t.Fatalf("confidence: %+v", cfg.Confidence)
	}
	if cfg.PendingDedupe != DedupeLatest {
		t.Fatalf("dedupe: %q", cfg.PendingDedupe)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("sensitive_types: [shoe_size]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(DefaultConfig(), bad); err == nil {
		t.Fatalf("expected validation error for unknown type")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FACT_SENSITIVE_TYPES", "Budget, origin")
	t.Setenv("FACT_CONFIDENCE_CHANGED_SENSITIVE", "0.3")
	t.Setenv("FACT_PENDING_DEDUPE", "same_value")

	cfg, err := ApplyEnv(DefaultConfig())
	if err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if len(cfg.SensitiveTypes) != 2 || cfg.SensitiveTypes[0] != types.FactBudget {
		t.Fatalf("sensitive types: %v", cfg.SensitiveTypes)
	}
	if cfg.Confidence.ChangedSensitive != 0.3 || cfg.PendingDedupe != DedupeSameValue {
		t.Fatalf("cfg: %+v", cfg)
	}

	t.Setenv("FACT_CONFIDENCE_NEW_ROUTINE", "1.5")
	if _, err := ApplyEnv(DefaultConfig()); err == nil {
		t.Fatalf("expected out-of-range confidence to fail")
	}
}

func strPtr(s string) *string { return &s }
