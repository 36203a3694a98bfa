package policy

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/envutil"
)

// DedupeMode controls how enqueue treats existing pending rows of the same type.
type DedupeMode string

const (
	// DedupeNone appends every detected change.
	DedupeNone DedupeMode = "none"
	// DedupeSameValue reuses a pending row proposing the same value.
	DedupeSameValue DedupeMode = "same_value"
	// DedupeLatest rejects older pending rows of the type when a new one is enqueued.
	DedupeLatest DedupeMode = "latest"
)

func (m DedupeMode) Valid() bool {
	switch m {
	case DedupeNone, DedupeSameValue, DedupeLatest:
		return true
	default:
		return false
	}
}

type Confidence struct {
	NewRoutine       float64 `yaml:"new_routine"`
	UpdateRoutine    float64 `yaml:"update_routine"`
	NewSensitive     float64 `yaml:"new_sensitive"`
	ChangedSensitive float64 `yaml:"changed_sensitive"`
}

type Config struct {
	SensitiveTypes []types.FactType `yaml:"sensitive_types"`
	Confidence     Confidence       `yaml:"confidence"`
	PendingDedupe  DedupeMode       `yaml:"pending_dedupe"`
}

func DefaultConfig() Config {
	return Config{
		SensitiveTypes: []types.FactType{types.FactDestination, types.FactOrigin, types.FactBudget},
		Confidence: Confidence{
			NewRoutine:       0.8,
			UpdateRoutine:    0.8,
			NewSensitive:     0.5,
			ChangedSensitive: 0.4,
		},
		PendingDedupe: DedupeNone,
	}
}

// LoadFile overlays a YAML policy file on cfg. Keys absent from the file keep
// their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read policy file: %w", err)
	}
	out := cfg
	out.SensitiveTypes = append([]types.FactType(nil), cfg.SensitiveTypes...)
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return cfg, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	return out, out.Validate()
}

// ApplyEnv overlays FACT_* environment variables on cfg.
func ApplyEnv(cfg Config) (Config, error) {
	if raw := envutil.CSV("FACT_SENSITIVE_TYPES", nil); raw != nil {
		cfg.SensitiveTypes = make([]types.FactType, 0, len(raw))
		for _, s := range raw {
			cfg.SensitiveTypes = append(cfg.SensitiveTypes, types.FactType(strings.ToLower(s)))
		}
	}
	cfg.Confidence.NewRoutine = envutil.Float("FACT_CONFIDENCE_NEW_ROUTINE", cfg.Confidence.NewRoutine)
	cfg.Confidence.UpdateRoutine = envutil.Float("FACT_CONFIDENCE_UPDATE_ROUTINE", cfg.Confidence.UpdateRoutine)
	cfg.Confidence.NewSensitive = envutil.Float("FACT_CONFIDENCE_NEW_SENSITIVE", cfg.Confidence.NewSensitive)
	cfg.Confidence.ChangedSensitive = envutil.Float("FACT_CONFIDENCE_CHANGED_SENSITIVE", cfg.Confidence.ChangedSensitive)
	cfg.PendingDedupe = DedupeMode(strings.ToLower(envutil.String("FACT_PENDING_DEDUPE", string(cfg.PendingDedupe))))
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	for _, ft := range c.SensitiveTypes {
		if _, ok := types.ParseFactType(string(ft)); !ok {
			return fmt.Errorf("policy: unknown sensitive fact type %q", ft)
		}
	}
	for name, v := range map[string]float64{
		"new_routine":       c.Confidence.NewRoutine,
		"update_routine":    c.Confidence.UpdateRoutine,
		"new_sensitive":     c.Confidence.NewSensitive,
		"changed_sensitive": c.Confidence.ChangedSensitive,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("policy: confidence %s=%v outside [0,1]", name, v)
		}
	}
	if !c.PendingDedupe.Valid() {
		return fmt.Errorf("policy: unknown pending_dedupe %q", c.PendingDedupe)
	}
	return nil
}
