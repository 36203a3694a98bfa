package match

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

// Completer runs one chat completion that must answer with a JSON object.
type Completer interface {
	CompleteJSON(ctx context.Context, system, user string) (string, error)
}

const extractSystemPrompt = `You extract relocation profile facts from a conversation turn.
Answer with a JSON object {"facts": {"<fact_type>": "<value>"}} using only these fact types: %s.
Copy each value verbatim from the text. Omit a type when the text does not state it. Do not guess.`

// DefaultFailureTTL is how long a failed completion suppresses new calls for
// the same text.
const DefaultFailureTTL = 30 * time.Second

// LLMExtractor asks a model for all fact types at once and caches the answer
// per text, so the per-type matchers it hands out cost one call per turn.
// Failures are remembered for a short TTL so a failing model is also called
// at most once per turn.
type LLMExtractor struct {
	completer Completer
	log       *logger.Logger
	types     []types.FactType
	cache     *lru.Cache[string, map[types.FactType]string]
	failures  *expirable.LRU[string, struct{}]
	size      int
	group     singleflight.Group
}

func NewLLMExtractor(completer Completer, baseLog *logger.Logger, factTypes []types.FactType, cacheSize int) (*LLMExtractor, error) {
	if completer == nil {
		return nil, fmt.Errorf("llm extractor: completer is required")
	}
	if cacheSize <= 0 {
		cacheSize = 256
	}
	if len(factTypes) == 0 {
		factTypes = types.FactTypes
	}
	cache, err := lru.New[string, map[types.FactType]string](cacheSize)
	if err != nil {
		return nil, err
	}
	return &LLMExtractor{
		completer: completer,
		log:       baseLog.With("component", "LLMExtractor"),
		types:     append([]types.FactType(nil), factTypes...),
		cache:     cache,
		failures:  expirable.NewLRU[string, struct{}](cacheSize, nil, DefaultFailureTTL),
		size:      cacheSize,
	}, nil
}

// WithFailureTTL replaces the failure memo with one using ttl.
func (e *LLMExtractor) WithFailureTTL(ttl time.Duration) *LLMExtractor {
	if ttl > 0 {
		e.failures = expirable.NewLRU[string, struct{}](e.size, nil, ttl)
	}
	return e
}

// Extract returns the model's facts for text. Failures are logged, yield an
// empty result and suppress further calls for the same text until the
// failure TTL lapses.
func (e *LLMExtractor) Extract(ctx context.Context, text string) map[types.FactType]string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	key := hashText(text)
	if v, ok := e.cache.Get(key); ok {
		return v
	}
	if e.failures.Contains(key) {
		return nil
	}
	v, err, _ := e.group.Do(key, func() (interface{}, error) {
		if v, ok := e.cache.Get(key); ok {
			return v, nil
		}
		if e.failures.Contains(key) {
			return nil, errSuppressed
		}
		facts, err := e.complete(ctx, text)
		if err != nil {
			e.failures.Add(key, struct{}{})
			return nil, err
		}
		e.cache.Add(key, facts)
		return facts, nil
	})
	if err != nil {
		if !errors.Is(err, errSuppressed) {
			e.log.Warn("llm extraction failed", "error", err)
		}
		return nil
	}
	return v.(map[types.FactType]string)
}

var errSuppressed = errors.New("llm extraction suppressed after recent failure")

func (e *LLMExtractor) complete(ctx context.Context, text string) (map[types.FactType]string, error) {
	names := make([]string, 0, len(e.types))
	for _, ft := range e.types {
		names = append(names, string(ft))
	}
	system := fmt.Sprintf(extractSystemPrompt, strings.Join(names, ", "))
	raw, err := e.completer.CompleteJSON(ctx, system, text)
	if err != nil {
		return nil, err
	}
	return parseLLMFacts(raw, e.types)
}

// Matcher adapts the extractor to a single fact type.
func (e *LLMExtractor) Matcher(ft types.FactType) Matcher {
	return &llmMatcher{ext: e, ft: ft}
}

type llmMatcher struct {
	ext *LLMExtractor
	ft  types.FactType
}

func (m *llmMatcher) Name() string { return "llm:" + string(m.ft) }

func (m *llmMatcher) TryMatch(ctx context.Context, text string) (string, bool) {
	v := strings.TrimSpace(m.ext.Extract(ctx, text)[m.ft])
	return v, v != ""
}

func parseLLMFacts(raw string, allowed []types.FactType) (map[types.FactType]string, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var payload struct {
		Facts map[string]any `json:"facts"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &payload); err != nil {
		return nil, fmt.Errorf("decode llm facts: %w", err)
	}
	ok := make(map[types.FactType]bool, len(allowed))
	for _, ft := range allowed {
		ok[ft] = true
	}
	out := map[types.FactType]string{}
	for k, v := range payload.Facts {
		ft, known := types.ParseFactType(k)
		if !known || !ok[ft] {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = t
		case float64:
			s = strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%f", t), "0"), ".")
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			out[ft] = s
		}
	}
	return out, nil
}

func hashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
