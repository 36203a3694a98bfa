package match

import (
	"context"
	"iter"
	"sync"

	types "github.com/yungbote/relocation-backend/internal/domain/profile"
)

// Candidate is a provisional (type, value) pair, not yet committed.
type Candidate struct {
	Type    types.FactType
	Value   string
	Matcher string
}

// Registry maps fact types to ordered matcher lists. Types are evaluated in
// types.FactTypes order; within a type the first matching matcher wins.
type Registry struct {
	mu       sync.RWMutex
	matchers map[types.FactType][]Matcher
}

func NewRegistry() *Registry {
	return &Registry{matchers: map[types.FactType][]Matcher{}}
}

// Register appends matchers to the end of the type's list.
func (r *Registry) Register(ft types.FactType, ms ...Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range ms {
		if m != nil {
			r.matchers[ft] = append(r.matchers[ft], m)
		}
	}
}

// Types lists the fact types that have at least one matcher, in enumeration order.
func (r *Registry) Types() []types.FactType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.FactType, 0, len(r.matchers))
	for _, ft := range types.FactTypes {
		if len(r.matchers[ft]) > 0 {
			out = append(out, ft)
		}
	}
	return out
}

func (r *Registry) snapshot(ft types.FactType) []Matcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms := r.matchers[ft]
	out := make([]Matcher, len(ms))
	copy(out, ms)
	return out
}

// Candidates lazily yields at most one candidate per fact type.
func (r *Registry) Candidates(ctx context.Context, text string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		if text == "" {
			return
		}
		for _, ft := range r.Types() {
			if ctx.Err() != nil {
				return
			}
			for _, m := range r.snapshot(ft) {
				v, ok := m.TryMatch(ctx, text)
				if !ok {
					continue
				}
				if !yield(Candidate{Type: ft, Value: v, Matcher: m.Name()}) {
					return
				}
				break
			}
		}
	}
}

// Extract collects Candidates into a slice.
func (r *Registry) Extract(ctx context.Context, text string) []Candidate {
	var out []Candidate
	for c := range r.Candidates(ctx, text) {
		out = append(out, c)
	}
	return out
}
