package realtime

import (
	"strings"
	"sync"

	"github.com/yungbote/relocation-backend/internal/platform/logger"
)

// DefaultSubscriberBuffer is the outbound queue length of one stream.
const DefaultSubscriberBuffer = 16

// Subscriber receives the events of one channel until it is unsubscribed.
type Subscriber struct {
	channel string
	out     chan Event
}

func (s *Subscriber) Channel() string { return s.channel }

// Events is closed by Hub.Unsubscribe.
func (s *Subscriber) Events() <-chan Event { return s.out }

// Hub fans bus events out to the streams open on this instance. Dispatch is
// the bus forwarder callback and never blocks: a subscriber with a full
// buffer misses the event.
type Hub struct {
	mu     sync.RWMutex
	log    *logger.Logger
	subs   map[string]map[*Subscriber]struct{}
	closed bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:  log.With("component", "RealtimeHub"),
		subs: map[string]map[*Subscriber]struct{}{},
	}
}

func (h *Hub) Subscribe(channel string, buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	s := &Subscriber{channel: strings.TrimSpace(channel), out: make(chan Event, buffer)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.out)
		return s
	}
	set, ok := h.subs[s.channel]
	if !ok {
		set = map[*Subscriber]struct{}{}
		h.subs[s.channel] = set
	}
	set[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Unsubscribe is idempotent.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[s.channel]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(h.subs, s.channel)
	}
	close(s.out)
}

// Close ends every open stream. Later subscribers get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for s := range set {
			close(s.out)
		}
	}
	h.subs = map[string]map[*Subscriber]struct{}{}
}

func (h *Hub) Dispatch(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs[ev.Channel] {
		select {
		case s.out <- ev:
		default:
			h.log.Warn("Dropping realtime event; subscriber buffer full", "channel", ev.Channel, "event", ev.Type)
		}
	}
}

// Subscribers reports how many streams are open on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
