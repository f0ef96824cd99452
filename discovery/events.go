package discovery

import (
	"sync"
	"time"

	"github.com/skillsenselab/routekit/logger"
)

// EventKind identifies one of the five registry/health event kinds.
type EventKind string

const (
	EventServiceRegistered    EventKind = "service-registered"
	EventServiceDeregistered  EventKind = "service-deregistered"
	EventServiceRecovered     EventKind = "service-recovered"
	EventServiceFailed        EventKind = "service-failed"
	EventHealthCheckCompleted EventKind = "health-check-completed"
)

// Event is the closed payload union carried on the Bus. Which fields are set
// depends on Kind: instance-scoped kinds carry Service and Instance (plus Err
// for failures); health-check-completed carries only Summary.
type Event struct {
	Kind     EventKind                 `json:"kind"`
	Service  string                    `json:"service,omitempty"`
	Instance *ServiceInstance          `json:"instance,omitempty"`
	Err      string                    `json:"error,omitempty"`
	Summary  map[string]ServiceSummary `json:"summary,omitempty"`
	At       time.Time                 `json:"at"`
}

// subscriptionBuffer is the per-subscriber channel capacity. A subscriber
// that falls further behind than this loses events rather than blocking
// publishers.
const subscriptionBuffer = 64

// Subscription is one subscriber's view of the Bus.
type Subscription struct {
	kinds  map[EventKind]struct{}
	events chan Event
}

// Events returns the channel on which subscribed events are delivered.
// The channel is closed on Unsubscribe or when the Bus closes.
func (s *Subscription) Events() <-chan Event {
	return s.events
}

func (s *Subscription) wants(kind EventKind) bool {
	if len(s.kinds) == 0 {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}

// Bus is a synchronous in-process publish/subscribe hub for discovery events.
// Publish fans out to every matching subscriber's buffered channel without
// blocking; delivery is at-least-once while the subscriber keeps up.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	log    *logger.Logger
}

// NewBus creates an empty event bus.
func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		subs: make(map[*Subscription]struct{}),
		log:  log.WithComponent("events"),
	}
}

// Subscribe registers a subscriber for the given event kinds. With no kinds,
// the subscription receives every event. Subscribing to a closed bus returns
// a subscription whose channel is already closed.
func (b *Bus) Subscribe(kinds ...EventKind) *Subscription {
	sub := &Subscription{
		events: make(chan Event, subscriptionBuffer),
	}
	if len(kinds) > 0 {
		sub.kinds = make(map[EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			sub.kinds[k] = struct{}{}
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.events)
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// Unsubscribe removes a subscription and closes its channel. Safe to call
// more than once.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub]; !ok {
		return
	}
	delete(b.subs, sub)
	close(sub.events)
}

// Publish delivers an event to all matching subscribers. A subscriber whose
// buffer is full loses the event; publishers never block on slow consumers.
func (b *Bus) Publish(event Event) {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for sub := range b.subs {
		if !sub.wants(event.Kind) {
			continue
		}
		select {
		case sub.events <- event:
		default:
			b.log.Warn("subscriber buffer full, event dropped", map[string]interface{}{
				"kind":    string(event.Kind),
				"service": event.Service,
			})
		}
	}
}

// Close shuts down the bus and closes every subscriber channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		delete(b.subs, sub)
		close(sub.events)
	}
}
