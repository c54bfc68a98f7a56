package bus

import "sync"

// Topics announced across the dashboard.
const (
	TopicVideoUpdated      = "video-updated"
	TopicTeamMemberUpdated = "team-member-updated"
)

type Handler func(payload any)

type subscription struct {
	id      int
	handler Handler
}

// Bus is a process-wide synchronous publish/subscribe service. Publish runs
// every currently subscribed handler once, in subscription order, on the
// calling goroutine. There is no persistence and no replay: a subscriber
// that attaches after a publish never sees it, and reads the cache directly
// for current state instead.
type Bus struct {
	mu     sync.Mutex
	nextID int
	topics map[string][]subscription
}

func New() *Bus {
	return &Bus{topics: make(map[string][]subscription)}
}

// Subscribe registers a handler and returns its unsubscribe function, to be
// called on component teardown.
func (b *Bus) Subscribe(topic string, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.topics[topic] = append(b.topics[topic], subscription{id: id, handler: handler})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.topics[topic]
		for i, sub := range subs {
			if sub.id == id {
				b.topics[topic] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish fans the payload out to every handler subscribed at call time.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	subs := b.topics[topic]
	handlers := make([]Handler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	b.mu.Unlock()

	for _, handler := range handlers {
		handler(payload)
	}
}
