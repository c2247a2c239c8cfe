package events

import (
	"log/slog"
	"sync"
)

// Publisher is the fire-and-forget sink for observer notifications. The
// registry and session managers never block on it and never treat a
// publish failure as a domain error.
type Publisher interface {
	Publish(event Event)
}

// NoopPublisher discards every event. Useful when nothing downstream cares
// to observe bridge/session lifecycle.
type NoopPublisher struct{}

// NewNoopPublisher returns a publisher that discards all events.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (NoopPublisher) Publish(Event) {}

// LoggingPublisher logs every event at debug level. Useful for development
// and for tests that want to eyeball the event stream without wiring a
// subscriber.
type LoggingPublisher struct {
	logger *slog.Logger
}

// NewLoggingPublisher creates a publisher that logs events.
func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) Publish(event Event) {
	p.logger.Debug("event", "type", event.Type(), "time", event.Timestamp())
}

// Subscriber receives events synchronously through a callback. Multiple
// subscribers may be registered; Publish notifies them in registration
// order (event emission is ordered per emitter, per the concurrency model).
type Subscriber func(Event)

// FanOut is an in-process Publisher that notifies a set of Subscribers.
// It is the production default: the registry and session managers hold one
// FanOut each and callers subscribe to observe lifecycle events.
type FanOut struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewFanOut creates an empty FanOut publisher.
func NewFanOut() *FanOut {
	return &FanOut{}
}

// Subscribe registers fn to be called for every future published event.
func (f *FanOut) Subscribe(fn Subscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribers = append(f.subscribers, fn)
}

// Publish notifies all subscribers in registration order.
func (f *FanOut) Publish(event Event) {
	f.mu.RLock()
	subs := make([]Subscriber, len(f.subscribers))
	copy(subs, f.subscribers)
	f.mu.RUnlock()

	for _, sub := range subs {
		sub(event)
	}
}

var _ Publisher = (*NoopPublisher)(nil)
var _ Publisher = (*LoggingPublisher)(nil)
var _ Publisher = (*FanOut)(nil)
