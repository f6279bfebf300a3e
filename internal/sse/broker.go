package sse

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tagview/tagview-server/internal/id"
	"github.com/tagview/tagview-server/internal/viewer"
)

// ErrClosed is returned by Subscribe after Shutdown.
var ErrClosed = errors.New("sse: broker closed")

// subscriberBuffer is how many events a slow subscriber may lag behind
// before events are dropped for it.
const subscriberBuffer = 16

// Subscriber is one stream following one session.
type Subscriber struct {
	ConnectedAt time.Time
	Events      chan Event
	Done        chan struct{}
	ID          string
	SessionID   string

	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.Done) })
}

// Broker fans session changes out to the streams subscribed to them. It
// implements viewer.Observer.
type Broker struct {
	subscribers map[string][]*Subscriber // sessionID -> subscribers
	logger      *slog.Logger
	mu          sync.RWMutex
	closed      bool
}

// NewBroker creates a new Broker.
func NewBroker(logger *slog.Logger) *Broker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Broker{
		subscribers: make(map[string][]*Subscriber),
		logger:      logger,
	}
}

// Subscribe creates a subscriber for a session.
// The caller must call Unsubscribe when done to prevent leaks.
func (b *Broker) Subscribe(sessionID string) (*Subscriber, error) {
	clientID, err := id.Generate("sub")
	if err != nil {
		return nil, err
	}
	sub := &Subscriber{
		ID:          clientID,
		SessionID:   sessionID,
		Events:      make(chan Event, subscriberBuffer),
		Done:        make(chan struct{}),
		ConnectedAt: time.Now(),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	b.subscribers[sessionID] = append(b.subscribers[sessionID], sub)
	total := len(b.subscribers[sessionID])
	b.mu.Unlock()

	b.logger.Debug("stream subscriber added",
		slog.String("session_id", sessionID),
		slog.String("client_id", clientID),
		slog.Int("session_subscribers", total))

	return sub, nil
}

// Unsubscribe removes a subscriber and closes its Done channel.
func (b *Broker) Unsubscribe(sub *Subscriber) {
	b.mu.Lock()
	subs := b.subscribers[sub.SessionID]
	for i, s := range subs {
		if s == sub {
			b.subscribers[sub.SessionID] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subscribers[sub.SessionID]) == 0 {
		delete(b.subscribers, sub.SessionID)
	}
	b.mu.Unlock()

	sub.close()

	b.logger.Debug("stream subscriber removed",
		slog.String("session_id", sub.SessionID),
		slog.String("client_id", sub.ID),
		slog.Duration("duration", time.Since(sub.ConnectedAt)))
}

// SessionChanged publishes a state snapshot to the session's subscribers.
func (b *Broker) SessionChanged(sessionID string, state viewer.State) {
	b.Publish(sessionID, NewSessionUpdatedEvent(sessionID, state))
}

// Publish delivers event to every subscriber of sessionID without blocking.
// Subscribers that are too far behind miss the event.
func (b *Broker) Publish(sessionID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	subs := b.subscribers[sessionID]
	if len(subs) == 0 {
		return
	}

	var delivered, dropped int
	for _, sub := range subs {
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow client",
				slog.String("client_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	b.logger.Debug("session event broadcast",
		slog.String("session_id", sessionID),
		slog.String("event_type", string(event.Type)),
		slog.Int("delivered", delivered),
		slog.Int("dropped", dropped))
}

// SubscriberCount returns the total number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscribers {
		count += len(subs)
	}
	return count
}

// Shutdown closes every stream and rejects new subscribers.
func (b *Broker) Shutdown() error {
	b.mu.Lock()
	b.closed = true
	var all []*Subscriber
	for _, subs := range b.subscribers {
		all = append(all, subs...)
	}
	b.mu.Unlock()

	for _, sub := range all {
		sub.close()
	}
	b.logger.Info("stream broker shut down", slog.Int("closed_streams", len(all)))
	return nil
}

var _ viewer.Observer = (*Broker)(nil)
