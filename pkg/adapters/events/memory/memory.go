package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aescanero/irrigation/pkg/domain"
	"github.com/aescanero/irrigation/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrClosed is returned when subscribing to a closed bus.
var ErrClosed = errors.New("event bus closed")

type subscription struct {
	id      string
	handler ports.EventHandler
}

// InMemoryEventBus implements EventBus by calling subscribers inline.
// Events are delivered in publish order; handlers must not block.
type InMemoryEventBus struct {
	subscribers map[string][]subscription
	closed      bool
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		subscribers: make(map[string][]subscription),
		logger:      logger,
	}
}

// Publish delivers an event to every subscriber of a topic
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	e.mu.RLock()
	subs := make([]subscription, len(e.subscribers[topic]))
	copy(subs, e.subscribers[topic])
	e.mu.RUnlock()

	for _, sub := range subs {
		if err := sub.handler(ctx, event); err != nil {
			e.logger.Debug("subscriber rejected event",
				zap.String("subscription", sub.id),
				zap.String("topic", topic),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}

	return nil
}

// Subscribe registers a handler until ctx is cancelled
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	sub := subscription{id: uuid.New().String(), handler: handler}
	e.subscribers[topic] = append(e.subscribers[topic], sub)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.unsubscribe(topic, sub.id)
	}()

	return nil
}

// SubscriberCount returns the number of live subscriptions on a topic
func (e *InMemoryEventBus) SubscriberCount(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.subscribers[topic])
}

// Close drops all subscribers and rejects new ones
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	e.subscribers = make(map[string][]subscription)
	return nil
}

func (e *InMemoryEventBus) unsubscribe(topic, id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, sub := range subs {
		if sub.id == id {
			e.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.subscribers[topic]) == 0 {
		delete(e.subscribers, topic)
	}
}
