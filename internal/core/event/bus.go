package event

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/heera-08/voice-ai/pkg/logger"
	"go.uber.org/zap"
)

// Handler represents a function that handles call events.
type Handler func(event *CallEvent)

// Bus defines the interface for event bus operations.
type Bus interface {
	Publish(event *CallEvent)
	Subscribe(eventType Type, handler Handler) (unsubscribe func())
	SubscribeAll(handler Handler) (unsubscribe func())
	Close()
}

// DefaultBus is the in-process implementation of Bus. Handlers run
// asynchronously with panic recovery, so a broken subscriber can never take
// down a webhook handler.
type DefaultBus struct {
	mutex       sync.RWMutex
	subscribers map[Type]map[string]Handler
	wildcards   map[string]Handler
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewBus creates a new event bus instance.
func NewBus() *DefaultBus {
	ctx, cancel := context.WithCancel(context.Background())
	return &DefaultBus{
		subscribers: make(map[Type]map[string]Handler),
		wildcards:   make(map[string]Handler),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Publish delivers the event to every subscriber of its type plus all
// wildcard subscribers. Delivery is asynchronous and best-effort.
func (b *DefaultBus) Publish(event *CallEvent) {
	select {
	case <-b.ctx.Done():
		return
	default:
	}

	b.mutex.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Type])+len(b.wildcards))
	for _, h := range b.subscribers[event.Type] {
		handlers = append(handlers, h)
	}
	for _, h := range b.wildcards {
		handlers = append(handlers, h)
	}
	b.mutex.RUnlock()

	for _, handler := range handlers {
		go func(h Handler) {
			defer func() {
				if r := recover(); r != nil {
					logger.Base().Error("Event handler panic",
						zap.String("type", string(event.Type)),
						zap.Any("panic", r))
				}
			}()
			h(event)
		}(handler)
	}
}

// Subscribe registers a handler for one event type. The returned function
// removes the subscription.
func (b *DefaultBus) Subscribe(eventType Type, handler Handler) func() {
	id := uuid.NewString()

	b.mutex.Lock()
	if b.subscribers[eventType] == nil {
		b.subscribers[eventType] = make(map[string]Handler)
	}
	b.subscribers[eventType][id] = handler
	b.mutex.Unlock()

	return func() {
		b.mutex.Lock()
		delete(b.subscribers[eventType], id)
		b.mutex.Unlock()
	}
}

// SubscribeAll registers a handler for every event type.
func (b *DefaultBus) SubscribeAll(handler Handler) func() {
	id := uuid.NewString()

	b.mutex.Lock()
	b.wildcards[id] = handler
	b.mutex.Unlock()

	return func() {
		b.mutex.Lock()
		delete(b.wildcards, id)
		b.mutex.Unlock()
	}
}

// Close stops the bus; subsequent publishes are dropped.
func (b *DefaultBus) Close() {
	b.cancel()
}
