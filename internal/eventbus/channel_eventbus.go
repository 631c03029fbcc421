package eventbus

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
)

// ChannelEventBus is an EventBus backed by a buffered channel and a small
// worker pool. Handlers run off the publishing goroutine; a slow handler
// never blocks request processing.
type ChannelEventBus struct {
	// subscribers maps event types to a map of subscription IDs to handlers
	subscribers map[EventType]map[string]EventHandler

	// allSubscribers receive every event regardless of type
	allSubscribers map[string]EventHandler

	eventChan chan eventWithContext
	done      chan struct{}
	closed    bool
	wg        sync.WaitGroup
	mutex     sync.RWMutex

	bufferSize  int
	workerCount int
}

// eventWithContext bundles an event with the context it was published under
type eventWithContext struct {
	ctx   context.Context
	event Event
}

// ChannelEventBusOption configures the channel-based event bus
type ChannelEventBusOption func(*ChannelEventBus)

// WithBufferSize sets the event channel buffer size
func WithBufferSize(size int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.bufferSize = size
	}
}

// WithWorkerCount sets the number of event processing workers
func WithWorkerCount(count int) ChannelEventBusOption {
	return func(eb *ChannelEventBus) {
		eb.workerCount = count
	}
}

// NewChannelEventBus creates a new channel-based event bus and starts its
// worker pool.
func NewChannelEventBus(options ...ChannelEventBusOption) *ChannelEventBus {
	eb := &ChannelEventBus{
		subscribers:    make(map[EventType]map[string]EventHandler),
		allSubscribers: make(map[string]EventHandler),
		done:           make(chan struct{}),
		bufferSize:     100,
		workerCount:    5,
	}

	for _, option := range options {
		option(eb)
	}

	eb.eventChan = make(chan eventWithContext, eb.bufferSize)

	for i := 0; i < eb.workerCount; i++ {
		eb.wg.Add(1)
		go eb.worker()
	}

	return eb
}

func (eb *ChannelEventBus) worker() {
	defer eb.wg.Done()

	for {
		select {
		case <-eb.done:
			return
		case evt := <-eb.eventChan:
			eb.processEvent(evt)
		}
	}
}

// processEvent dispatches the event to all relevant subscribers.
func (eb *ChannelEventBus) processEvent(evt eventWithContext) {
	if evt.ctx.Err() != nil {
		return
	}

	// Copy handler maps so handlers can subscribe/unsubscribe without
	// deadlocking against the dispatch.
	eb.mutex.RLock()
	handlers := make([]EventHandler, 0, len(eb.allSubscribers))
	if typed, exists := eb.subscribers[evt.event.Type()]; exists {
		for _, handler := range typed {
			handlers = append(handlers, handler)
		}
	}
	for _, handler := range eb.allSubscribers {
		handlers = append(handlers, handler)
	}
	eb.mutex.RUnlock()

	for _, handler := range handlers {
		if evt.ctx.Err() != nil {
			return
		}
		if err := handler(evt.ctx, evt.event); err != nil {
			// A failing handler must not stop the others.
			log.Printf("Event handler error (event_type: %s): %v", evt.event.Type(), err)
		}
	}
}

// Publish queues an event for delivery to all subscribed handlers.
func (eb *ChannelEventBus) Publish(ctx context.Context, event Event) error {
	eb.mutex.RLock()
	closed := eb.closed
	eb.mutex.RUnlock()
	if closed {
		return fmt.Errorf("event bus is closed")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-eb.done:
		return fmt.Errorf("event bus is closed")
	case eb.eventChan <- eventWithContext{ctx: ctx, event: event}:
		return nil
	}
}

// Subscribe registers a handler for specific event types
func (eb *ChannelEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}
	for _, eventType := range eventTypes {
		if _, exists := eb.subscribers[eventType]; !exists {
			eb.subscribers[eventType] = make(map[string]EventHandler)
		}
		eb.subscribers[eventType][subscriptionID] = handler
	}

	return subscriptionID, nil
}

// SubscribeAll registers a handler for all event types
func (eb *ChannelEventBus) SubscribeAll(handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}

	subscriptionID := uuid.New().String()

	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	if eb.closed {
		return "", fmt.Errorf("event bus is closed")
	}
	eb.allSubscribers[subscriptionID] = handler

	return subscriptionID, nil
}

// Unsubscribe removes a subscription by ID
func (eb *ChannelEventBus) Unsubscribe(subscriptionID string) error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	delete(eb.allSubscribers, subscriptionID)
	for eventType := range eb.subscribers {
		delete(eb.subscribers[eventType], subscriptionID)
	}

	return nil
}

// Close shuts down the event bus, cleaning up resources
func (eb *ChannelEventBus) Close() error {
	eb.mutex.Lock()
	if eb.closed {
		eb.mutex.Unlock()
		return nil
	}
	eb.closed = true
	eb.mutex.Unlock()

	close(eb.done)
	eb.wg.Wait()

	return nil
}
