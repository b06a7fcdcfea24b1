// Package eventbus routes change notifications from the polling
// sources to the decision engine over a bounded worker pool.
package eventbus

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// EventType identifies what changed.
type EventType string

const (
	EventPresenceChanged EventType = "presence_changed"
	EventCalendarChanged EventType = "calendar_changed"
	EventDevicesChanged  EventType = "devices_changed"
	EventAuthChanged     EventType = "auth_changed"
)

const (
	DefaultWorkerCount = 2
	DefaultQueueSize   = 64
)

// Event carries a change notification. Snapshots themselves live in
// observe cells; the event only says that a new one was published.
type Event struct {
	Type EventType
}

// Handler is a function that handles events.
type Handler func(Event)

type work struct {
	event   Event
	handler Handler
}

// Bus dispatches events to subscribed handlers using a bounded worker
// pool. Publishing never blocks: when the queue is full or the bus is
// closing, events are dropped (the safety recompute timer covers any
// missed notification).
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler

	workQueue chan work
	wg        sync.WaitGroup

	// Closing this channel signals publishers to stop.
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a bus with default sizing.
func New() *Bus {
	return NewWithConfig(DefaultWorkerCount, DefaultQueueSize)
}

// NewWithConfig creates a bus with a custom worker count and queue size.
func NewWithConfig(workerCount, queueSize int) *Bus {
	if workerCount <= 0 {
		workerCount = DefaultWorkerCount
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	b := &Bus{
		handlers:  make(map[EventType][]Handler),
		workQueue: make(chan work, queueSize),
		closing:   make(chan struct{}),
	}
	for i := 0; i < workerCount; i++ {
		b.wg.Add(1)
		go b.worker(i)
	}
	return b
}

func (b *Bus) worker(id int) {
	defer b.wg.Done()

	for w := range b.workQueue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(w.event.Type)).
						Int("worker", id).
						Msg("Event handler panicked")
				}
			}()
			w.handler(w.event)
		}()
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Publish sends an event to all subscribed handlers without blocking.
// The read lock excludes Close, so the queue cannot be closed under a
// publisher mid-send.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.closing:
		log.Warn().Str("event_type", string(event.Type)).Msg("Event bus closing, dropping event")
		return
	default:
	}

	for _, handler := range b.handlers[event.Type] {
		select {
		case b.workQueue <- work{event: event, handler: handler}:
		default:
			log.Warn().Str("event_type", string(event.Type)).Msg("Event bus queue full, dropping event")
		}
	}
}

// Close stops accepting events and waits for in-flight handlers, up to
// the context deadline.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.closing)
		close(b.workQueue)
		b.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
