// Package events provides the in-process event bus used to surface pipeline
// progress to observers such as the approval bot and the CLI.
package events

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// EventType classifies bus events.
type EventType string

const (
	CycleStarted      EventType = "cycle.started"
	CycleCompleted    EventType = "cycle.completed"
	CycleFailed       EventType = "cycle.failed"
	AwaitingApproval  EventType = "cycle.awaiting_approval"
	CycleResumed      EventType = "cycle.resumed"
	PublishScheduled  EventType = "publish.scheduled"
	SchedulerPaused   EventType = "scheduler.paused"
	SchedulerResumed  EventType = "scheduler.resumed"
	LearningCompleted EventType = "learning.completed"
)

// Event is one bus message.
type Event struct {
	Type      EventType      `json:"type"`
	ThreadID  string         `json:"thread_id,omitempty"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Bus distributes events to subscribers through buffered channels. Publish
// never blocks; events are dropped for subscribers whose buffer is full so a
// slow consumer cannot stall the orchestrator.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	ch    chan Event
	types map[EventType]bool
}

// NewBus returns a ready bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]*subscriber)}
}

// Publish delivers the event to every matching subscriber. It errors only
// when the bus has been closed.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("event bus is closed")
	}

	for _, sub := range b.subs {
		if len(sub.types) > 0 && !sub.types[event.Type] {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			// Full buffer: drop for this subscriber only.
		}
	}
	return nil
}

// Subscribe registers a subscriber for the given event types (none means
// all). The returned cancel function must be called to release the
// subscription.
func (b *Bus) Subscribe(bufferSize int, eventTypes ...EventType) (<-chan Event, func()) {
	if bufferSize <= 0 {
		bufferSize = 16
	}

	sub := &subscriber{ch: make(chan Event, bufferSize)}
	if len(eventTypes) > 0 {
		sub.types = make(map[EventType]bool, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = true
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	if !b.closed {
		b.subs[id] = sub
	} else {
		close(sub.ch)
	}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub.ch, cancel
}

// Close shuts the bus down; all subscriber channels are closed.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
	return nil
}
