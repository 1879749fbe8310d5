/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventRows   EventType = "board.rows"
	EventStops  EventType = "board.stops"
	EventClock  EventType = "board.clock"
	EventFooter EventType = "board.footer"
)

// BoardEvents lists every event a board view is built from.
var BoardEvents = []EventType{EventRows, EventStops, EventClock, EventFooter}

// Payload generic event payload.
type Payload map[string]any

// Event is a published payload tagged with its type.
type Event struct {
	Type    EventType `json:"type"`
	Payload Payload   `json:"payload"`
}

// Subscriber receives events.
type Subscriber chan Event

const subscriberBuffer = 64

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers one subscriber for all the given event types.
func (b *Bus) Subscribe(eventTypes ...EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	for _, t := range eventTypes {
		b.subs[t] = append(b.subs[t], ch)
	}
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers miss events
// rather than block the publisher. The read lock is held across the sends
// so Unsubscribe cannot close a channel mid-publish.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	ev := Event{Type: eventType, Payload: payload}
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Unsubscribe removes the subscriber from every event type and closes it.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	found := false
	for t, subs := range b.subs {
		for i, candidate := range subs {
			if candidate == sub {
				b.subs[t] = append(subs[:i:i], subs[i+1:]...)
				found = true
				break
			}
		}
	}
	if found {
		close(sub)
	}
}
