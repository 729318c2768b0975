// Package memory records catalog events in process so tests can assert on
// the service's fire-and-forget publishes.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Event is one recorded publish.
type Event struct {
	Topic   string
	Payload any
}

// Publisher records every published catalog event in arrival order.
type Publisher struct {
	mu     sync.Mutex
	events []Event
}

// New returns an empty recorder.
func New() *Publisher {
	return &Publisher{}
}

// Publish appends the event and returns a sequence-numbered id.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, Event{Topic: topic, Payload: payload})
	return fmt.Sprintf("seq-%d", len(p.events)), nil
}

// Events returns a copy of everything recorded so far.
func (p *Publisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// ByTopic returns the recorded events for one topic.
func (p *Publisher) ByTopic(topic string) []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []Event
	for _, e := range p.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}
