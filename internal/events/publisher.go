// Package events defines the best-effort catalog event publisher. Publishing
// is fire-and-forget: the write path never depends on its outcome.
package events

import "context"

// Event topics.
const (
	TopicEntryUpserted = "catalog.entry.upserted"
	TopicSkillUpserted = "catalog.skill.upserted"
	TopicEntryDead     = "catalog.entry.dead"
)

// Publisher delivers catalog events to interested consumers.
type Publisher interface {
	// Publish sends payload to topic and returns a provider message id.
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Noop discards every event.
type Noop struct{}

// Publish does nothing.
func (Noop) Publish(context.Context, string, any) (string, error) { return "noop", nil }
