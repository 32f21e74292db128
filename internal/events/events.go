// Package events publishes ledger notifications: recorded transactions,
// completed or failed transfers and commission payouts.
package events

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Routing keys of ledger notifications.
const (
	TransactionRecorded = "transaction.recorded"
	TransferCompleted   = "transfer.completed"
	TransferFailed      = "transfer.failed"
	CommissionPayout    = "commission.payout"
)

// Event is a single ledger notification.
type Event struct {
	Key        string         `json:"key"`
	OwnerID    string         `json:"owner_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// New creates an event stamped with the current time.
func New(key, ownerID string, payload map[string]any) Event {
	return Event{Key: key, OwnerID: ownerID, OccurredAt: time.Now().UTC(), Payload: payload}
}

// Publisher delivers ledger events. Publishing happens after the unit of work
// has committed or rolled back; a delivery failure never changes its outcome.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// LogPublisher writes events to the structured log.
type LogPublisher struct {
	log *zap.SugaredLogger
}

// NewLogPublisher creates a publisher that logs every event at info level.
func NewLogPublisher(log *zap.SugaredLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.log.Infow("ledger event", "key", event.Key, "owner_id", event.OwnerID, "payload", event.Payload)
	return nil
}

// Nop discards every event.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several publishers, returning the first error.
type Multi []Publisher

// Publish delivers event to every publisher.
func (m Multi) Publish(ctx context.Context, event Event) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
