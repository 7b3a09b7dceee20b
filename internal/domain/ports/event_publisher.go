package ports

import "context"

// Event types published after ledger transactions commit
const (
	EventPaymentCompleted = "payment.completed"
	EventPaymentCancelled = "payment.cancelled"
	EventPaymentFailed    = "payment.failed"
	EventPayoutRequested  = "payout.requested"
)

// EventPublisher publishes domain events to downstream consumers.
// Publishing is best effort; callers log failures and carry on.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
	Close() error
}
