package outbox

import (
	"time"
)

// OutboxMessage is an order event written durably inside the placement or
// status-update transaction, pending publication to RabbitMQ.
type OutboxMessage struct {
	ID           int64
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
