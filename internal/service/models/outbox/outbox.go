package outbox

import (
	"time"
)

// Event routing keys for order lifecycle messages.
const (
	EventOrderPlaced    = "order.placed"
	EventOrderPaid      = "order.paid"
	EventOrderDelivered = "order.delivered"
)

// OutboxMessage is an event stored in the same transaction as the state
// change it describes and published to RabbitMQ later.
type OutboxMessage struct {
	ID           int64     `db:"id"`
	ExchangeName string    `db:"exchange_name"`
	RoutingKey   string    `db:"routing_key"`
	Payload      []byte    `db:"payload"`
	ContentType  string    `db:"content_type"`
	RetryCount   int       `db:"retry_count"`
	MaxRetries   int       `db:"max_retries"`
	LastError    string    `db:"last_error"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	NextRetryAt  time.Time `db:"next_retry_at"`
}
