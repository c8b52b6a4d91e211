package event

import "time"

// Event names carried both on the websocket channel and as RabbitMQ
// routing-key suffixes. The payload for both is the full order.
const (
	NewOrder           = "new_order"
	OrderStatusUpdated = "order_status_updated"
)

// RabbitMQ routing for durable order-event publication.
const (
	Exchange              = "orders"
	RoutingKeyCreated     = "order.created"
	RoutingKeyStatusMoved = "order.status_updated"
)

// Envelope is the wire format of a published order event.
type Envelope struct {
	Event      string      `json:"event"`
	OccurredAt time.Time   `json:"occurredAt"`
	Payload    interface{} `json:"payload"`
}
