package kafka

import (
	"encoding/json"
	"time"
)

// Topics.
const (
	TopicOrderEvents     = "storefront.order.events"
	TopicDeadLetterQueue = "storefront.dlq"
)

// Заголовки сообщений.
const (
	HeaderEventType  = "x-event-type"
	HeaderOutboxID   = "x-outbox-id"
	HeaderDeadLetter = "x-dead-letter"
)

// Envelope — формат сообщения, которое видят подписчики топика.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}
