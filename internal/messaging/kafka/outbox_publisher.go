package kafka

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxPublisher отправляет outbox-сообщения в один топик с ключом по ID агрегата.
type OutboxPublisher struct {
	producer   *Producer
	topic      string
	deadLetter bool
}

// NewOutboxPublisher создаёт publisher основного топика событий.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxPublisher{producer: producer, topic: topic}
}

// NewDLQPublisher создаёт publisher для сообщений, исчерпавших попытки.
func NewDLQPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicDeadLetterQueue
	}
	return &OutboxPublisher{producer: producer, topic: topic, deadLetter: true}
}

func (p *OutboxPublisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}

	key := msg.AggregateID
	if key == "" {
		key = msg.ID
	}
	headers := map[string]string{
		HeaderEventType: msg.EventType,
		HeaderOutboxID:  msg.ID,
	}
	if p.deadLetter {
		headers[HeaderDeadLetter] = "true"
	}

	value, err := json.Marshal(Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       json.RawMessage(msg.Payload),
		PublishedAt:   time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: encode outbox %s: %w", msg.ID, err)
	}
	_, _, err = p.producer.Send(Record{Topic: p.topic, Key: key, Value: value, Headers: headers})
	return err
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
