package kafka

import (
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

// Record — готовое к отправке сообщение: тело уже сериализовано.
type Record struct {
	Topic   string
	Key     string
	Value   []byte
	Headers map[string]string
}

func (r Record) toSarama() *sarama.ProducerMessage {
	msg := &sarama.ProducerMessage{
		Topic: r.Topic,
		Key:   sarama.StringEncoder(r.Key),
		Value: sarama.ByteEncoder(r.Value),
	}
	for k, v := range r.Headers {
		msg.Headers = append(msg.Headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}
	return msg
}

// Producer синхронно пишет записи и ждёт подтверждения от всех реплик.
type Producer struct {
	sync   sarama.SyncProducer
	logger *log.Entry
}

// producerConfig включает идемпотентную доставку: повторы брокера не дают дублей.
func producerConfig(clientID string) *sarama.Config {
	cfg := sarama.NewConfig()
	if clientID != "" {
		cfg.ClientID = clientID
	}
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

func NewProducer(brokers []string, clientID string) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(brokers, producerConfig(clientID))
	if err != nil {
		return nil, fmt.Errorf("kafka: connect producer to %v: %w", brokers, err)
	}
	return newProducer(sp), nil
}

func newProducer(sp sarama.SyncProducer) *Producer {
	return &Producer{sync: sp, logger: log.WithField("component", "kafka-producer")}
}

// Send отправляет запись и возвращает, куда она легла.
func (p *Producer) Send(rec Record) (partition int32, offset int64, err error) {
	fields := log.Fields{"topic": rec.Topic, "key": rec.Key}
	partition, offset, err = p.sync.SendMessage(rec.toSarama())
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka write failed")
		return 0, 0, fmt.Errorf("kafka: write to %s: %w", rec.Topic, err)
	}
	fields["partition"], fields["offset"] = partition, offset
	p.logger.WithFields(fields).Debug("kafka write acknowledged")
	return partition, offset, nil
}

func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("kafka: close producer: %w", err)
	}
	return nil
}
