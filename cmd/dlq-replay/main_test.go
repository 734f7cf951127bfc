package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/storefront/internal/messaging/kafka"
)

const (
	testDLQ    = "storefront.dlq"
	testEvents = "storefront.order.events"
)

type stubOffsets struct {
	partitions []int32
	oldest     int64
	newest     int64
	err        error
}

func (s stubOffsets) GetOffset(_ string, _ int32, t int64) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if t == sarama.OffsetOldest {
		return s.oldest, nil
	}
	return s.newest, nil
}

func (s stubOffsets) Partitions(string) ([]int32, error) { return s.partitions, nil }
func (s stubOffsets) Close() error                       { return nil }

func envelope(t *testing.T, id, eventType string) []byte {
	t.Helper()
	raw, err := json.Marshal(kafka.Envelope{
		ID:            id,
		AggregateType: "order",
		AggregateID:   "ord-1",
		EventType:     eventType,
		Payload:       json.RawMessage(`{"order_id":"ord-1"}`),
	})
	require.NoError(t, err)
	return raw
}

func testConfig(execute bool) config {
	return config{
		brokers:     []string{"localhost:9092"},
		sourceTopic: testDLQ,
		targetTopic: testEvents,
		limit:       10,
		execute:     execute,
		idleTimeout: 50 * time.Millisecond,
	}
}

func TestParseFlags(t *testing.T) {
	cfg, err := parseFlags(flag.NewFlagSet("dlq-replay", flag.ContinueOnError),
		[]string{"-limit=5", "-execute"},
		func(key string) string {
			if key == "KAFKA_BROKERS" {
				return " b1:9092, ,b2:9092"
			}
			return ""
		})
	require.NoError(t, err)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.brokers)
	assert.Equal(t, kafka.TopicDeadLetterQueue, cfg.sourceTopic)
	assert.Equal(t, kafka.TopicOrderEvents, cfg.targetTopic)
	assert.Equal(t, 5, cfg.limit)
	assert.True(t, cfg.execute)
}

func TestParseFlags_Validation(t *testing.T) {
	noEnv := func(string) string { return "" }
	tests := map[string][]string{
		"no brokers":   {},
		"same topics":  {"-brokers=b:9092", "-target-topic=" + kafka.TopicDeadLetterQueue},
		"zero limit":   {"-brokers=b:9092", "-limit=0"},
		"zero timeout": {"-brokers=b:9092", "-idle-timeout=0s"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseFlags(flag.NewFlagSet("dlq-replay", flag.ContinueOnError), args, noEnv)
			require.Error(t, err)
		})
	}
}

func TestReplayMessage(t *testing.T) {
	msg := &sarama.ConsumerMessage{Topic: testDLQ, Offset: 7, Key: []byte("ord-1"), Value: envelope(t, "evt-1", "order.paid")}

	out, err := replayMessage(msg, testEvents)
	require.NoError(t, err)
	assert.Equal(t, testEvents, out.Topic)

	key, err := out.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "ord-1", string(key))
	assert.Equal(t, "order.paid", headerValue(out.Headers, kafka.HeaderEventType))
	assert.Equal(t, "evt-1", headerValue(out.Headers, kafka.HeaderOutboxID))
	assert.Equal(t, testDLQ+"/7", headerValue(out.Headers, headerReplayedFrom))
	assert.Empty(t, headerValue(out.Headers, kafka.HeaderDeadLetter))

	value, err := out.Value.Encode()
	require.NoError(t, err)
	var env kafka.Envelope
	require.NoError(t, json.Unmarshal(value, &env))
	assert.JSONEq(t, `{"order_id":"ord-1"}`, string(env.Payload))
	assert.False(t, env.PublishedAt.IsZero())
}

func TestReplayMessage_Rejects(t *testing.T) {
	_, err := replayMessage(&sarama.ConsumerMessage{Value: []byte("not json")}, testEvents)
	require.Error(t, err)

	_, err = replayMessage(&sarama.ConsumerMessage{Value: []byte(`{"id":"evt-1"}`)}, testEvents)
	require.Error(t, err)
}

func TestReplay_DryRunSkipsGarbage(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition(testDLQ, 0, 0)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: envelope(t, "evt-1", "order.paid")})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: []byte("garbage")})
	pc.YieldMessage(&sarama.ConsumerMessage{Value: envelope(t, "evt-2", "order.paid")})

	stats, err := replay(context.Background(), testConfig(false), stubOffsets{partitions: []int32{0}, newest: 3}, consumer, nil)
	require.NoError(t, err)
	assert.Equal(t, replayStats{scanned: 3, replayed: 2, skipped: 1}, stats)
	require.NoError(t, consumer.Close())
}

func TestReplay_ExecutePublishes(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition(testDLQ, 0, 0)
	pc.YieldMessage(&sarama.ConsumerMessage{Key: []byte("ord-1"), Value: envelope(t, "evt-1", "order.paid")})
	pc.YieldMessage(&sarama.ConsumerMessage{Key: []byte("ord-1"), Value: envelope(t, "evt-2", "order.paid")})

	producer := mocks.NewSyncProducer(t, nil)
	isEnvelope := func(val []byte) error {
		var env kafka.Envelope
		if err := json.Unmarshal(val, &env); err != nil {
			return err
		}
		if env.EventType != "order.paid" {
			return errors.New("unexpected event type " + env.EventType)
		}
		return nil
	}
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(isEnvelope)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(isEnvelope)

	stats, err := replay(context.Background(), testConfig(true), stubOffsets{partitions: []int32{0}, newest: 2}, consumer, producer)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.replayed)
	require.NoError(t, producer.Close())
	require.NoError(t, consumer.Close())
}

func TestReplay_PublishFailureStops(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	pc := consumer.ExpectConsumePartition(testDLQ, 0, 0)
	pc.YieldMessage(&sarama.ConsumerMessage{Value: envelope(t, "evt-1", "order.paid")})

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	_, err := replay(context.Background(), testConfig(true), stubOffsets{partitions: []int32{0}, newest: 1}, consumer, producer)
	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, producer.Close())
}

func TestReplay_Guards(t *testing.T) {
	_, err := replay(context.Background(), testConfig(true), stubOffsets{}, mocks.NewConsumer(t, nil), nil)
	require.Error(t, err)

	offsetErr := errors.New("offsets unavailable")
	_, err = replay(context.Background(), testConfig(false), stubOffsets{partitions: []int32{0}, err: offsetErr}, mocks.NewConsumer(t, nil), nil)
	require.ErrorIs(t, err, offsetErr)

	stats, err := replay(context.Background(), testConfig(false), stubOffsets{partitions: []int32{0}}, mocks.NewConsumer(t, nil), nil)
	require.NoError(t, err)
	assert.Zero(t, stats.scanned)
}

func TestReplay_IdlePartitionReturns(t *testing.T) {
	consumer := mocks.NewConsumer(t, nil)
	consumer.ExpectConsumePartition(testDLQ, 0, 0)

	stats, err := replay(context.Background(), testConfig(false), stubOffsets{partitions: []int32{0}, newest: 5}, consumer, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.scanned)
}
