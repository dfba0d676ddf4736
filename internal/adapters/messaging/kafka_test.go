package messaging

import (
	"testing"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageToKafkaMessage(t *testing.T) {
	now := time.Unix(1700000000, 123)
	msg := messageToKafkaMessage(DefaultSyncTopic, []byte(`{"productId":1}`), "1", map[string]string{"source": "bulk"}, now)

	require.NotNil(t, msg.TopicPartition.Topic)
	assert.Equal(t, DefaultSyncTopic, *msg.TopicPartition.Topic)
	assert.Equal(t, kafka.PartitionAny, msg.TopicPartition.Partition)
	assert.Equal(t, []byte("1"), msg.Key)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "bulk", headers["source"])
	assert.NotEmpty(t, headers[HeaderMessageID])
	assert.Equal(t, "1700000000000000123", headers[HeaderTimestamp])
}

func TestMessageToKafkaMessage_EmptyKey(t *testing.T) {
	msg := messageToKafkaMessage(DefaultSyncTopic, []byte("x"), "", nil, time.Now())
	assert.Nil(t, msg.Key)
}

func TestKafkaMessageRoundTripHeaders(t *testing.T) {
	now := time.Unix(1700000000, 0)
	out := messageToKafkaMessage(DefaultIndexRefTopic, []byte(`{"productId":7}`), "7", nil, now)

	in := kafkaMessageToMessage(out)

	assert.Equal(t, DefaultIndexRefTopic, in.Topic)
	assert.Equal(t, "7", in.Key)
	assert.Equal(t, `{"productId":7}`, string(in.Value))
	assert.NotEmpty(t, in.ID)
	assert.True(t, now.Equal(in.PublishedAt))
}

func TestKafkaMessageToMessage_FallsBackToBrokerTimestamp(t *testing.T) {
	topic := DefaultCommandTopic
	ts := time.Unix(1600000000, 0)
	in := kafkaMessageToMessage(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic},
		Value:          []byte("{}"),
		Timestamp:      ts,
		Headers:        []kafka.Header{{Key: HeaderTimestamp, Value: []byte("not-a-number")}},
	})

	assert.True(t, ts.Equal(in.PublishedAt))
	assert.Empty(t, in.Key)
}

func TestProducerConfig(t *testing.T) {
	cfg := producerConfig(KafkaConfig{
		Brokers:         []string{"k1:9092", "k2:9092"},
		ClientID:        "catalog-sync",
		DeliveryTimeout: 30 * time.Second,
	})

	servers, err := cfg.Get("bootstrap.servers", "")
	require.NoError(t, err)
	assert.Equal(t, "k1:9092,k2:9092", servers)

	acks, err := cfg.Get("acks", "")
	require.NoError(t, err)
	assert.Equal(t, "all", acks)

	timeout, err := cfg.Get("message.timeout.ms", 0)
	require.NoError(t, err)
	assert.Equal(t, 30000, timeout)
}

func TestConsumerConfig_ManualCommitAndDefaults(t *testing.T) {
	cfg := consumerConfig([]string{"k1:9092"}, interfaces.ConsumerConfig{GroupID: "catalog-sync-worker"})

	autoCommit, err := cfg.Get("enable.auto.commit", true)
	require.NoError(t, err)
	assert.Equal(t, false, autoCommit)

	reset, err := cfg.Get("auto.offset.reset", "")
	require.NoError(t, err)
	assert.Equal(t, "earliest", reset)

	session, err := cfg.Get("session.timeout.ms", 0)
	require.NoError(t, err)
	assert.Equal(t, 30000, session)

	pollInterval, err := cfg.Get("max.poll.interval.ms", 0)
	require.NoError(t, err)
	assert.Equal(t, 300000, pollInterval)
}

func TestConsumerConfig_MaxPollIntervalFromConfig(t *testing.T) {
	cfg := consumerConfig([]string{"k1:9092"}, interfaces.ConsumerConfig{
		GroupID:         "catalog-sync-worker",
		MaxPollInterval: 25 * time.Minute,
	})

	pollInterval, err := cfg.Get("max.poll.interval.ms", 0)
	require.NoError(t, err)
	assert.Equal(t, 1500000, pollInterval)
}
