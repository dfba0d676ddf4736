package messaging

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/confluentinc/confluent-kafka-go/kafka"
	"github.com/google/uuid"
)

// retryBackoff пауза перед повторной доставкой сообщения, обработчик которого вернул ошибку
const retryBackoff = time.Second

// KafkaConfig настройки подключения к Kafka
type KafkaConfig struct {
	Brokers         []string
	ClientID        string
	DeliveryTimeout time.Duration
	Consumer        interfaces.ConsumerConfig
}

// KafkaMessaging реализация MessagingPort с использованием Kafka
type KafkaMessaging struct {
	producer *kafka.Producer
	config   KafkaConfig
	logger   interfaces.LoggerPort

	consumersMutex sync.Mutex
	consumers      map[string]context.CancelFunc
	wg             sync.WaitGroup
}

// NewKafkaMessaging создает новый экземпляр KafkaMessaging
func NewKafkaMessaging(config KafkaConfig, logger interfaces.LoggerPort) (*KafkaMessaging, error) {
	if len(config.Brokers) == 0 {
		return nil, errors.New("kafka brokers are not configured")
	}

	producer, err := kafka.NewProducer(producerConfig(config))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka producer: %w", err)
	}

	k := &KafkaMessaging{
		producer:  producer,
		config:    config,
		logger:    logger,
		consumers: make(map[string]context.CancelFunc),
	}

	// Отчеты о доставке идут в канал каждого сообщения, здесь остаются ошибки клиента
	go k.drainProducerEvents()

	return k, nil
}

func producerConfig(config KafkaConfig) *kafka.ConfigMap {
	return &kafka.ConfigMap{
		"bootstrap.servers":  strings.Join(config.Brokers, ","),
		"client.id":          config.ClientID,
		"acks":               "all", // максимальная надежность
		"enable.idempotence": true,
		"retry.backoff.ms":   500,
		"compression.type":   "snappy",
		"linger.ms":          10, // небольшая задержка для батчинга
		"message.timeout.ms": int(config.DeliveryTimeout.Milliseconds()),
		"message.max.bytes":  1000000,
	}
}

func consumerConfig(brokers []string, config interfaces.ConsumerConfig) *kafka.ConfigMap {
	offsetReset := config.AutoOffsetReset
	if offsetReset == "" {
		offsetReset = "earliest"
	}

	sessionTimeout := config.SessionTimeout
	if sessionTimeout <= 0 {
		sessionTimeout = 30 * time.Second
	}

	maxPollInterval := config.MaxPollInterval
	if maxPollInterval <= 0 {
		maxPollInterval = 5 * time.Minute
	}

	return &kafka.ConfigMap{
		"bootstrap.servers":    strings.Join(brokers, ","),
		"group.id":             config.GroupID,
		"auto.offset.reset":    offsetReset,
		"enable.auto.commit":   false, // подтверждаем вручную после обработки
		"session.timeout.ms":   int(sessionTimeout.Milliseconds()),
		"max.poll.interval.ms": int(maxPollInterval.Milliseconds()),
		"enable.partition.eof": false,
	}
}

// messageToKafkaMessage преобразует сообщение в kafka.Message
func messageToKafkaMessage(topic string, message []byte, key string, headers map[string]string, now time.Time) *kafka.Message {
	kafkaHeaders := make([]kafka.Header, 0, len(headers)+2)
	for k, v := range headers {
		kafkaHeaders = append(kafkaHeaders, kafka.Header{
			Key:   k,
			Value: []byte(v),
		})
	}

	// Добавляем служебные заголовки
	kafkaHeaders = append(kafkaHeaders,
		kafka.Header{Key: HeaderMessageID, Value: []byte(uuid.NewString())},
		kafka.Header{Key: HeaderTimestamp, Value: []byte(strconv.FormatInt(now.UnixNano(), 10))},
	)

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}

	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          message,
		Key:            keyBytes,
		Headers:        kafkaHeaders,
	}
}

// kafkaMessageToMessage преобразует kafka.Message в Message
func kafkaMessageToMessage(msg *kafka.Message) *interfaces.Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, header := range msg.Headers {
		headers[header.Key] = string(header.Value)
	}

	var topic string
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	publishedAt := msg.Timestamp
	if tsStr, ok := headers[HeaderTimestamp]; ok {
		if ts, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			publishedAt = time.Unix(0, ts)
		}
	}

	return &interfaces.Message{
		ID:          headers[HeaderMessageID],
		Topic:       topic,
		Key:         string(msg.Key),
		Value:       msg.Value,
		Headers:     headers,
		PublishedAt: publishedAt,
	}
}

// Publish публикует сообщение в указанную тему
func (k *KafkaMessaging) Publish(ctx context.Context, topic string, message []byte) error {
	return k.produce(ctx, messageToKafkaMessage(topic, message, "", nil, time.Now()))
}

// PublishWithKey публикует сообщение с указанным ключом
func (k *KafkaMessaging) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	return k.produce(ctx, messageToKafkaMessage(topic, message, key, nil, time.Now()))
}

// produce ставит сообщение в очередь и ждет подтверждения брокера или отмены контекста
func (k *KafkaMessaging) produce(ctx context.Context, msg *kafka.Message) error {
	topic := *msg.TopicPartition.Topic

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("публикация в %s отменена: %w", topic, err)
	}

	// буфер на одно событие, чтобы librdkafka не блокировался после нашего выхода по ctx
	deliveryChan := make(chan kafka.Event, 1)
	if err := k.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("ошибка постановки сообщения в очередь %s: %w", topic, err)
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("не дождались подтверждения доставки в %s: %w", topic, ctx.Err())
	case ev := <-deliveryChan:
		delivered, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("неожиданное событие доставки в %s: %v", topic, ev)
		}
		if delivered.TopicPartition.Error != nil {
			return fmt.Errorf("ошибка доставки в %s: %w", topic, delivered.TopicPartition.Error)
		}
	}

	return nil
}

func (k *KafkaMessaging) drainProducerEvents() {
	for ev := range k.producer.Events() {
		if e, ok := ev.(kafka.Error); ok {
			k.logger.Error("Ошибка Kafka producer",
				interfaces.LogField{Key: "code", Value: e.Code().String()},
				interfaces.LogField{Key: "error", Value: e.Error()})
		}
	}
}

// Subscribe подписывается на тему и обрабатывает сообщения с помощью handler.
// Смещение фиксируется только после успешной обработки; при ошибке обработчика
// сообщение перечитывается после паузы
func (k *KafkaMessaging) Subscribe(ctx context.Context, topic string, handler interfaces.MessageHandler) (func() error, error) {
	consumer, err := kafka.NewConsumer(consumerConfig(k.config.Brokers, k.config.Consumer))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания Kafka consumer: %w", err)
	}

	if err := consumer.Subscribe(topic, nil); err != nil {
		_ = consumer.Close()
		return nil, fmt.Errorf("ошибка подписки на топик %s: %w", topic, err)
	}

	subscriptionID := uuid.NewString()
	consumeCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	k.consumersMutex.Lock()
	k.consumers[subscriptionID] = cancel
	k.consumersMutex.Unlock()

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		defer close(done)
		k.consumeMessages(consumeCtx, consumer, topic, handler)
		if err := consumer.Close(); err != nil {
			k.logger.Warn("Ошибка закрытия Kafka consumer",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	// функция для отмены подписки
	unsubscribe := func() error {
		k.consumersMutex.Lock()
		delete(k.consumers, subscriptionID)
		k.consumersMutex.Unlock()

		cancel()
		<-done
		return nil
	}

	return unsubscribe, nil
}

// consumeMessages обрабатывает сообщения из Kafka
func (k *KafkaMessaging) consumeMessages(ctx context.Context, consumer *kafka.Consumer, topic string, handler interfaces.MessageHandler) {
	pollTimeout := k.config.Consumer.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = 100 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := consumer.Poll(int(pollTimeout.Milliseconds()))
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			msg := kafkaMessageToMessage(e)

			if err := handler(ctx, msg); err != nil {
				k.logger.Error("Ошибка обработки сообщения, повторим",
					interfaces.LogField{Key: "topic", Value: topic},
					interfaces.LogField{Key: "message_id", Value: msg.ID},
					interfaces.LogField{Key: "offset", Value: e.TopicPartition.Offset.String()},
					interfaces.LogField{Key: "error", Value: err.Error()})

				if err := consumer.Seek(e.TopicPartition, 0); err != nil {
					k.logger.Error("Ошибка возврата смещения",
						interfaces.LogField{Key: "topic", Value: topic},
						interfaces.LogField{Key: "error", Value: err.Error()})
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(retryBackoff):
				}
				continue
			}

			if _, err := consumer.CommitMessage(e); err != nil {
				k.logger.Warn("Ошибка фиксации смещения",
					interfaces.LogField{Key: "topic", Value: topic},
					interfaces.LogField{Key: "error", Value: err.Error()})
			}

		case kafka.Error:
			k.logger.Error("Ошибка Kafka consumer",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "code", Value: e.Code().String()},
				interfaces.LogField{Key: "error", Value: e.Error()})
			if e.Code() == kafka.ErrAllBrokersDown {
				k.logger.Warn("Все брокеры недоступны, продолжаем опрос",
					interfaces.LogField{Key: "topic", Value: topic})
			}

		default:
			k.logger.Debug("Событие Kafka",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "event", Value: e.String()})
		}
	}
}

// EnsureTopics создает недостающие темы; уже существующие пропускаются
func (k *KafkaMessaging) EnsureTopics(ctx context.Context, topics []string, partitions int, replicationFactor int) error {
	adminClient, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("ошибка создания Kafka admin client: %w", err)
	}
	defer adminClient.Close()

	specs := make([]kafka.TopicSpecification, 0, len(topics))
	for _, topic := range topics {
		specs = append(specs, kafka.TopicSpecification{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: replicationFactor,
		})
	}

	result, err := adminClient.CreateTopics(ctx, specs, kafka.SetAdminOperationTimeout(30*time.Second))
	if err != nil {
		return fmt.Errorf("ошибка создания топиков: %w", err)
	}

	for _, r := range result {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("ошибка создания топика %s: %s", r.Topic, r.Error.String())
		}
	}

	return nil
}

// Close останавливает подписки и дожидается отправки сообщений из буфера
func (k *KafkaMessaging) Close() error {
	k.consumersMutex.Lock()
	for id, cancel := range k.consumers {
		cancel()
		delete(k.consumers, id)
	}
	k.consumersMutex.Unlock()
	k.wg.Wait()

	if remaining := k.producer.Flush(15 * 1000); remaining > 0 {
		k.logger.Warn("Не все сообщения отправлены при закрытии",
			interfaces.LogField{Key: "remaining", Value: remaining})
	}
	k.producer.Close()

	return nil
}

var _ interfaces.MessagingPort = (*KafkaMessaging)(nil)
