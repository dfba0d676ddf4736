package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение в системе
type Message struct {
	ID          string            `json:"id"`           // Уникальный ID сообщения
	Topic       string            `json:"topic"`        // Тема сообщения
	Key         string            `json:"key"`          // Ключ сообщения (опционально)
	Value       []byte            `json:"value"`        // Содержимое сообщения
	Headers     map[string]string `json:"headers"`      // Заголовки сообщения
	PublishedAt time.Time         `json:"published_at"` // Время публикации
}

// MessageHandler определяет функцию обработчика сообщений.
// Ошибка означает, что сообщение не подтверждается и будет доставлено повторно.
type MessageHandler func(ctx context.Context, msg *Message) error

// ConsumerConfig содержит настройки для подписчика на сообщения
type ConsumerConfig struct {
	GroupID         string        // ID группы потребителей
	AutoOffsetReset string        // earliest | latest
	SessionTimeout  time.Duration // Таймаут сессии потребителя
	PollTimeout     time.Duration // Таймаут для опроса новых сообщений
	// MaxPollInterval предельное время обработки одного сообщения,
	// после которого брокер исключает потребителя из группы
	MaxPollInterval time.Duration
}

// Publisher публикует сообщения в канал.
// Повторные попытки на уровне приложения выполняет вызывающая сторона, а не канал.
type Publisher interface {
	Publish(ctx context.Context, topic string, message []byte) error

	// PublishWithKey публикует сообщение с ключом партиционирования
	PublishWithKey(ctx context.Context, topic string, key string, message []byte) error
}

type MessagingPort interface {
	Publisher

	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func() error, error)

	Close() error
}
