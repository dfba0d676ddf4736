package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/metrics"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	contract "github.com/athebyme/gomarket-platform/catalog-sync/pkg/models"
	"github.com/go-playground/validator/v10"
)

// MessageBuilder строит сообщение синхронизации для одного товара
type MessageBuilder interface {
	Build(ctx context.Context, productID int64, action string) (*contract.SyncMessage, error)
}

// SyncJob синхронизирует один товар: строит снимок, проверяет его и публикует.
// В реляционное хранилище не пишет, поэтому повторный запуск безопасен
type SyncJob struct {
	builder   MessageBuilder
	publisher interfaces.Publisher
	validate  *validator.Validate
	topic     string
	logger    interfaces.LoggerPort
}

// NewSyncJob создает новый экземпляр SyncJob
func NewSyncJob(builder MessageBuilder, publisher interfaces.Publisher, topic string, logger interfaces.LoggerPort) *SyncJob {
	return &SyncJob{
		builder:   builder,
		publisher: publisher,
		validate:  validator.New(),
		topic:     topic,
		logger:    logger,
	}
}

// Run синхронизирует товар productID с действием action
func (j *SyncJob) Run(ctx context.Context, productID int64, action string) error {
	if productID <= 0 {
		return fmt.Errorf("%w: %d", utils.ErrInvalidProductId, productID)
	}
	if strings.TrimSpace(action) == "" {
		return utils.ErrInvalidAction
	}

	payload, err := j.Prepare(ctx, productID, action)
	if err != nil {
		metrics.SyncMessages.WithLabelValues(metrics.ActionLabel(action), statusOf(err)).Inc()
		return err
	}

	start := time.Now()
	err = j.publisher.PublishWithKey(ctx, j.topic, strconv.FormatInt(productID, 10), payload)
	metrics.PublishDuration.WithLabelValues(j.topic).Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.SyncMessages.WithLabelValues(metrics.ActionLabel(action), metrics.StatusError).Inc()
		// по этой записи сообщение можно переотправить вручную
		j.logger.ErrorWithContext(ctx, "Ошибка публикации сообщения синхронизации",
			interfaces.LogField{Key: "product_id", Value: productID},
			interfaces.LogField{Key: "action", Value: action},
			interfaces.LogField{Key: "topic", Value: j.topic},
			interfaces.LogField{Key: "error", Value: err.Error()})
		return fmt.Errorf("%w: product id=%d action=%s: %w", utils.ErrPublishFailure, productID, action, err)
	}

	metrics.SyncMessages.WithLabelValues(metrics.ActionLabel(action), metrics.StatusSuccess).Inc()
	j.logger.DebugWithContext(ctx, "Сообщение синхронизации опубликовано",
		interfaces.LogField{Key: "product_id", Value: productID},
		interfaces.LogField{Key: "action", Value: action})

	return nil
}

// Prepare строит и сериализует сообщение, ничего не публикуя
func (j *SyncJob) Prepare(ctx context.Context, productID int64, action string) ([]byte, error) {
	msg, err := j.builder.Build(ctx, productID, action)
	if err != nil {
		return nil, err
	}

	if err := j.validate.StructCtx(ctx, msg); err != nil {
		return nil, fmt.Errorf("%w: product id=%d: %w", utils.ErrSerialization, productID, err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: product id=%d: %w", utils.ErrSerialization, productID, err)
	}

	return payload, nil
}

func statusOf(err error) string {
	switch {
	case errors.Is(err, utils.ErrProductNotFound), errors.Is(err, utils.ErrNoDefaultVariant):
		return metrics.StatusSkipped
	case err != nil:
		return metrics.StatusError
	default:
		return metrics.StatusSuccess
	}
}
