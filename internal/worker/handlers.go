package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/services"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/metrics"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	contract "github.com/athebyme/gomarket-platform/catalog-sync/pkg/models"
	"github.com/go-playground/validator/v10"
)

// Handlers обработчики сообщений воркера.
// Ошибка возвращается только для временных сбоев: такое сообщение будет доставлено повторно.
// Сообщения, которые не удастся обработать никогда, логируются и подтверждаются.
type Handlers struct {
	syncService services.CatalogSyncServiceInterface
	validate    *validator.Validate
	logger      interfaces.LoggerPort
}

// NewHandlers создает обработчики сообщений
func NewHandlers(syncService services.CatalogSyncServiceInterface, logger interfaces.LoggerPort) *Handlers {
	return &Handlers{
		syncService: syncService,
		validate:    validator.New(),
		logger:      logger,
	}
}

// processFunc обрабатывает сообщение и возвращает статус для метрик
type processFunc func(ctx context.Context, msg *interfaces.Message) (string, error)

// CommandHandler обработчик команд синхронизации
func (h *Handlers) CommandHandler() interfaces.MessageHandler {
	return h.instrument(h.handleCommand)
}

// IndexRefHandler обработчик подтверждений индексатора
func (h *Handlers) IndexRefHandler() interfaces.MessageHandler {
	return h.instrument(h.handleIndexRef)
}

func (h *Handlers) instrument(process processFunc) interfaces.MessageHandler {
	return func(ctx context.Context, msg *interfaces.Message) error {
		startTime := time.Now()
		metrics.ActiveWorkers.Inc()
		defer metrics.ActiveWorkers.Dec()

		ctx = logger.ContextWithRequestID(ctx, msg.ID)
		h.logger.DebugWithContext(ctx, "Получено сообщение",
			interfaces.LogField{Key: "topic", Value: msg.Topic},
			interfaces.LogField{Key: "key", Value: msg.Key},
		)

		status, err := process(ctx, msg)
		metrics.MessagesProcessed.WithLabelValues(msg.Topic, status).Inc()
		metrics.MessageProcessingDuration.WithLabelValues(msg.Topic).Observe(time.Since(startTime).Seconds())
		return err
	}
}

func (h *Handlers) handleCommand(ctx context.Context, msg *interfaces.Message) (string, error) {
	var command contract.SyncCommand
	if err := json.Unmarshal(msg.Value, &command); err != nil {
		h.logger.ErrorWithContext(ctx, "Ошибка декодирования команды",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return metrics.StatusDropped, nil
	}

	switch command.CommandType {
	case contract.SyncProductCommand:
		err := h.syncService.SyncProduct(ctx, command.ProductID, command.Action)
		if err == nil {
			return metrics.StatusSuccess, nil
		}
		if isPermanent(err) {
			h.logger.WarnWithContext(ctx, "Команда синхронизации товара отброшена",
				interfaces.LogField{Key: "product_id", Value: command.ProductID},
				interfaces.LogField{Key: "action", Value: command.Action},
				interfaces.LogField{Key: "error", Value: err.Error()},
			)
			return metrics.StatusDropped, nil
		}
		return metrics.StatusError, err

	case contract.SyncAllCommand:
		outcome, err := h.syncService.SyncAllProducts(ctx, command.Action)
		switch {
		case errors.Is(err, utils.ErrBulkSyncInProgress):
			h.logger.InfoWithContext(ctx, "Синхронизация каталога уже выполняется, команда пропущена")
			return metrics.StatusSkipped, nil
		case errors.Is(err, utils.ErrInvalidAction):
			h.logger.WarnWithContext(ctx, "Команда синхронизации каталога без действия отброшена")
			return metrics.StatusDropped, nil
		case err != nil:
			return metrics.StatusError, err
		}
		h.logger.InfoWithContext(ctx, "Синхронизация каталога по команде завершена",
			interfaces.LogField{Key: "total", Value: outcome.TotalProducts},
			interfaces.LogField{Key: "succeeded", Value: outcome.SuccessCount},
			interfaces.LogField{Key: "failed", Value: outcome.FailedCount},
			interfaces.LogField{Key: "skipped", Value: outcome.SkippedCount},
		)
		return metrics.StatusSuccess, nil

	default:
		h.logger.WarnWithContext(ctx, "Неизвестный тип команды",
			interfaces.LogField{Key: "command_type", Value: command.CommandType})
		return metrics.StatusUnknown, nil
	}
}

func (h *Handlers) handleIndexRef(ctx context.Context, msg *interfaces.Message) (string, error) {
	var event contract.IndexRefEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.ErrorWithContext(ctx, "Ошибка декодирования подтверждения индексатора",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return metrics.StatusDropped, nil
	}
	if err := h.validate.Struct(event); err != nil {
		h.logger.WarnWithContext(ctx, "Некорректное подтверждение индексатора",
			interfaces.LogField{Key: "error", Value: err.Error()})
		return metrics.StatusDropped, nil
	}

	err := h.syncService.ApplyIndexRef(ctx, event.ProductID, event.IndexRef)
	switch {
	case err == nil:
		return metrics.StatusSuccess, nil
	case isPermanent(err):
		h.logger.WarnWithContext(ctx, "Подтверждение индексатора отброшено",
			interfaces.LogField{Key: "product_id", Value: event.ProductID},
			interfaces.LogField{Key: "error", Value: err.Error()},
		)
		return metrics.StatusDropped, nil
	default:
		return metrics.StatusError, err
	}
}

// isPermanent сообщает, что повторная доставка не изменит результат
func isPermanent(err error) bool {
	return errors.Is(err, utils.ErrProductNotFound) ||
		errors.Is(err, utils.ErrNoDefaultVariant) ||
		errors.Is(err, utils.ErrInvalidProductId) ||
		errors.Is(err, utils.ErrInvalidAction) ||
		errors.Is(err, utils.ErrSerialization)
}
