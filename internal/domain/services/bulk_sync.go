package services

import (
	"context"
	"fmt"
	"time"

	postgres "github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/metrics"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// BulkSyncLockKey ключ блокировки прогона синхронизации всего каталога
const BulkSyncLockKey = "catalog:bulk-sync"

// ItemSyncer синхронизирует один товар
type ItemSyncer interface {
	Run(ctx context.Context, productID int64, action string) error
}

// BulkSyncConfig параметры массовой синхронизации
type BulkSyncConfig struct {
	// Workers число одновременно синхронизируемых товаров; 1 - последовательно
	Workers int
	// Timeout общий срок прогона; 0 - без ограничения
	Timeout time.Duration
	// RatePerSecond ограничение запуска задач в секунду; 0 - без ограничения
	RatePerSecond float64
	// LockTTL срок жизни блокировки прогона
	LockTTL time.Duration
}

type itemState uint8

const (
	itemPending itemState = iota
	itemSucceeded
	itemFailed
)

// BulkSync синхронизирует весь каталог, изолируя ошибки отдельных товаров
type BulkSync struct {
	lister postgres.CatalogReader
	syncer ItemSyncer
	locker interfaces.CachePort
	config BulkSyncConfig
	logger interfaces.LoggerPort
}

// NewBulkSync создает новый экземпляр BulkSync; locker может быть nil
func NewBulkSync(lister postgres.CatalogReader, syncer ItemSyncer, locker interfaces.CachePort, config BulkSyncConfig, logger interfaces.LoggerPort) *BulkSync {
	if config.Workers < 1 {
		config.Workers = 1
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 30 * time.Minute
	}

	return &BulkSync{
		lister: lister,
		syncer: syncer,
		locker: locker,
		config: config,
		logger: logger.WithField("component", "bulk_sync"),
	}
}

// TryRunAll запускает RunAll под распределенной блокировкой.
// Если прогон уже идет, возвращает utils.ErrBulkSyncInProgress
func (b *BulkSync) TryRunAll(ctx context.Context, action string) (*models.BulkSyncOutcome, error) {
	if b.locker == nil {
		return b.RunAll(ctx, action), nil
	}

	acquired, err := b.locker.Lock(ctx, BulkSyncLockKey, b.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire bulk sync lock: %w", err)
	}
	if !acquired {
		return nil, utils.ErrBulkSyncInProgress
	}

	defer func() {
		if err := b.locker.Unlock(context.WithoutCancel(ctx), BulkSyncLockKey); err != nil {
			b.logger.Warn("Не удалось снять блокировку массовой синхронизации",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}()

	return b.RunAll(ctx, action), nil
}

// RunAll синхронизирует все товары каталога и никогда не возвращает ошибку:
// все сбои отражаются в итоге
func (b *BulkSync) RunAll(ctx context.Context, action string) *models.BulkSyncOutcome {
	start := time.Now()
	metrics.BulkRuns.WithLabelValues(metrics.ActionLabel(action)).Inc()
	defer func() {
		metrics.BulkDuration.Observe(time.Since(start).Seconds())
	}()

	if b.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.Timeout)
		defer cancel()
	}

	products, err := b.lister.ListAllProducts(ctx)
	if err != nil {
		b.logger.ErrorWithContext(ctx, "Не удалось получить список товаров",
			interfaces.LogField{Key: "action", Value: action},
			interfaces.LogField{Key: "error", Value: err.Error()})

		outcome := models.NewBulkSyncOutcome(0)
		outcome.Message = fmt.Sprintf("Failed to list products: %v", err)
		return outcome
	}

	outcome := models.NewBulkSyncOutcome(len(products))
	if len(products) == 0 {
		outcome.Summarize()
		b.logger.InfoWithContext(ctx, outcome.Message, interfaces.LogField{Key: "action", Value: action})
		return outcome
	}

	indexed := 0
	for _, p := range products {
		if p.IsIndexed() {
			indexed++
		}
	}

	b.logger.InfoWithContext(ctx, "Запуск синхронизации каталога",
		interfaces.LogField{Key: "action", Value: action},
		interfaces.LogField{Key: "total", Value: len(products)},
		interfaces.LogField{Key: "indexed", Value: indexed},
		interfaces.LogField{Key: "workers", Value: b.config.Workers})

	states := b.runJobs(ctx, products, action)

	for i, state := range states {
		switch state {
		case itemSucceeded:
			outcome.SuccessCount++
		case itemFailed:
			outcome.FailedCount++
			outcome.FailedProductIDs = append(outcome.FailedProductIDs, products[i].ID)
		default:
			outcome.SkippedCount++
		}
	}

	metrics.BulkItems.WithLabelValues(metrics.StatusSuccess).Add(float64(outcome.SuccessCount))
	metrics.BulkItems.WithLabelValues(metrics.StatusError).Add(float64(outcome.FailedCount))
	metrics.BulkItems.WithLabelValues(metrics.StatusSkipped).Add(float64(outcome.SkippedCount))

	outcome.Summarize()

	b.logger.InfoWithContext(ctx, outcome.Message,
		interfaces.LogField{Key: "action", Value: action},
		interfaces.LogField{Key: "duration", Value: time.Since(start).String()})

	return outcome
}

// runJobs запускает задачи в пуле; результат каждой пишется в ячейку по ее позиции,
// поэтому порядок не зависит от числа воркеров
func (b *BulkSync) runJobs(ctx context.Context, products []*models.Product, action string) []itemState {
	states := make([]itemState, len(products))

	var limiter *rate.Limiter
	if b.config.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(b.config.RatePerSecond), 1)
	}

	// ошибка одного товара не должна отменять остальные, поэтому без WithContext
	var g errgroup.Group
	g.SetLimit(b.config.Workers)

	for i, product := range products {
		if ctx.Err() != nil {
			break
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				break
			}
		}

		i, productID := i, product.ID
		g.Go(func() error {
			// срок истек, пока задача ждала свободного воркера: товар не начат
			if ctx.Err() != nil {
				return nil
			}

			metrics.ActiveWorkers.Inc()
			defer metrics.ActiveWorkers.Dec()

			if err := b.syncer.Run(ctx, productID, action); err != nil {
				states[i] = itemFailed
				b.logger.WarnWithContext(ctx, "Ошибка синхронизации товара",
					interfaces.LogField{Key: "product_id", Value: productID},
					interfaces.LogField{Key: "action", Value: action},
					interfaces.LogField{Key: "error", Value: err.Error()})
				return nil
			}

			states[i] = itemSucceeded
			return nil
		})
	}

	_ = g.Wait()

	return states
}
