package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	postgres "github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/metrics"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

// ProductCacheKey ключ карточки товара в общем кэше витрины
func ProductCacheKey(productID int64) string {
	return fmt.Sprintf("product:%d", productID)
}

// IndexRefUpdater сохраняет ссылку на документ поискового индекса, присланную индексатором
type IndexRefUpdater struct {
	repository postgres.IndexRefWriter
	cache      interfaces.CachePort
	logger     interfaces.LoggerPort
}

// NewIndexRefUpdater создает новый экземпляр IndexRefUpdater; cache может быть nil
func NewIndexRefUpdater(repository postgres.IndexRefWriter, cache interfaces.CachePort, logger interfaces.LoggerPort) *IndexRefUpdater {
	return &IndexRefUpdater{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Apply записывает indexRef в товар. Пустая ссылка очищает поле
// (индексатор присылает ее после удаления документа). Побеждает последняя запись
func (u *IndexRefUpdater) Apply(ctx context.Context, productID int64, indexRef string) error {
	if productID <= 0 {
		return fmt.Errorf("%w: %d", utils.ErrInvalidProductId, productID)
	}

	indexRef = strings.TrimSpace(indexRef)

	if err := u.repository.SetIndexRef(ctx, productID, indexRef); err != nil {
		if errors.Is(err, utils.ErrProductNotFound) {
			metrics.IndexRefUpdates.WithLabelValues(metrics.StatusDropped).Inc()
			u.logger.WarnWithContext(ctx, "Товар для ссылки на индекс не найден",
				interfaces.LogField{Key: "product_id", Value: productID},
				interfaces.LogField{Key: "index_ref", Value: indexRef})
			return err
		}

		metrics.IndexRefUpdates.WithLabelValues(metrics.StatusError).Inc()
		return fmt.Errorf("failed to update index ref: %w", err)
	}

	metrics.IndexRefUpdates.WithLabelValues(metrics.StatusSuccess).Inc()

	if u.cache != nil {
		if err := u.cache.Delete(ctx, ProductCacheKey(productID)); err != nil {
			u.logger.WarnWithContext(ctx, "Не удалось инвалидировать кэш товара",
				interfaces.LogField{Key: "product_id", Value: productID},
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
	}

	u.logger.InfoWithContext(ctx, "Ссылка на документ индекса обновлена",
		interfaces.LogField{Key: "product_id", Value: productID},
		interfaces.LogField{Key: "index_ref", Value: indexRef})

	return nil
}
