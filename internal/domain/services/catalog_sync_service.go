package services

import (
	"context"
	"strings"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
)

// CatalogSyncServiceInterface точка входа командных слоев (HTTP и воркер)
type CatalogSyncServiceInterface interface {
	SyncProduct(ctx context.Context, productID int64, action string) error
	SyncAllProducts(ctx context.Context, action string) (*models.BulkSyncOutcome, error)
	ApplyIndexRef(ctx context.Context, productID int64, indexRef string) error
}

// CatalogSyncService объединяет операции синхронизации каталога
type CatalogSyncService struct {
	job     *SyncJob
	bulk    *BulkSync
	updater *IndexRefUpdater
}

// NewCatalogSyncService создает новый экземпляр CatalogSyncService
func NewCatalogSyncService(job *SyncJob, bulk *BulkSync, updater *IndexRefUpdater) *CatalogSyncService {
	return &CatalogSyncService{
		job:     job,
		bulk:    bulk,
		updater: updater,
	}
}

// SyncProduct синхронизирует один товар
func (s *CatalogSyncService) SyncProduct(ctx context.Context, productID int64, action string) error {
	return s.job.Run(ctx, productID, action)
}

// SyncAllProducts синхронизирует весь каталог под блокировкой
func (s *CatalogSyncService) SyncAllProducts(ctx context.Context, action string) (*models.BulkSyncOutcome, error) {
	if strings.TrimSpace(action) == "" {
		return nil, utils.ErrInvalidAction
	}
	return s.bulk.TryRunAll(ctx, action)
}

// ApplyIndexRef сохраняет ссылку на документ индекса
func (s *CatalogSyncService) ApplyIndexRef(ctx context.Context, productID int64, indexRef string) error {
	return s.updater.Apply(ctx, productID, indexRef)
}

var _ CatalogSyncServiceInterface = (*CatalogSyncService)(nil)
