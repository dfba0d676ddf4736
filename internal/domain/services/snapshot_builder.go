package services

import (
	"context"
	"fmt"

	postgres "github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	contract "github.com/athebyme/gomarket-platform/catalog-sync/pkg/models"
)

// SnapshotBuilder собирает документ синхронизации из текущего состояния каталога
type SnapshotBuilder struct {
	repository postgres.CatalogReader
}

// NewSnapshotBuilder создает новый экземпляр SnapshotBuilder
func NewSnapshotBuilder(repository postgres.CatalogReader) *SnapshotBuilder {
	return &SnapshotBuilder{repository: repository}
}

// Build читает товар и строит сообщение синхронизации.
// Для action=delete отсутствие товара или варианта по умолчанию не ошибка:
// сообщение уходит без документа
func (b *SnapshotBuilder) Build(ctx context.Context, productID int64, action string) (*contract.SyncMessage, error) {
	product, err := b.repository.LoadProductWithDefaultVariant(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %d: %w", productID, err)
	}

	isDelete := action == contract.ActionDelete

	if product == nil && !isDelete {
		return nil, fmt.Errorf("%w: id=%d", utils.ErrProductNotFound, productID)
	}

	var variant *models.Variant
	if product != nil {
		variant = product.DefaultVariant
	}

	if variant == nil && !isDelete {
		return nil, fmt.Errorf("%w: product id=%d", utils.ErrNoDefaultVariant, productID)
	}

	msg := &contract.SyncMessage{
		ProductID: productID,
		Action:    action,
	}

	if product != nil {
		msg.IndexRef = product.IndexRef
	}

	if variant != nil {
		itemID := variant.ID
		msg.ItemID = &itemID
		msg.Data = buildSyncData(product, variant)
	}

	return msg, nil
}

func buildSyncData(product *models.Product, variant *models.Variant) *contract.SyncData {
	data := &contract.SyncData{
		Name:             product.Name,
		Price:            variant.Price.InexactFloat64(),
		OldPrice:         variant.OldPrice.InexactFloat64(),
		Stock:            variant.QtyInStock,
		SKU:              variant.SKU,
		ImageURL:         variant.ImageURL,
		HasVariation:     product.HasVariation,
		Rating:           product.Rating,
		TotalRatingCount: product.TotalRatingCount,
		Status:           variant.IsActive,
		Variations:       make([]contract.VariationDoc, 0, len(variant.Selections)),
		Suggestion: contract.SuggestionInput{
			Input:  DeriveSuggestions(product.Suggestion, variant.SKU),
			Weight: SuggestionWeight,
		},
	}

	if product.Category != nil {
		data.Category = product.Category.Name
		data.SubCategory = product.Category.ParentName
	}

	if product.Brand != nil {
		data.Brand = product.Brand.Name
	}

	for _, s := range variant.Selections {
		data.Variations = append(data.Variations, contract.VariationDoc{
			VariationID:    s.VariationID,
			VariationValue: s.VariationName,
			OptionID:       s.OptionID,
			OptionValue:    s.OptionValue,
		})
	}

	return data
}
