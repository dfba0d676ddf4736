package postgres

import (
	"context"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

// CatalogReader чтение каталога для построения снимков синхронизации
type CatalogReader interface {
	// LoadProductWithDefaultVariant загружает товар с категорией, брендом,
	// вариантом по умолчанию и его вариациями.
	// Возвращает nil, nil если товар не найден
	LoadProductWithDefaultVariant(ctx context.Context, productID int64) (*models.Product, error)

	// ListAllProducts возвращает все товары каталога (id, name, index_ref), упорядоченные по id
	ListAllProducts(ctx context.Context) ([]*models.Product, error)
}

// IndexRefWriter единственная запись в реляционное хранилище из подсистемы синхронизации
type IndexRefWriter interface {
	// SetIndexRef устанавливает ссылку на документ поискового индекса.
	// Пустая строка очищает ссылку. Возвращает utils.ErrProductNotFound, если товара нет
	SetIndexRef(ctx context.Context, productID int64, indexRef string) error
}

// Repository определяет интерфейс взаимодействия с хранилищем каталога
type Repository interface {
	CatalogReader
	IndexRefWriter
}

// Port хранилище каталога вместе с управлением соединением
type Port interface {
	Repository
	interfaces.StoragePort
}
