package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/tx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const (
	selectProductQuery = `
		SELECT p.id, p.name, COALESCE(p.suggestion, ''), COALESCE(p.index_ref, ''),
		       p.rating, p.total_rating_count, p.has_variation,
		       COALESCE(c.id, 0), COALESCE(c.name, ''), COALESCE(pc.name, ''),
		       COALESCE(b.id, 0), COALESCE(b.name, '')
		FROM catalog.products p
		LEFT JOIN catalog.categories c ON c.id = p.category_id
		LEFT JOIN catalog.categories pc ON pc.id = c.parent_id
		LEFT JOIN catalog.brands b ON b.id = p.brand_id
		WHERE p.id = $1`

	selectDefaultVariantQuery = `
		SELECT id, product_id, COALESCE(sku, ''), price::text, old_price::text,
		       qty_in_stock, COALESCE(image_url, ''), is_default, is_active
		FROM catalog.product_items
		WHERE product_id = $1 AND is_default
		ORDER BY id
		LIMIT 1`

	selectSelectionsQuery = `
		SELECT v.id, v.name, vo.id, vo.value
		FROM catalog.product_configurations cfg
		JOIN catalog.variation_options vo ON vo.id = cfg.variation_option_id
		JOIN catalog.variations v ON v.id = vo.variation_id
		WHERE cfg.product_item_id = $1
		ORDER BY cfg.id`

	selectAllProductsQuery = `
		SELECT id, name, COALESCE(index_ref, '')
		FROM catalog.products
		ORDER BY id`

	updateIndexRefQuery = `
		UPDATE catalog.products
		SET index_ref = NULLIF($2, ''), updated_at = NOW()
		WHERE id = $1`
)

// executor общий интерфейс пула и транзакции
type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pool подмножество pgxpool.Pool, которое использует хранилище
type pool interface {
	executor
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// CatalogStorage реализация интерфейса Repository для PostgreSQL
type CatalogStorage struct {
	pool      pool
	txManager tx.TxManager
}

// NewPostgresStorage создает новый экземпляр CatalogStorage
func NewPostgresStorage(ctx context.Context, connectionString string) (*CatalogStorage, error) {
	p, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	storage, err := NewPostgresStorageWithPool(ctx, p)
	if err != nil {
		p.Close()
		return nil, err
	}

	return storage, nil
}

// NewPostgresStorageWithPool создает хранилище поверх готового пула
func NewPostgresStorageWithPool(ctx context.Context, p pool) (*CatalogStorage, error) {
	if err := p.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &CatalogStorage{
		pool:      p,
		txManager: tx.NewTxManager(p),
	}, nil
}

// Ping проверяет доступность базы
func (r *CatalogStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений
func (r *CatalogStorage) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// getExecutor возвращает транзакцию из контекста или пул
func (r *CatalogStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return r.pool
}

// LoadProductWithDefaultVariant читает товар, вариант по умолчанию и его вариации
// в одной транзакции только для чтения, чтобы снимок был согласованным
func (r *CatalogStorage) LoadProductWithDefaultVariant(ctx context.Context, productID int64) (*models.Product, error) {
	var product *models.Product

	err := r.txManager.DoWithOptions(ctx, tx.ReadOnlySnapshot, func(ctx context.Context) error {
		var err error
		product, err = r.getProduct(ctx, productID)
		if err != nil || product == nil {
			return err
		}

		product.DefaultVariant, err = r.getDefaultVariant(ctx, productID)
		if err != nil || product.DefaultVariant == nil {
			return err
		}

		product.DefaultVariant.Selections, err = r.getSelections(ctx, product.DefaultVariant.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (r *CatalogStorage) getProduct(ctx context.Context, productID int64) (*models.Product, error) {
	var (
		p                                   models.Product
		categoryID, brandID                 int64
		categoryName, parentName, brandName string
	)

	err := r.getExecutor(ctx).QueryRow(ctx, selectProductQuery, productID).Scan(
		&p.ID, &p.Name, &p.Suggestion, &p.IndexRef,
		&p.Rating, &p.TotalRatingCount, &p.HasVariation,
		&categoryID, &categoryName, &parentName,
		&brandID, &brandName,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}

	if categoryID != 0 {
		p.Category = &models.Category{ID: categoryID, Name: categoryName, ParentName: parentName}
	}
	if brandID != 0 {
		p.Brand = &models.Brand{ID: brandID, Name: brandName}
	}

	return &p, nil
}

func (r *CatalogStorage) getDefaultVariant(ctx context.Context, productID int64) (*models.Variant, error) {
	var (
		v               models.Variant
		price, oldPrice string
	)

	err := r.getExecutor(ctx).QueryRow(ctx, selectDefaultVariantQuery, productID).Scan(
		&v.ID, &v.ProductID, &v.SKU, &price, &oldPrice,
		&v.QtyInStock, &v.ImageURL, &v.IsDefault, &v.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get default variant of product %d: %w", productID, err)
	}

	if v.Price, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("invalid price of variant %d: %w", v.ID, err)
	}
	if v.OldPrice, err = decimal.NewFromString(oldPrice); err != nil {
		return nil, fmt.Errorf("invalid old price of variant %d: %w", v.ID, err)
	}

	return &v, nil
}

func (r *CatalogStorage) getSelections(ctx context.Context, variantID int64) ([]models.VariationSelection, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, selectSelectionsQuery, variantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get selections of variant %d: %w", variantID, err)
	}
	defer rows.Close()

	selections := make([]models.VariationSelection, 0)
	for rows.Next() {
		var s models.VariationSelection
		if err := rows.Scan(&s.VariationID, &s.VariationName, &s.OptionID, &s.OptionValue); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		selections = append(selections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating selections: %w", err)
	}

	return selections, nil
}

// ListAllProducts возвращает все товары каталога по возрастанию id
func (r *CatalogStorage) ListAllProducts(ctx context.Context) ([]*models.Product, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, selectAllProductsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	products := make([]*models.Product, 0)
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.IndexRef); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// SetIndexRef обновляет только поле index_ref; пустая строка сохраняется как NULL
func (r *CatalogStorage) SetIndexRef(ctx context.Context, productID int64, indexRef string) error {
	tag, err := r.getExecutor(ctx).Exec(ctx, updateIndexRefQuery, productID, indexRef)
	if err != nil {
		return fmt.Errorf("failed to update index ref of product %d: %w", productID, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id=%d", utils.ErrProductNotFound, productID)
	}

	return nil
}

var _ Port = (*CatalogStorage)(nil)
