package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/models"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testLogger(t *testing.T) interfaces.LoggerPort {
	return logger.NewFromZap(zaptest.NewLogger(t), zap.NewAtomicLevelAt(zap.DebugLevel))
}

// fakeCatalog хранилище каталога в памяти
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]*models.Product
	order    []int64
	listErr  error
	loadErr  error
	setErr   error
	loads    int
}

func newFakeCatalog(products ...*models.Product) *fakeCatalog {
	c := &fakeCatalog{products: make(map[int64]*models.Product)}
	for _, p := range products {
		c.products[p.ID] = p
		c.order = append(c.order, p.ID)
	}
	return c
}

func (c *fakeCatalog) LoadProductWithDefaultVariant(ctx context.Context, productID int64) (*models.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loads++

	if c.loadErr != nil {
		return nil, c.loadErr
	}
	p, ok := c.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (c *fakeCatalog) ListAllProducts(ctx context.Context) ([]*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.listErr != nil {
		return nil, c.listErr
	}
	products := make([]*models.Product, 0, len(c.order))
	for _, id := range c.order {
		products = append(products, &models.Product{ID: id, Name: c.products[id].Name, IndexRef: c.products[id].IndexRef})
	}
	return products, nil
}

func (c *fakeCatalog) SetIndexRef(ctx context.Context, productID int64, indexRef string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.setErr != nil {
		return c.setErr
	}
	p, ok := c.products[productID]
	if !ok {
		return utils.ErrProductNotFound
	}
	p.IndexRef = indexRef
	return nil
}

type published struct {
	topic   string
	key     string
	payload []byte
}

// fakePublisher запоминает опубликованные сообщения
type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	failKeys map[string]bool
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, message []byte) error {
	return p.PublishWithKey(ctx, topic, "", message)
}

func (p *fakePublisher) PublishWithKey(ctx context.Context, topic string, key string, message []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.failKeys[key] {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, published{topic: topic, key: key, payload: message})
	return nil
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

func (p *fakePublisher) keys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		keys = append(keys, m.key)
	}
	return keys
}

func key(id int64) string {
	return strconv.FormatInt(id, 10)
}

func phoneProduct(id int64) *models.Product {
	return &models.Product{
		ID:               id,
		Name:             "Phone X",
		Suggestion:       "phone, smart phone ,,",
		IndexRef:         "es-" + key(id),
		Rating:           4,
		TotalRatingCount: 120,
		HasVariation:     true,
		Category:         &models.Category{ID: 3, Name: "Phones", ParentName: "Electronics"},
		Brand:            &models.Brand{ID: 7, Name: "Acme"},
		DefaultVariant: &models.Variant{
			ID:         id * 10,
			ProductID:  id,
			SKU:        "PX-RED",
			Price:      decimal.RequireFromString("199.90"),
			OldPrice:   decimal.RequireFromString("249"),
			QtyInStock: 5,
			ImageURL:   "https://img/px.png",
			IsDefault:  true,
			IsActive:   true,
			Selections: []models.VariationSelection{
				{VariationID: 1, VariationName: "Color", OptionID: 11, OptionValue: "Red"},
			},
		},
	}
}
