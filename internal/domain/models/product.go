package models

import (
	"github.com/shopspring/decimal"
)

// Product представляет товар каталога в объеме, нужном для синхронизации с поиском
type Product struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	Suggestion       string `db:"suggestion" json:"suggestion"` // сырые теги через запятую
	IndexRef         string `db:"index_ref" json:"index_ref"`   // пусто, пока индексатор не подтвердил документ
	Rating           int    `db:"rating" json:"rating"`
	TotalRatingCount int    `db:"total_rating_count" json:"total_rating_count"`
	HasVariation     bool   `db:"has_variation" json:"has_variation"`

	Category       *Category `json:"category,omitempty"`
	Brand          *Brand    `json:"brand,omitempty"`
	DefaultVariant *Variant  `json:"default_variant,omitempty"`
}

// IsIndexed сообщает, есть ли у товара документ в поисковом индексе
func (p *Product) IsIndexed() bool {
	return p != nil && p.IndexRef != ""
}

// Category категория товара; ParentName денормализован для подкатегории
type Category struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	ParentName string `json:"parent_name,omitempty"`
}

// Brand бренд товара
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Variant продаваемая единица товара (SKU)
type Variant struct {
	ID         int64           `json:"id"`
	ProductID  int64           `json:"product_id"`
	SKU        string          `json:"sku"`
	Price      decimal.Decimal `json:"price"`
	OldPrice   decimal.Decimal `json:"old_price"`
	QtyInStock int             `json:"qty_in_stock"`
	ImageURL   string          `json:"image_url"`
	IsDefault  bool            `json:"is_default"`
	IsActive   bool            `json:"is_active"`

	Selections []VariationSelection `json:"selections"`
}

// VariationSelection выбранная опция по оси вариации, например Color=Red
type VariationSelection struct {
	VariationID   int64  `json:"variation_id"`
	VariationName string `json:"variation_name"`
	OptionID      int64  `json:"option_id"`
	OptionValue   string `json:"option_value"`
}
