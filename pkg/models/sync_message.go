package models

// Поля и JSON-имена этого файла образуют контракт с внешним индексатором,
// который читает топик синхронизации каталога. Менять их можно только
// вместе с индексатором.

// ActionDelete удаляет документ из поискового индекса.
// Остальные значения action передаются индексатору как есть.
const ActionDelete = "delete"

// SyncMessage документ синхронизации одного товара с поисковым индексом.
// Конверт заполнен всегда, Data равен nil, если заменяющего документа нет.
type SyncMessage struct {
	ProductID int64     `json:"productId" validate:"gt=0"`
	ItemID    *int64    `json:"itemId"`
	Action    string    `json:"action" validate:"required"`
	IndexRef  string    `json:"indexRef"`
	Data      *SyncData `json:"data" validate:"omitempty"`
}

// HasData сообщает, несет ли сообщение документ для индексации
func (m *SyncMessage) HasData() bool {
	return m != nil && m.Data != nil
}

// SyncData плоский документ для поискового индекса.
// Поля передаются в том виде, в каком лежат в каталоге: пустое имя или
// отрицательная цена не повод не доставить документ, в том числе delete
type SyncData struct {
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	SubCategory      string          `json:"sub_category"`
	Brand            string          `json:"brand"`
	Price            float64         `json:"price"`
	OldPrice         float64         `json:"old_price"`
	Stock            int             `json:"stock"`
	SKU              string          `json:"sku"`
	ImageURL         string          `json:"image_url"`
	HasVariation     bool            `json:"has_variation"`
	Rating           int             `json:"rating"`
	TotalRatingCount int             `json:"total_rating_count"`
	Status           bool            `json:"status"`
	Variations       []VariationDoc  `json:"variations"`
	Suggestion       SuggestionInput `json:"suggestion"`
}

// VariationDoc пара "ось вариации - выбранная опция"
type VariationDoc struct {
	VariationID    int64  `json:"variation_id"`
	VariationValue string `json:"variation_value"`
	OptionID       int64  `json:"option_id"`
	OptionValue    string `json:"option_value"`
}

// SuggestionInput блок автодополнения
type SuggestionInput struct {
	Input  []string `json:"input" validate:"min=1,dive,required,max=50"`
	Weight int      `json:"weight" validate:"gte=1"`
}
