package models

// IndexRefEvent подтверждение индексатора: документ создан или удален.
// Пустой IndexRef означает, что документа в индексе больше нет.
type IndexRefEvent struct {
	ProductID int64  `json:"productId" validate:"gt=0"`
	IndexRef  string `json:"indexRef"`
}

// Типы команд синхронизации
const (
	SyncProductCommand = "sync_product"
	SyncAllCommand     = "sync_all"
)

// SyncCommand команда синхронизации от сервиса каталога
type SyncCommand struct {
	CommandType string `json:"command_type"`
	ProductID   int64  `json:"product_id,omitempty"`
	Action      string `json:"action"`
}
