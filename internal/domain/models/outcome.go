package models

import "fmt"

// Сообщения итогов массовой синхронизации
const (
	EmptyCatalogMessage = "No products found to sync"
)

// BulkSyncOutcome итог одного прогона синхронизации всего каталога.
// Создается заново на каждый прогон и нигде не сохраняется.
type BulkSyncOutcome struct {
	TotalProducts    int     `json:"totalProducts"`
	SuccessCount     int     `json:"successCount"`
	FailedCount      int     `json:"failedCount"`
	SkippedCount     int     `json:"skippedCount,omitempty"`
	FailedProductIDs []int64 `json:"failedProductIds"`
	Message          string  `json:"message"`
}

// NewBulkSyncOutcome создает пустой итог для заданного числа кандидатов
func NewBulkSyncOutcome(total int) *BulkSyncOutcome {
	return &BulkSyncOutcome{
		TotalProducts:    total,
		FailedProductIDs: []int64{},
	}
}

// Summarize формирует человекочитаемое сообщение по счетчикам
func (o *BulkSyncOutcome) Summarize() {
	switch {
	case o.TotalProducts == 0:
		o.Message = EmptyCatalogMessage
	case o.SkippedCount > 0:
		o.Message = fmt.Sprintf("Sync interrupted: %d succeeded, %d failed, %d not attempted out of %d total products",
			o.SuccessCount, o.FailedCount, o.SkippedCount, o.TotalProducts)
	default:
		o.Message = fmt.Sprintf("Sync completed: %d succeeded, %d failed out of %d total products",
			o.SuccessCount, o.FailedCount, o.TotalProducts)
	}
}
