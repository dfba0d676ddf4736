package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Статусы для меток
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusSkipped = "skipped"
	StatusDropped = "dropped"
	StatusUnknown = "unknown"
)

// ActionOther метка для действий вне известного словаря
const ActionOther = "other"

// knownActions действия, которые попадают в метки как есть
var knownActions = map[string]struct{}{
	"upsert": {},
	"create": {},
	"update": {},
	"delete": {},
}

// ActionLabel ограничивает кардинальность метки action: действие приходит
// извне в свободной форме, неизвестные значения сводятся к "other"
func ActionLabel(action string) string {
	if _, ok := knownActions[action]; ok {
		return action
	}
	return ActionOther
}

// Метрики синхронизации каталога
var (
	SyncMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_messages_total",
		Help: "Количество попыток синхронизации отдельных товаров",
	}, []string{"action", "status"})

	PublishDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_sync_publish_duration_seconds",
		Help:    "Длительность публикации сообщения синхронизации",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	BulkRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_sync_runs_total",
		Help: "Количество прогонов синхронизации всего каталога",
	}, []string{"action"})

	BulkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "catalog_bulk_sync_duration_seconds",
		Help:    "Длительность прогона синхронизации всего каталога",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	BulkItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_bulk_sync_items_total",
		Help: "Результаты по товарам в массовой синхронизации",
	}, []string{"status"})

	IndexRefUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_index_ref_updates_total",
		Help: "Обновления ссылки на документ поискового индекса",
	}, []string{"status"})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_messages_processed_total",
		Help: "Общее количество обработанных сообщений",
	}, []string{"topic", "status"})

	MessageProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "worker_message_processing_duration_seconds",
		Help:    "Длительность обработки сообщений",
		Buckets: prometheus.DefBuckets,
	}, []string{"topic"})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "worker_active_goroutines",
		Help: "Количество активных горутин-обработчиков",
	})

	HTTPDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_durations_seconds",
		Help:    "Длительность HTTP запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)
