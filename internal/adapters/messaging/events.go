package messaging

// Топики по умолчанию
const (
	// DefaultSyncTopic очередь сообщений синхронизации, ее читает внешний индексатор
	DefaultSyncTopic = "product_sync_queue"
	// DefaultIndexRefTopic подтверждения индексатора: ссылка на документ индекса
	DefaultIndexRefTopic = "catalog-index-refs"
	// DefaultCommandTopic команды синхронизации от сервиса управления каталогом
	DefaultCommandTopic = "catalog-sync-commands"
)

// Служебные заголовки сообщений
const (
	HeaderMessageID = "message_id"
	HeaderTimestamp = "timestamp"
)
