package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/config"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/cache"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/messaging"
	postgres "github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/domain/services"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/security"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/auth"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

// memoryCacheCleanup интервал очистки кэша в памяти процесса
const memoryCacheCleanup = 5 * time.Minute

// Dependencies общие зависимости API и воркера
type Dependencies struct {
	Storage     postgres.Port
	Cache       interfaces.CachePort
	Messaging   *messaging.KafkaMessaging
	SyncService *services.CatalogSyncService
}

// ConnectionParams переводит настройки Postgres в параметры подключения
func ConnectionParams(cfg *config.Config) utils.ConnectionParams {
	return utils.ConnectionParams{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
		PoolSize: cfg.Postgres.PoolSize,
		Timeout:  cfg.Postgres.Timeout,
	}
}

// KafkaConfig переводит настройки Kafka в параметры клиента
func KafkaConfig(cfg *config.Config) messaging.KafkaConfig {
	return messaging.KafkaConfig{
		Brokers:         cfg.Kafka.Brokers,
		ClientID:        cfg.Kafka.ClientID,
		DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		Consumer: interfaces.ConsumerConfig{
			GroupID:         cfg.Kafka.GroupID,
			AutoOffsetReset: cfg.Kafka.AutoOffsetReset,
			SessionTimeout:  cfg.Kafka.SessionTimeout,
			PollTimeout:     cfg.Kafka.PollTimeout,
			MaxPollInterval: cfg.Kafka.MaxPollInterval,
		},
	}
}

// BulkSyncConfig переводит настройки синхронизации в параметры оркестратора
func BulkSyncConfig(cfg *config.Config) services.BulkSyncConfig {
	return services.BulkSyncConfig{
		Workers:       cfg.Sync.Workers,
		Timeout:       cfg.Sync.BulkTimeout,
		RatePerSecond: cfg.Sync.PublishRatePerSecond,
		LockTTL:       cfg.Sync.LockTTL,
	}
}

// NewCatalogSyncService собирает конвейер синхронизации поверх готовых адаптеров
func NewCatalogSyncService(
	cfg *config.Config,
	repository postgres.Repository,
	publisher interfaces.Publisher,
	cacheClient interfaces.CachePort,
	logger interfaces.LoggerPort,
) *services.CatalogSyncService {
	builder := services.NewSnapshotBuilder(repository)
	job := services.NewSyncJob(builder, publisher, cfg.Kafka.SyncTopic, logger)
	bulk := services.NewBulkSync(repository, job, cacheClient, BulkSyncConfig(cfg), logger)
	updater := services.NewIndexRefUpdater(repository, cacheClient, logger)

	return services.NewCatalogSyncService(job, bulk, updater)
}

// NewDependencies подключается к Postgres, Redis и Kafka и собирает сервис синхронизации.
// При ошибке уже открытые соединения закрываются
func NewDependencies(ctx context.Context, cfg *config.Config, logger interfaces.LoggerPort) (_ *Dependencies, err error) {
	deps := &Dependencies{}
	defer func() {
		if err != nil {
			_ = deps.Close()
		}
	}()

	connectionStr, err := utils.GenerateConnectionString(ConnectionParams(cfg))
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации строки подключения к PostgreSQL: %w", err)
	}

	storage, err := postgres.NewPostgresStorage(ctx, connectionStr)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации хранилища: %w", err)
	}
	deps.Storage = storage
	logger.Info("Хранилище инициализировано")

	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("ошибка инициализации кэша: %w", err)
		}
		deps.Cache = redisCache
		logger.Info("Кэш Redis инициализирован")
	} else {
		deps.Cache = cache.NewMemoryCache(cfg.Redis.DefaultExpiration, memoryCacheCleanup)
		logger.Warn("Redis отключен, блокировки действуют только внутри процесса")
	}

	messagingClient, err := messaging.NewKafkaMessaging(KafkaConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("ошибка инициализации системы обмена сообщениями: %w", err)
	}
	deps.Messaging = messagingClient
	logger.Info("Система обмена сообщениями инициализирована")

	if cfg.Kafka.CreateTopics {
		topics := []string{cfg.Kafka.SyncTopic, cfg.Kafka.IndexRefTopic, cfg.Kafka.CommandTopic}
		if err := messagingClient.EnsureTopics(ctx, topics, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); err != nil {
			return nil, fmt.Errorf("ошибка создания топиков: %w", err)
		}
	}

	deps.SyncService = NewCatalogSyncService(cfg, storage, messagingClient, deps.Cache, logger)
	logger.Info("Сервис синхронизации каталога инициализирован")

	return deps, nil
}

// Close закрывает соединения в порядке, обратном открытию
func (d *Dependencies) Close() error {
	var errs []error
	if d.Messaging != nil {
		if err := d.Messaging.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("cache: %w", err))
		}
	}
	if d.Storage != nil {
		if err := d.Storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}

// NewAuthVerifier создает проверку bearer-токенов согласно security.authMode
func NewAuthVerifier(ctx context.Context, cfg *config.Config) (interfaces.AuthPort, error) {
	switch cfg.Security.AuthMode {
	case config.AuthModeKeycloak:
		client, err := auth.NewKeycloakClient(ctx, auth.KeycloakConfig{
			ServerURL:         cfg.Security.Keycloak.ServerURL,
			Realm:             cfg.Security.Keycloak.Realm,
			ClientID:          cfg.Security.Keycloak.ClientID,
			SkipClientIDCheck: cfg.Security.Keycloak.SkipClientIDCheck,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case config.AuthModeJWT:
		publicKey, err := os.ReadFile(cfg.Security.JWTPublicKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения публичного ключа JWT: %w", err)
		}
		verifier, err := security.NewJWTVerifier(publicKey, cfg.Security.JWTIssuer)
		if err != nil {
			return nil, err
		}
		return verifier, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", cfg.Security.AuthMode)
	}
}
