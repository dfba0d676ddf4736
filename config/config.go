package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Режимы проверки bearer-токенов
const (
	AuthModeJWT      = "jwt"
	AuthModeKeycloak = "keycloak"
)

// maxKafkaPollInterval верхняя граница max.poll.interval.ms в librdkafka
const maxKafkaPollInterval = 24 * time.Hour

// KeycloakConfig представляет конфигурацию Keycloak
type KeycloakConfig struct {
	ServerURL         string
	Realm             string
	ClientID          string
	SkipClientIDCheck bool
}

// Config содержит все настройки сервиса
type Config struct {
	AppName  string
	Version  string
	LogLevel string
	ENV      string

	Server struct {
		Host            string
		Port            int
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	Postgres struct {
		Host     string
		Port     int
		User     string
		Password string
		DBName   string
		SSLMode  string
		Timeout  time.Duration
		PoolSize int // размер пула соединений
	}

	Redis struct {
		Enabled           bool // без Redis блокировки и кэш живут в памяти процесса
		Host              string
		Port              int
		Password          string
		DB                int
		DefaultExpiration time.Duration // срок действия кэша по умолчанию
	}

	Kafka struct {
		Brokers           []string
		ClientID          string
		GroupID           string
		SyncTopic         string // сообщения синхронизации для индексатора
		IndexRefTopic     string // подтверждения индексатора
		CommandTopic      string // команды от сервиса управления каталогом
		AutoOffsetReset   string
		SessionTimeout    time.Duration
		PollTimeout       time.Duration
		MaxPollInterval   time.Duration // обработка sync_all идет внутри цикла опроса и должна в него укладываться
		DeliveryTimeout   time.Duration // ожидание подтверждения брокера
		CreateTopics      bool
		Partitions        int
		ReplicationFactor int
	}

	Metrics struct {
		Enabled bool
		Port    int // порт метрик воркера
	}

	Security struct {
		AuthMode           string
		JWTPublicKeyPath   string
		JWTIssuer          string
		Keycloak           KeycloakConfig
		CORSAllowOrigins   []string
		RateLimitPerMinute int
	}

	Sync struct {
		Workers              int
		BulkTimeout          time.Duration // обязателен: ограничивает и блокировку, и опрос Kafka
		PublishRatePerSecond float64       // 0 - без ограничения
		LockTTL              time.Duration
	}
}

// Load загружает конфигурацию из файла и переменных окружения.
// configPath - путь к yaml-файлу; пустая строка включает поиск config.yaml
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("../config")
		v.AddConfigPath("../../config")
	}
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnvVariables(v)

	// Чтение конфигурационного файла
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
		}
		// Продолжаем, если файл не найден, будем использовать только переменные окружения
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка десериализации конфигурации: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers is empty")
	}
	if c.Kafka.SyncTopic == "" {
		return errors.New("kafka.syncTopic is empty")
	}
	if c.Sync.Workers < 1 {
		return fmt.Errorf("sync.workers must be positive, got %d", c.Sync.Workers)
	}
	// прогон без срока может пережить блокировку и обработку команды воркером
	if c.Sync.BulkTimeout <= 0 {
		return errors.New("sync.bulkTimeout must be positive")
	}
	if c.Sync.LockTTL < c.Sync.BulkTimeout {
		return errors.New("sync.lockTTL must not be shorter than sync.bulkTimeout")
	}
	if c.Kafka.MaxPollInterval <= c.Sync.BulkTimeout {
		return errors.New("kafka.maxPollInterval must exceed sync.bulkTimeout")
	}
	if c.Kafka.MaxPollInterval > maxKafkaPollInterval {
		return fmt.Errorf("kafka.maxPollInterval must not exceed %s", maxKafkaPollInterval)
	}
	switch c.Security.AuthMode {
	case AuthModeJWT, AuthModeKeycloak:
	default:
		return fmt.Errorf("unknown security.authMode %q", c.Security.AuthMode)
	}
	return nil
}

// IsProduction сообщает, запущен ли сервис в production-окружении
func (c *Config) IsProduction() bool {
	return c.ENV == "production"
}

// setDefaults устанавливает значения по умолчанию
func setDefaults(v *viper.Viper) {
	// Основные настройки
	v.SetDefault("appName", "catalog-sync")
	v.SetDefault("version", "1.0.0")
	v.SetDefault("logLevel", "info")
	v.SetDefault("env", "development")

	// Настройки сервера
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "30m") // синхронизация всего каталога отвечает в конце прогона
	v.SetDefault("server.shutdownTimeout", "15s")

	// Настройки Postgres
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "catalog")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timeout", "5s")
	v.SetDefault("postgres.poolSize", 10)

	// Настройки Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.defaultExpiration", "10m")

	// Настройки Kafka
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.clientID", "catalog-sync")
	v.SetDefault("kafka.groupID", "catalog-sync-worker")
	v.SetDefault("kafka.syncTopic", "product_sync_queue")
	v.SetDefault("kafka.indexRefTopic", "catalog-index-refs")
	v.SetDefault("kafka.commandTopic", "catalog-sync-commands")
	v.SetDefault("kafka.autoOffsetReset", "earliest")
	v.SetDefault("kafka.sessionTimeout", "30s")
	v.SetDefault("kafka.pollTimeout", "100ms")
	v.SetDefault("kafka.maxPollInterval", "25m")
	v.SetDefault("kafka.deliveryTimeout", "30s")
	v.SetDefault("kafka.createTopics", false)
	v.SetDefault("kafka.partitions", 3)
	v.SetDefault("kafka.replicationFactor", 1)

	// Настройки метрик
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)

	// Настройки безопасности
	v.SetDefault("security.authMode", AuthModeJWT)
	v.SetDefault("security.jwtPublicKeyPath", "./keys/jwt.pub")
	v.SetDefault("security.jwtIssuer", "gomarket")
	v.SetDefault("security.keycloak.serverURL", "http://localhost:8081")
	v.SetDefault("security.keycloak.realm", "gomarket")
	v.SetDefault("security.keycloak.clientID", "catalog-sync")
	v.SetDefault("security.keycloak.skipClientIDCheck", false)
	v.SetDefault("security.corsAllowOrigins", []string{"*"})
	v.SetDefault("security.rateLimitPerMinute", 600)

	// Настройки синхронизации
	v.SetDefault("sync.workers", 1)
	v.SetDefault("sync.bulkTimeout", "20m")
	v.SetDefault("sync.publishRatePerSecond", 0)
	v.SetDefault("sync.lockTTL", "30m")
}

// bindEnvVariables привязывает переменные окружения, имена которых не выводятся из ключей
func bindEnvVariables(v *viper.Viper) {
	_ = v.BindEnv("appName", "APP_NAME")
	_ = v.BindEnv("version", "APP_VERSION")
	_ = v.BindEnv("logLevel", "LOG_LEVEL")
	_ = v.BindEnv("env", "APP_ENV")

	_ = v.BindEnv("postgres.poolSize", "POSTGRES_POOL_SIZE")

	_ = v.BindEnv("kafka.groupID", "KAFKA_GROUP_ID")
	_ = v.BindEnv("kafka.syncTopic", "KAFKA_SYNC_TOPIC")
	_ = v.BindEnv("kafka.indexRefTopic", "KAFKA_INDEX_REF_TOPIC")
	_ = v.BindEnv("kafka.commandTopic", "KAFKA_COMMAND_TOPIC")
	_ = v.BindEnv("kafka.deliveryTimeout", "KAFKA_DELIVERY_TIMEOUT")
	_ = v.BindEnv("kafka.maxPollInterval", "KAFKA_MAX_POLL_INTERVAL")

	_ = v.BindEnv("security.authMode", "AUTH_MODE")
	_ = v.BindEnv("security.jwtPublicKeyPath", "JWT_PUBLIC_KEY_PATH")
	_ = v.BindEnv("security.corsAllowOrigins", "CORS_ALLOW_ORIGINS")
	_ = v.BindEnv("security.keycloak.serverURL", "KEYCLOAK_SERVER_URL")
	_ = v.BindEnv("security.keycloak.realm", "KEYCLOAK_REALM")
	_ = v.BindEnv("security.keycloak.clientID", "KEYCLOAK_CLIENT_ID")

	_ = v.BindEnv("sync.bulkTimeout", "SYNC_BULK_TIMEOUT")
	_ = v.BindEnv("sync.publishRatePerSecond", "SYNC_PUBLISH_RATE")
	_ = v.BindEnv("sync.lockTTL", "SYNC_LOCK_TTL")
}
