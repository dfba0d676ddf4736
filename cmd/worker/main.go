package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/config"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/app"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/worker"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	configPath := flag.String("config", "", "путь к файлу конфигурации")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Инициализация воркера",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName + "-worker"},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	deps, err := app.NewDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	// Запускаем HTTP сервер для метрик если они включены
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = newMetricsServer(cfg.Metrics.Port, deps)
		go func() {
			log.Info("Запуск HTTP сервера для метрик",
				interfaces.LogField{Key: "addr", Value: metricsServer.Addr})

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Ошибка запуска HTTP сервера для метрик",
					interfaces.LogField{Key: "error", Value: err.Error()})
			}
		}()
	}

	handlers := worker.NewHandlers(deps.SyncService, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup

	// Подписываемся на команды и подтверждения индексатора
	subscribe(ctx, deps.Messaging, cfg.Kafka.CommandTopic, handlers.CommandHandler(), log, &wg)
	subscribe(ctx, deps.Messaging, cfg.Kafka.IndexRefTopic, handlers.IndexRefHandler(), log, &wg)

	log.Info("Воркер запущен и готов к обработке сообщений")

	<-quit
	log.Info("Получен сигнал завершения, выполняется graceful shutdown...")
	cancel()
	wg.Wait()

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка остановки HTTP сервера для метрик",
				interfaces.LogField{Key: "error", Value: err.Error()})
		}
		shutdownCancel()
	}

	if err := deps.Close(); err != nil {
		log.Error("Ошибка при закрытии зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	log.Info("Воркер корректно завершил работу")
}

func newMetricsServer(port int, deps *app.Dependencies) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := deps.Storage.Ping(ctx); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// subscribe подписывается на топик и держит подписку до отмены контекста
func subscribe(ctx context.Context, messagingClient interfaces.MessagingPort, topic string,
	handler interfaces.MessageHandler, logger interfaces.LoggerPort, wg *sync.WaitGroup) {

	wg.Add(1)

	go func() {
		defer wg.Done()

		unsubscribe, err := messagingClient.Subscribe(ctx, topic, handler)
		if err != nil {
			logger.Error("Ошибка подписки на топик",
				interfaces.LogField{Key: "topic", Value: topic},
				interfaces.LogField{Key: "error", Value: err.Error()})
			return
		}
		defer func() { _ = unsubscribe() }()

		logger.Info("Подписка установлена", interfaces.LogField{Key: "topic", Value: topic})

		<-ctx.Done()
		logger.Info("Отмена подписки", interfaces.LogField{Key: "topic", Value: topic})
	}()
}
