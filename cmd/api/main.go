package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-platform/catalog-sync/config"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/api"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/app"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

// @title Catalog Sync API
// @version 1.0
// @description Синхронизация каталога товаров с поисковым индексом
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
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

	log.Info("Инициализация сервиса",
		interfaces.LogField{Key: "app_name", Value: cfg.AppName},
		interfaces.LogField{Key: "version", Value: cfg.Version},
		interfaces.LogField{Key: "env", Value: cfg.ENV},
	)

	deps, err := app.NewDependencies(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	verifier, err := app.NewAuthVerifier(ctx, cfg)
	if err != nil {
		_ = deps.Close()
		log.Fatal("Ошибка инициализации проверки токенов", interfaces.LogField{Key: "error", Value: err.Error()})
	}
	log.Info("Проверка токенов настроена", interfaces.LogField{Key: "mode", Value: cfg.Security.AuthMode})

	router := api.SetupRouter(deps.SyncService, verifier, log, api.RouterOptions{
		CORSAllowedOrigins: cfg.Security.CORSAllowOrigins,
		RateLimitPerMinute: cfg.Security.RateLimitPerMinute,
		HealthCheck: func(r *http.Request) error {
			checkCtx, checkCancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer checkCancel()
			return deps.Storage.Ping(checkCtx)
		},
	})
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("Сервер запущен", interfaces.LogField{Key: "address", Value: server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Ошибка запуска сервера", interfaces.LogField{Key: "error", Value: err.Error()})
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		}
	}()

	go func() {
		<-quit
		log.Info("Получен сигнал завершения, выполняется graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка при graceful shutdown", interfaces.LogField{Key: "error", Value: err.Error()})
		}
		log.Info("HTTP сервер остановлен")

		log.Info("Закрытие соединений с зависимостями...")
		cancel()
		if err := deps.Close(); err != nil {
			log.Error("Ошибка при закрытии зависимостей", interfaces.LogField{Key: "error", Value: err.Error()})
		}

		close(done)
	}()

	<-done
	log.Info("Сервер корректно завершил работу")
}
