package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/athebyme/gomarket-platform/catalog-sync/config"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/logger"
	postgres "github.com/athebyme/gomarket-platform/catalog-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/app"
	"github.com/athebyme/gomarket-platform/catalog-sync/internal/utils"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
)

func main() {
	configPath := flag.String("config", "", "путь к файлу конфигурации")
	command := flag.String("command", "up", "up | down | steps | force | version")
	steps := flag.Int("n", 1, "число шагов для steps или версия для force")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.IsProduction())
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	databaseURL, err := utils.GenerateMigrationURL(app.ConnectionParams(cfg))
	if err != nil {
		log.Fatal("Ошибка генерации URL базы данных", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	migrator, err := postgres.NewMigrator(databaseURL, log)
	if err != nil {
		log.Fatal("Ошибка инициализации мигратора", interfaces.LogField{Key: "error", Value: err.Error()})
	}

	if err := run(migrator, *command, *steps, log); err != nil {
		_ = migrator.Close()
		log.Fatal("Ошибка выполнения миграций",
			interfaces.LogField{Key: "command", Value: *command},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}

	if err := migrator.Close(); err != nil {
		log.Error("Ошибка закрытия мигратора", interfaces.LogField{Key: "error", Value: err.Error()})
	}
}

func run(migrator *postgres.Migrator, command string, n int, log interfaces.LoggerPort) error {
	switch command {
	case "up":
		return migrator.Up()
	case "down":
		return migrator.Down()
	case "steps":
		return migrator.Steps(n)
	case "force":
		return migrator.Force(n)
	case "version":
		version, dirty, err := migrator.Version()
		if err != nil {
			return err
		}
		log.Info("Текущая версия схемы",
			interfaces.LogField{Key: "version", Value: version},
			interfaces.LogField{Key: "dirty", Value: dirty})
		return nil
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}
