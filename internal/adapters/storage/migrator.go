package postgres

import (
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-platform/catalog-sync/migrations"
	"github.com/athebyme/gomarket-platform/catalog-sync/pkg/interfaces"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Migrator применяет встроенные миграции схемы каталога
type Migrator struct {
	migrate *migrate.Migrate
	logger  interfaces.LoggerPort
}

// NewMigrator создает мигратор; databaseURL в формате pgx5://
func NewMigrator(databaseURL string, logger interfaces.LoggerPort) (*Migrator, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// Up применяет все новые миграции
func (m *Migrator) Up() error {
	m.logger.Info("Применение миграций")

	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("Новых миграций нет")
			return nil
		}
		return fmt.Errorf("migration up failed: %w", err)
	}

	return m.logVersion()
}

// Down откатывает все миграции
func (m *Migrator) Down() error {
	m.logger.Warn("Откат всех миграций")

	if err := m.migrate.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Steps применяет n миграций (n < 0 - откат)
func (m *Migrator) Steps(n int) error {
	m.logger.Info("Применение шагов миграции", interfaces.LogField{Key: "steps", Value: n})

	if err := m.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps failed: %w", err)
	}

	return m.logVersion()
}

// Force помечает версию примененной без выполнения миграций, снимает флаг dirty
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Принудительная установка версии миграций", interfaces.LogField{Key: "version", Value: version})

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Version возвращает текущую версию схемы; 0 - миграции не применялись
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

func (m *Migrator) logVersion() error {
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}

	m.logger.Info("Миграции применены",
		interfaces.LogField{Key: "version", Value: version},
		interfaces.LogField{Key: "dirty", Value: dirty},
	)
	return nil
}

// Close освобождает источник и соединение с базой
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}
