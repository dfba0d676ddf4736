package tx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// txKey - ключ для хранения транзакции в контексте. Используем приватный тип, чтобы избежать коллизий.
type txKeyType struct{}

var txKey = txKeyType{}

// ReadOnlySnapshot уровень изоляции для согласованного чтения нескольких запросов
var ReadOnlySnapshot = pgx.TxOptions{
	IsoLevel:   pgx.RepeatableRead,
	AccessMode: pgx.ReadOnly,
}

// Beginner источник транзакций (pgxpool.Pool или его мок)
type Beginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// TxManager управляет жизненным циклом транзакций БД.
type TxManager interface {
	// Do выполняет переданную функцию `fn` внутри транзакции.
	// Если `fn` возвращает ошибку, транзакция откатывается (Rollback).
	// Если `fn` завершается успешно (возвращает nil), транзакция фиксируется (Commit).
	// Контекст, передаваемый в `fn`, будет содержать саму транзакцию.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// DoWithOptions то же, что Do, но с заданными параметрами транзакции
	DoWithOptions(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) error
}

// pgxTxManager - реализация TxManager для pgx.
type pgxTxManager struct {
	db Beginner
}

// NewTxManager создает новый менеджер транзакций.
func NewTxManager(db Beginner) TxManager {
	return &pgxTxManager{db: db}
}

// Do реализует метод интерфейса TxManager.
func (m *pgxTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.DoWithOptions(ctx, pgx.TxOptions{}, fn)
}

// DoWithOptions реализует метод интерфейса TxManager.
func (m *pgxTxManager) DoWithOptions(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context) error) (err error) {
	// Уже внутри транзакции: переиспользуем ее
	if _, ok := GetTxFromContext(ctx); ok {
		return fn(ctx)
	}

	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("tx.Begin failed: %w", err)
	}

	finished := false
	// Откат при панике внутри fn
	defer func() {
		if !finished {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err := fn(context.WithValue(ctx, txKey, tx)); err != nil {
		finished = true
		if rollbackErr := tx.Rollback(context.WithoutCancel(ctx)); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("tx.Rollback failed: %w", rollbackErr))
		}
		return err
	}

	finished = true
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx.Commit failed: %w", err)
	}

	return nil
}

// GetTxFromContext извлекает транзакцию из контекста.
func GetTxFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	return tx, ok
}
